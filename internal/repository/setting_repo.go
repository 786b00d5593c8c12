package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	FindAll(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, setting *model.Setting) error
	DeleteAll(ctx context.Context) error
	Restore(ctx context.Context, settings []model.Setting) error
}

type settingRepo struct {
	db *gorm.DB
}

func NewSettingRepo(db *gorm.DB) SettingRepository {
	return &settingRepo{db}
}

func (r *settingRepo) FindAll(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error
	return settings, err
}

func (r *settingRepo) Upsert(ctx context.Context, setting *model.Setting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
}

func (r *settingRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.Setting{}).Error
}

func (r *settingRepo) Restore(ctx context.Context, settings []model.Setting) error {
	if len(settings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&settings, 100).Error
}
