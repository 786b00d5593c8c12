package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *model.Warehouse) error
	FindAll(ctx context.Context) ([]model.Warehouse, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// EnsureDefault lists warehouses, creating one named defaultName when none exist.
	EnsureDefault(ctx context.Context, defaultName string) ([]model.Warehouse, error)

	DeleteAll(ctx context.Context) error
	Restore(ctx context.Context, warehouses []model.Warehouse) error
}

type warehouseRepo struct {
	db *gorm.DB
}

func NewWarehouseRepo(db *gorm.DB) WarehouseRepository {
	return &warehouseRepo{db}
}

func (r *warehouseRepo) Create(ctx context.Context, warehouse *model.Warehouse) error {
	return r.db.WithContext(ctx).Create(warehouse).Error
}

func (r *warehouseRepo) FindAll(ctx context.Context) ([]model.Warehouse, error) {
	var warehouses []model.Warehouse
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&warehouses).Error
	return warehouses, err
}

func (r *warehouseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	var warehouse model.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &warehouse, nil
}

// Delete soft deletes the warehouse. Stock entries and transactions that reference it are left as they are.
func (r *warehouseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Warehouse{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *warehouseRepo) EnsureDefault(ctx context.Context, defaultName string) ([]model.Warehouse, error) {
	var warehouses []model.Warehouse
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("created_at ASC").Find(&warehouses).Error; err != nil {
			return err
		}
		if len(warehouses) > 0 {
			return nil
		}
		def := model.Warehouse{Name: defaultName}
		if err := tx.Create(&def).Error; err != nil {
			return err
		}
		warehouses = []model.Warehouse{def}
		return nil
	})
	return warehouses, err
}

func (r *warehouseRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&model.Warehouse{}).Error
}

func (r *warehouseRepo) Restore(ctx context.Context, warehouses []model.Warehouse) error {
	if len(warehouses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&warehouses, 100).Error
}
