package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionFilter narrows listings; zero values mean "any".
type TransactionFilter struct {
	Type        model.TransactionType
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Limit       int
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error

	DeleteAll(ctx context.Context) error
	Restore(ctx context.Context, transactions []model.Transaction) error
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) Create(ctx context.Context, tx *model.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

// FindAll returns transactions newest first.
func (r *transactionRepo) FindAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.WarehouseID != uuid.Nil {
		q = q.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.ProductID != uuid.Nil {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var transactions []model.Transaction
	err := q.Order("date DESC").Order("created_at DESC").Find(&transactions).Error
	return transactions, err
}

// Delete removes the record physically; a deleted transaction has no history.
func (r *transactionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&model.Transaction{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *transactionRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&model.Transaction{}).Error
}

func (r *transactionRepo) Restore(ctx context.Context, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&transactions, 100).Error
}
