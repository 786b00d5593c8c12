package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced record does not exist (or was soft deleted).
var ErrNotFound = errors.New("record not found")

// Store groups the ledger collections and runs units of work against them.
type Store interface {
	Products() ProductRepository
	Transactions() TransactionRepository
	Warehouses() WarehouseRepository
	Settings() SettingRepository

	// WithTx runs fn inside one database transaction. Repositories obtained from
	// the Store passed to fn share that transaction; any error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Ping reports whether the underlying database answers.
	Ping(ctx context.Context) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository         { return NewProductRepo(s.db) }
func (s *gormStore) Transactions() TransactionRepository { return NewTransactionRepo(s.db) }
func (s *gormStore) Warehouses() WarehouseRepository     { return NewWarehouseRepo(s.db) }
func (s *gormStore) Settings() SettingRepository         { return NewSettingRepo(s.db) }

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
