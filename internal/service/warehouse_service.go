package service

import (
	"context"
	"strings"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"

	"github.com/google/uuid"
)

type WarehouseService interface {
	List(ctx context.Context) ([]model.Warehouse, error)
	Create(ctx context.Context, name string) (*model.Warehouse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type warehouseService struct {
	store       repository.Store
	defaultName string
}

// NewWarehouseService creates the service; defaultName names the warehouse created when none exist.
func NewWarehouseService(store repository.Store, defaultName string) WarehouseService {
	if defaultName == "" {
		defaultName = "Main Warehouse"
	}
	return &warehouseService{store: store, defaultName: defaultName}
}

func (s *warehouseService) List(ctx context.Context) ([]model.Warehouse, error) {
	warehouses, err := s.store.Warehouses().EnsureDefault(ctx, s.defaultName)
	if err != nil {
		return nil, storeErr("warehouses", err)
	}
	return warehouses, nil
}

func (s *warehouseService) Create(ctx context.Context, name string) (*model.Warehouse, error) {
	w := &model.Warehouse{Name: strings.TrimSpace(name)}
	if err := validateInput(w); err != nil {
		return nil, err
	}
	if err := s.store.Warehouses().Create(ctx, w); err != nil {
		return nil, storeErr("warehouse", err)
	}
	logger.Info(ctx).Str("warehouse_id", w.ID.String()).Str("name", w.Name).Msg("warehouse created")
	return w, nil
}

// Delete removes the warehouse only. Stock entries keyed by it stay in product maps
// and in totals; reports skip them.
func (s *warehouseService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Warehouses().Delete(ctx, id); err != nil {
		return storeErr("warehouse", err)
	}
	logger.Info(ctx).Str("warehouse_id", id.String()).Msg("warehouse deleted")
	return nil
}

type SettingsService interface {
	List(ctx context.Context) ([]model.Setting, error)
	Put(ctx context.Context, key, value string) (*model.Setting, error)
}

type settingsService struct {
	store repository.Store
}

func NewSettingsService(store repository.Store) SettingsService {
	return &settingsService{store: store}
}

func (s *settingsService) List(ctx context.Context) ([]model.Setting, error) {
	settings, err := s.store.Settings().FindAll(ctx)
	if err != nil {
		return nil, storeErr("settings", err)
	}
	return settings, nil
}

func (s *settingsService) Put(ctx context.Context, key, value string) (*model.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return nil, validationFailed("setting key must be 1-100 characters")
	}
	setting := &model.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := s.store.Settings().Upsert(ctx, setting); err != nil {
		return nil, storeErr("setting", err)
	}
	return setting, nil
}
