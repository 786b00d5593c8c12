package service

import (
	"context"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

// DashboardService recomputes every report from the full collections on each call.
type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetSalesReport(ctx context.Context, period Period) (*SalesSummary, error)
	GetPaymentBreakdown(ctx context.Context) (*PaymentBreakdown, error)
	GetStockMovement(ctx context.Context, days int) ([]StockMovementData, error)
}

type dashboardService struct {
	store repository.Store
	loc   *time.Location
	now   func() time.Time
}

func NewDashboardService(store repository.Store, loc *time.Location) DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &dashboardService{store: store, loc: loc, now: time.Now}
}

func (s *dashboardService) transactions(ctx context.Context) ([]model.Transaction, error) {
	txs, err := s.store.Transactions().FindAll(ctx, repository.TransactionFilter{})
	if err != nil {
		return nil, storeErr("transactions", err)
	}
	return txs, nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	products, err := s.store.Products().FindAll(ctx)
	if err != nil {
		return nil, storeErr("products", err)
	}
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	warehouses, err := s.store.Warehouses().FindAll(ctx)
	if err != nil {
		return nil, storeErr("warehouses", err)
	}
	return BuildDashboard(products, txs, warehouses, s.now(), s.loc), nil
}

func (s *dashboardService) GetSalesReport(ctx context.Context, period Period) (*SalesSummary, error) {
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return Sales(txs, period, s.now(), s.loc), nil
}

func (s *dashboardService) GetPaymentBreakdown(ctx context.Context) (*PaymentBreakdown, error) {
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return Payments(txs), nil
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]StockMovementData, error) {
	if days < 0 || days > 366 {
		return nil, validationFailed("days must be between 1 and 366")
	}
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return StockMovement(txs, days, s.now(), s.loc), nil
}
