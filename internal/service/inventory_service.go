package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-stock-ledger/internal/idempotency"
	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Broadcaster receives ledger events after they are committed.
type Broadcaster interface {
	Publish(v any)
}

// IdempotencyGuard rejects a request key that was already claimed.
type IdempotencyGuard interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

const idempotencyScope = "transactions"

type InventoryService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	ListProducts(ctx context.Context, query string) ([]model.Product, error)
	ProductTransactions(ctx context.Context, productID uuid.UUID) ([]model.Transaction, error)

	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*TransactionResult, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) (bool, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]model.Transaction, error)
}

// ProductInput carries the catalog fields a client may set. Stock is never accepted here.
type ProductInput struct {
	Name          string          `json:"name"`
	Barcode       *string         `json:"barcode"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	CriticalStock int             `json:"critical_stock"`
}

type CreateTransactionInput struct {
	ProductID     uuid.UUID             `json:"product_id" validate:"uuid_required"`
	WarehouseID   uuid.UUID             `json:"warehouse_id" validate:"uuid_required"`
	Type          model.TransactionType `json:"type" validate:"required,oneof=entry exit"`
	Quantity      int                   `json:"quantity" validate:"gt=0"`
	UnitPrice     decimal.Decimal       `json:"unit_price" validate:"gte=0"`
	Location      *string               `json:"location"`
	PaymentStatus model.PaymentStatus   `json:"payment_status" validate:"omitempty,oneof=paid pending partial"`
	Notes         string                `json:"notes"`

	// ConfirmOversell accepts an exit larger than the warehouse's current stock.
	ConfirmOversell bool `json:"confirm_oversell"`

	IdempotencyKey string `json:"-"`
}

// TransactionResult is a committed transaction with the product stock it produced.
type TransactionResult struct {
	Transaction model.Transaction     `json:"transaction"`
	Product     model.ProductResponse `json:"product"`
}

// StockEvent is broadcast to live clients whenever the ledger changes a product's stock.
type StockEvent struct {
	Type          string         `json:"type"`
	Action        string         `json:"action"`
	TransactionID uuid.UUID      `json:"transaction_id"`
	ProductID     uuid.UUID      `json:"product_id"`
	ProductName   string         `json:"product_name"`
	WarehouseID   uuid.UUID      `json:"warehouse_id"`
	Delta         int            `json:"delta"`
	Stock         model.StockMap `json:"stock"`
	TotalStock    int            `json:"total_stock"`
	Message       string         `json:"message"`
}

type inventoryService struct {
	store repository.Store
	hub   Broadcaster
	guard IdempotencyGuard
	now   func() time.Time
}

// NewInventoryService wires the ledger operations. hub and guard may be nil.
func NewInventoryService(store repository.Store, hub Broadcaster, guard IdempotencyGuard) InventoryService {
	return &inventoryService{
		store: store,
		hub:   hub,
		guard: guard,
		now:   time.Now,
	}
}

func trimmedOrNil(b *string) *string {
	if b == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*b)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// checkBarcode rejects a barcode already used by another live product. The check is not atomic with the write.
func (s *inventoryService) checkBarcode(ctx context.Context, barcode *string, self uuid.UUID) error {
	if barcode == nil {
		return nil
	}
	existing, err := s.store.Products().FindByBarcode(ctx, *barcode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr("product", err)
	}
	if existing.ID != self {
		return newError(KindConflict, fmt.Sprintf("barcode %q already exists", *barcode), nil)
	}
	return nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	product := &model.Product{
		Name:          strings.TrimSpace(in.Name),
		Barcode:       trimmedOrNil(in.Barcode),
		CostPrice:     in.CostPrice,
		CriticalStock: in.CriticalStock,
		Stock:         model.StockMap{},
	}
	if product.CriticalStock == 0 {
		product.CriticalStock = model.DefaultCriticalStock
	}
	if err := validateInput(product); err != nil {
		return nil, err
	}
	if err := s.checkBarcode(ctx, product.Barcode, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, storeErr("product", err)
	}

	logger.Info(ctx).Str("product_id", product.ID.String()).Str("name", product.Name).Msg("product created")
	s.emit(StockEvent{
		Type:        "stock_update",
		Action:      "product_created",
		ProductID:   product.ID,
		ProductName: product.Name,
		Stock:       product.Stock,
		TotalStock:  product.TotalStock,
		Message:     fmt.Sprintf("product '%s' created", product.Name),
	})
	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*model.Product, error) {
	existing, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("product", err)
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Barcode = trimmedOrNil(in.Barcode)
	existing.CostPrice = in.CostPrice
	if in.CriticalStock != 0 {
		existing.CriticalStock = in.CriticalStock
	}
	if err := validateInput(existing); err != nil {
		return nil, err
	}
	if err := s.checkBarcode(ctx, existing.Barcode, existing.ID); err != nil {
		return nil, err
	}

	if err := s.store.Products().UpdateDetails(ctx, existing); err != nil {
		return nil, storeErr("product", err)
	}
	return existing, nil
}

func (s *inventoryService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return storeErr("product", err)
	}
	logger.Info(ctx).Str("product_id", id.String()).Msg("product deleted")
	return nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("product", err)
	}
	return product, nil
}

func (s *inventoryService) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, validationFailed("barcode is required")
	}
	product, err := s.store.Products().FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, storeErr("product", err)
	}
	return product, nil
}

func (s *inventoryService) ListProducts(ctx context.Context, query string) ([]model.Product, error) {
	products, err := s.store.Products().Search(ctx, query)
	if err != nil {
		return nil, storeErr("products", err)
	}
	return products, nil
}

func (s *inventoryService) ProductTransactions(ctx context.Context, productID uuid.UUID) ([]model.Transaction, error) {
	txs, err := s.store.Transactions().FindAll(ctx, repository.TransactionFilter{ProductID: productID})
	if err != nil {
		return nil, storeErr("transactions", err)
	}
	return txs, nil
}

// normalize drops exit-only fields from entries and defaults the payment status of exits.
func (in *CreateTransactionInput) normalize() {
	if in.Type == model.TxEntry {
		in.Location = nil
		in.PaymentStatus = ""
		return
	}
	in.Location = trimmedOrNil(in.Location)
	if in.PaymentStatus == "" {
		in.PaymentStatus = model.PaymentPending
	}
}

// CreateTransaction records the transaction and applies its stock delta in one database transaction.
func (s *inventoryService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (result *TransactionResult, err error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	in.normalize()

	if in.IdempotencyKey != "" && s.guard != nil {
		if err := s.guard.Claim(ctx, idempotencyScope, in.IdempotencyKey); err != nil {
			if errors.Is(err, idempotency.ErrDuplicate) {
				return nil, newError(KindConflict, "transaction already submitted", err)
			}
			return nil, newError(KindStorageUnavailable, "idempotency store", err)
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.guard.Release(context.WithoutCancel(ctx), idempotencyScope, in.IdempotencyKey); relErr != nil {
				logger.Warn(ctx).Err(relErr).Msg("release idempotency key")
			}
		}()
	}

	var (
		committed model.Transaction
		updated   *model.Product
		oversold  bool
		warehouse = in.WarehouseID.String()
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, in.ProductID)
		if err != nil {
			return storeErr("product", err)
		}
		if _, err := tx.Warehouses().FindByID(ctx, in.WarehouseID); err != nil {
			return storeErr("warehouse", err)
		}

		if in.Type == model.TxExit {
			available := product.Stock.Get(warehouse)
			if in.Quantity > available {
				if !in.ConfirmOversell {
					return &Error{
						Kind:         KindConfirmationRequired,
						Message:      fmt.Sprintf("only %d in stock, %d requested", available, in.Quantity),
						CurrentStock: available,
						Requested:    in.Quantity,
					}
				}
				oversold = true
			}
		}

		committed = model.Transaction{
			ProductID:     product.ID,
			ProductName:   product.Name,
			Type:          in.Type,
			Quantity:      in.Quantity,
			UnitPrice:     in.UnitPrice,
			TotalAmount:   in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
			WarehouseID:   in.WarehouseID,
			Location:      in.Location,
			PaymentStatus: in.PaymentStatus,
			Notes:         strings.TrimSpace(in.Notes),
			Date:          s.now(),
		}
		if err := tx.Transactions().Create(ctx, &committed); err != nil {
			return storeErr("transaction", err)
		}

		updated, err = NewStockLedger(tx.Products()).ApplyDelta(ctx, product.ID, in.WarehouseID, committed.Delta())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionsCommitted.WithLabelValues(string(committed.Type)).Inc()
	if oversold {
		metrics.OversellConfirmations.Inc()
	}
	logger.Info(ctx).
		Str("transaction_id", committed.ID.String()).
		Str("product_id", committed.ProductID.String()).
		Str("type", string(committed.Type)).
		Int("quantity", committed.Quantity).
		Int("total_stock", updated.TotalStock).
		Msg("transaction committed")

	s.publish("transaction_created", &committed, updated, committed.Delta())

	return &TransactionResult{Transaction: committed, Product: updated.ToResponse()}, nil
}

// DeleteTransaction reverses the transaction's stock delta and removes it. A missing
// transaction is reported as deleted=false with no error.
func (s *inventoryService) DeleteTransaction(ctx context.Context, id uuid.UUID) (bool, error) {
	var (
		removed *model.Transaction
		updated *model.Product
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		t, err := tx.Transactions().FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return storeErr("transaction", err)
		}

		updated, err = NewStockLedger(tx.Products()).ApplyDelta(ctx, t.ProductID, t.WarehouseID, -t.Delta())
		if err != nil {
			return err
		}
		if err := tx.Transactions().Delete(ctx, t.ID); err != nil {
			return storeErr("transaction", err)
		}
		removed = t
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed == nil {
		logger.Debug(ctx).Str("transaction_id", id.String()).Msg("delete of unknown transaction ignored")
		return false, nil
	}

	metrics.TransactionsDeleted.Inc()
	logger.Info(ctx).
		Str("transaction_id", removed.ID.String()).
		Str("product_id", removed.ProductID.String()).
		Int("total_stock", updated.TotalStock).
		Msg("transaction deleted")

	s.publish("transaction_deleted", removed, updated, -removed.Delta())
	return true, nil
}

func (s *inventoryService) emit(ev StockEvent) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

func (s *inventoryService) publish(action string, t *model.Transaction, product *model.Product, delta int) {
	verb := "added"
	if delta < 0 {
		verb = "removed"
	}
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	s.emit(StockEvent{
		Type:          "stock_update",
		Action:        action,
		TransactionID: t.ID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		WarehouseID:   t.WarehouseID,
		Delta:         delta,
		Stock:         product.Stock,
		TotalStock:    product.TotalStock,
		Message:       fmt.Sprintf("%d units of '%s' %s", qty, product.Name, verb),
	})
}

func (s *inventoryService) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	t, err := s.store.Transactions().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("transaction", err)
	}
	return t, nil
}

func (s *inventoryService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]model.Transaction, error) {
	if filter.Type != "" && filter.Type != model.TxEntry && filter.Type != model.TxExit {
		return nil, validationFailed(fmt.Sprintf("unknown transaction type %q", filter.Type))
	}
	txs, err := s.store.Transactions().FindAll(ctx, filter)
	if err != nil {
		return nil, storeErr("transactions", err)
	}
	return txs, nil
}
