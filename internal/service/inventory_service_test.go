package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-stock-ledger/internal/idempotency"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu     sync.Mutex
	events []StockEvent
}

func (h *recordingHub) Publish(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev, ok := v.(StockEvent); ok {
		h.events = append(h.events, ev)
	}
}

func (h *recordingHub) Events() []StockEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]StockEvent(nil), h.events...)
}

type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (g *memoryGuard) Claim(_ context.Context, scope, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	if g.keys[scope+key] {
		return idempotency.ErrDuplicate
	}
	g.keys[scope+key] = true
	return nil
}

func (g *memoryGuard) Release(_ context.Context, scope, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, scope+key)
	return nil
}

type ledgerFixture struct {
	svc   *inventoryService
	store repository.Store
	hub   *recordingHub
	w1    *model.Warehouse
	w2    *model.Warehouse
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store, _ := testutil.NewStore(t)
	return newLedgerFixtureOn(t, store)
}

func newLedgerFixtureOn(t *testing.T, store repository.Store) *ledgerFixture {
	t.Helper()
	hub := &recordingHub{}
	svc := NewInventoryService(store, hub, &memoryGuard{}).(*inventoryService)

	ctx := context.Background()
	w1 := &model.Warehouse{Name: "W1"}
	w2 := &model.Warehouse{Name: "W2"}
	require.NoError(t, store.Warehouses().Create(ctx, w1))
	require.NoError(t, store.Warehouses().Create(ctx, w2))

	return &ledgerFixture{svc: svc, store: store, hub: hub, w1: w1, w2: w2}
}

func (f *ledgerFixture) product(t *testing.T, name string, stock model.StockMap) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, CostPrice: decimal.NewFromInt(4), CriticalStock: 5, Stock: stock}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *ledgerFixture) reload(t *testing.T, id uuid.UUID) *model.Product {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *ledgerFixture) exit(productID uuid.UUID, w *model.Warehouse, qty int) CreateTransactionInput {
	return CreateTransactionInput{
		ProductID:   productID,
		WarehouseID: w.ID,
		Type:        model.TxExit,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString("2.50"),
	}
}

func assertInvariant(t *testing.T, p *model.Product) {
	t.Helper()
	assert.Equal(t, p.Stock.Sum(), p.TotalStock, "total_stock must equal the sum of the stock map")
}

func TestCreateExitTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bolt", model.StockMap{f.w1.ID.String(): 10})

	res, err := f.svc.CreateTransaction(ctx, f.exit(p.ID, f.w1, 3))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("7.50").Equal(res.Transaction.TotalAmount))
	assert.Equal(t, "Bolt", res.Transaction.ProductName)
	assert.Equal(t, model.PaymentPending, res.Transaction.PaymentStatus)
	assert.Equal(t, 7, res.Product.TotalStock)

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, model.StockMap{f.w1.ID.String(): 7}, reloaded.Stock)
	assert.Equal(t, 7, reloaded.TotalStock)
	assertInvariant(t, reloaded)

	events := f.hub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "transaction_created", events[0].Action)
	assert.Equal(t, -3, events[0].Delta)
}

func TestDeleteTransactionRestoresStock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bolt", model.StockMap{f.w1.ID.String(): 10})

	res, err := f.svc.CreateTransaction(ctx, f.exit(p.ID, f.w1, 3))
	require.NoError(t, err)

	deleted, err := f.svc.DeleteTransaction(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, model.StockMap{f.w1.ID.String(): 10}, reloaded.Stock)
	assert.Equal(t, 10, reloaded.TotalStock)

	_, err = f.svc.GetTransaction(ctx, res.Transaction.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOversellNeedsConfirmation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bolt", model.StockMap{f.w1.ID.String(): 10})

	_, err := f.svc.CreateTransaction(ctx, f.exit(p.ID, f.w1, 15))
	require.ErrorIs(t, err, ErrConfirmationRequired)
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 10, se.CurrentStock)
	assert.Equal(t, 15, se.Requested)

	txs, err := f.svc.ListTransactions(ctx, repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	in := f.exit(p.ID, f.w1, 15)
	in.ConfirmOversell = true
	_, err = f.svc.CreateTransaction(ctx, in)
	require.NoError(t, err)

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, model.StockMap{f.w1.ID.String(): -5}, reloaded.Stock)
	assert.Equal(t, -5, reloaded.TotalStock)
}

func TestEntryDropsExitOnlyFields(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.product(t, "Nut", nil)
	loc := "shelf 4"

	res, err := f.svc.CreateTransaction(context.Background(), CreateTransactionInput{
		ProductID:     p.ID,
		WarehouseID:   f.w2.ID,
		Type:          model.TxEntry,
		Quantity:      12,
		UnitPrice:     decimal.NewFromInt(1),
		Location:      &loc,
		PaymentStatus: model.PaymentPaid,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Transaction.Location)
	assert.Empty(t, res.Transaction.PaymentStatus)
	assert.Equal(t, model.StockMap{f.w2.ID.String(): 12}, res.Product.Stock)
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.product(t, "Nut", nil)

	tests := []struct {
		name   string
		mutate func(in *CreateTransactionInput)
	}{
		{"zero quantity", func(in *CreateTransactionInput) { in.Quantity = 0 }},
		{"negative price", func(in *CreateTransactionInput) { in.UnitPrice = decimal.NewFromInt(-1) }},
		{"unknown type", func(in *CreateTransactionInput) { in.Type = "transfer" }},
		{"missing product", func(in *CreateTransactionInput) { in.ProductID = uuid.Nil }},
		{"missing warehouse", func(in *CreateTransactionInput) { in.WarehouseID = uuid.Nil }},
		{"bad payment status", func(in *CreateTransactionInput) { in.PaymentStatus = "later" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.exit(p.ID, f.w1, 1)
			in.ConfirmOversell = true
			tt.mutate(&in)
			_, err := f.svc.CreateTransaction(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateTransactionRollsBackOnMissingRecords(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Nut", model.StockMap{f.w1.ID.String(): 2})

	in := f.exit(uuid.New(), f.w1, 1)
	_, err := f.svc.CreateTransaction(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)

	in = f.exit(p.ID, &model.Warehouse{BaseModel: model.BaseModel{ID: uuid.New()}}, 1)
	_, err = f.svc.CreateTransaction(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.store.Products().Delete(ctx, p.ID))
	_, err = f.svc.CreateTransaction(ctx, f.exit(p.ID, f.w1, 1))
	assert.ErrorIs(t, err, ErrNotFound)

	txs, err := f.svc.ListTransactions(ctx, repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "failed creations must not leave transactions behind")
	assert.Empty(t, f.hub.Events())
}

func TestDeleteMissingTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	deleted, err := f.svc.DeleteTransaction(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteTransactionOfDeletedProductKeepsRecord(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Nut", model.StockMap{f.w1.ID.String(): 5})

	res, err := f.svc.CreateTransaction(ctx, f.exit(p.ID, f.w1, 2))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))

	deleted, err := f.svc.DeleteTransaction(ctx, res.Transaction.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, deleted)

	kept, err := f.svc.GetTransaction(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nut", kept.ProductName)
}

func TestCreateDeleteRoundTripsStock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	start := model.StockMap{f.w1.ID.String(): 4, f.w2.ID.String(): 9}
	p := f.product(t, "Washer", start)

	inputs := []CreateTransactionInput{
		{ProductID: p.ID, WarehouseID: f.w1.ID, Type: model.TxEntry, Quantity: 6},
		{ProductID: p.ID, WarehouseID: f.w2.ID, Type: model.TxExit, Quantity: 20, ConfirmOversell: true},
		{ProductID: p.ID, WarehouseID: f.w2.ID, Type: model.TxEntry, Quantity: 1},
	}
	var ids []uuid.UUID
	for _, in := range inputs {
		res, err := f.svc.CreateTransaction(ctx, in)
		require.NoError(t, err)
		assertInvariant(t, f.reload(t, p.ID))
		ids = append(ids, res.Transaction.ID)
	}

	for i := len(ids) - 1; i >= 0; i-- {
		deleted, err := f.svc.DeleteTransaction(ctx, ids[i])
		require.NoError(t, err)
		require.True(t, deleted)
	}

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, start, reloaded.Stock)
	assert.Equal(t, 13, reloaded.TotalStock)
}

func TestConcurrentEntries(t *testing.T) {
	runConcurrentMovements(t, newLedgerFixture(t))
}

// TestConcurrentMovementsPostgres runs the same load over a pooled Postgres
// connection, where only the product row lock serializes the writers.
func TestConcurrentMovementsPostgres(t *testing.T) {
	store, _ := testutil.NewPostgresStore(t)
	runConcurrentMovements(t, newLedgerFixtureOn(t, store))
}

func runConcurrentMovements(t *testing.T, f *ledgerFixture) {
	t.Helper()
	ctx := context.Background()
	p := f.product(t, "Hot item", model.StockMap{f.w1.ID.String(): 100})

	const n, qty = 20, 3
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := CreateTransactionInput{
				ProductID: p.ID, WarehouseID: f.w2.ID, Type: model.TxEntry, Quantity: qty,
			}
			if i%2 == 0 {
				in = f.exit(p.ID, f.w1, qty)
			}
			_, err := f.svc.CreateTransaction(ctx, in)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, 100-n/2*qty, reloaded.Stock.Get(f.w1.ID.String()))
	assert.Equal(t, n/2*qty, reloaded.Stock.Get(f.w2.ID.String()))
	assert.Equal(t, 100, reloaded.TotalStock)
	assertInvariant(t, reloaded)

	txs, err := f.svc.ProductTransactions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, txs, n)
}

func TestIdempotencyKeyRejectsRepeat(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Nut", model.StockMap{f.w1.ID.String(): 10})

	in := f.exit(p.ID, f.w1, 1)
	in.IdempotencyKey = "req-1"
	_, err := f.svc.CreateTransaction(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.CreateTransaction(ctx, in)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 9, f.reload(t, p.ID).TotalStock)
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.product(t, "Nut", model.StockMap{f.w1.ID.String(): 1})

	in := f.exit(p.ID, f.w1, 5)
	in.IdempotencyKey = "req-2"
	_, err := f.svc.CreateTransaction(ctx, in)
	require.ErrorIs(t, err, ErrConfirmationRequired)

	in.ConfirmOversell = true
	_, err = f.svc.CreateTransaction(ctx, in)
	require.NoError(t, err)
}

func TestTransactionDateUsesClock(t *testing.T) {
	f := newLedgerFixture(t)
	fixed := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	p := f.product(t, "Nut", nil)

	res, err := f.svc.CreateTransaction(context.Background(), CreateTransactionInput{
		ProductID: p.ID, WarehouseID: f.w1.ID, Type: model.TxEntry, Quantity: 1,
	})
	require.NoError(t, err)
	assert.True(t, fixed.Equal(res.Transaction.Date))
}

func TestProductCatalog(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	code := " 8690000000011 "

	p, err := f.svc.CreateProduct(ctx, ProductInput{Name: "Cable", Barcode: &code, CostPrice: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCriticalStock, p.CriticalStock)
	assert.Equal(t, model.StockMap{}, p.Stock)
	require.NotNil(t, p.Barcode)
	assert.Equal(t, "8690000000011", *p.Barcode)

	_, err = f.svc.CreateProduct(ctx, ProductInput{Name: "Other", Barcode: &code})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.CreateProduct(ctx, ProductInput{Name: ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateProduct(ctx, ProductInput{Name: "Cheap", CostPrice: decimal.NewFromInt(-2)})
	assert.ErrorIs(t, err, ErrValidation)

	found, err := f.svc.GetProductByBarcode(ctx, "8690000000011")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = f.svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductID: p.ID, WarehouseID: f.w1.ID, Type: model.TxEntry, Quantity: 8,
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Cable 2m", Barcode: &code, CostPrice: decimal.NewFromInt(5), CriticalStock: 2})
	require.NoError(t, err)
	assert.Equal(t, "Cable 2m", updated.Name)

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, 8, reloaded.TotalStock, "catalog edits leave stock alone")
	assert.Equal(t, 2, reloaded.CriticalStock)

	list, err := f.svc.ListProducts(ctx, "cable")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.UpdateProduct(ctx, uuid.New(), ProductInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))
	_, err = f.svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestListTransactionsRejectsUnknownType(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.svc.ListTransactions(context.Background(), repository.TransactionFilter{Type: "refund"})
	assert.ErrorIs(t, err, ErrValidation)
}
