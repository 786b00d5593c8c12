package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxRollsBack(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()
	p := newProduct(t, store, "Rollback", model.StockMap{"w1": 1})

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx repository.Store) error {
		record := &model.Transaction{
			ProductID: p.ID, ProductName: p.Name, Type: model.TxEntry, Quantity: 3,
			UnitPrice: decimal.NewFromInt(1), TotalAmount: decimal.NewFromInt(3),
			WarehouseID: uuid.New(), Date: time.Now(),
		}
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return err
		}
		if _, err := tx.Products().UpdateStockAtomic(ctx, p.ID, func(cur model.StockMap) (model.StockMap, error) {
			return cur.Apply("w1", 3), nil
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	txs, err := store.Transactions().FindAll(ctx, repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	reloaded, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalStock)
}

func TestTransactionFilters(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()
	w1, w2 := uuid.New(), uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	base := time.Now().Add(-time.Hour)

	seed := []model.Transaction{
		{ProductID: p1, Type: model.TxEntry, Quantity: 1, WarehouseID: w1, Date: base},
		{ProductID: p1, Type: model.TxExit, Quantity: 1, WarehouseID: w2, Date: base.Add(time.Minute)},
		{ProductID: p2, Type: model.TxExit, Quantity: 1, WarehouseID: w1, Date: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		seed[i].UnitPrice = decimal.NewFromInt(1)
		seed[i].TotalAmount = decimal.NewFromInt(1)
	}
	require.NoError(t, store.Transactions().Restore(ctx, seed))

	all, err := store.Transactions().FindAll(ctx, repository.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, p2, all[0].ProductID, "newest first")

	exits, err := store.Transactions().FindAll(ctx, repository.TransactionFilter{Type: model.TxExit})
	require.NoError(t, err)
	assert.Len(t, exits, 2)

	inW1, err := store.Transactions().FindAll(ctx, repository.TransactionFilter{WarehouseID: w1})
	require.NoError(t, err)
	assert.Len(t, inW1, 2)

	forP1, err := store.Transactions().FindAll(ctx, repository.TransactionFilter{ProductID: p1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, forP1, 1)
	assert.Equal(t, model.TxExit, forP1[0].Type)

	require.NoError(t, store.Transactions().Delete(ctx, all[0].ID))
	assert.ErrorIs(t, store.Transactions().Delete(ctx, all[0].ID), repository.ErrNotFound)
	_, err = store.Transactions().FindByID(ctx, all[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEnsureDefaultWarehouse(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	list, err := store.Warehouses().EnsureDefault(ctx, "Main Warehouse")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Main Warehouse", list[0].Name)

	again, err := store.Warehouses().EnsureDefault(ctx, "Other")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, list[0].ID, again[0].ID)

	require.NoError(t, store.Warehouses().Delete(ctx, list[0].ID))
	assert.ErrorIs(t, store.Warehouses().Delete(ctx, list[0].ID), repository.ErrNotFound)
}

func TestSettingsUpsert(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Settings().Upsert(ctx, &model.Setting{Key: "theme", Value: "light"}))
	require.NoError(t, store.Settings().Upsert(ctx, &model.Setting{Key: "theme", Value: "dark"}))

	settings, err := store.Settings().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "dark", settings[0].Value)
}
