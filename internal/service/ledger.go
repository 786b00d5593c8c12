package service

import (
	"context"

	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
)

// StockLedger keeps Product.TotalStock equal to the sum of Product.Stock while
// transactions add and remove quantities.
type StockLedger struct {
	products repository.ProductRepository
}

// NewStockLedger binds the ledger to a product repository. Pass a transaction-scoped
// repository to make the stock write part of a larger unit of work.
func NewStockLedger(products repository.ProductRepository) *StockLedger {
	return &StockLedger{products: products}
}

// ApplyDelta adds signedQty to the product's stock in warehouseID and recomputes the total,
// as one locked read-modify-write. Stock is not clamped at zero.
func (l *StockLedger) ApplyDelta(ctx context.Context, productID, warehouseID uuid.UUID, signedQty int) (*model.Product, error) {
	if signedQty == 0 {
		return nil, validationFailed("stock delta must be non-zero")
	}
	if productID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, validationFailed("product and warehouse are required")
	}

	product, err := l.products.UpdateStockAtomic(ctx, productID, func(current model.StockMap) (model.StockMap, error) {
		return current.Apply(warehouseID.String(), signedQty), nil
	})
	if err != nil {
		metrics.StockAdjustments.WithLabelValues("failed").Inc()
		return nil, storeErr("product", err)
	}

	metrics.StockAdjustments.WithLabelValues("applied").Inc()
	return product, nil
}
