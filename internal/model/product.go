package model

import (
	"github.com/shopspring/decimal"
)

const DefaultCriticalStock = 5

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockCritical   StockStatus = "critical"
	StockOutOfStock StockStatus = "out_of_stock"
)

type Product struct {
	BaseModel
	Name          string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Barcode       *string         `gorm:"type:varchar(64);index" json:"barcode"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost_price" validate:"gte=0"`
	CriticalStock int             `gorm:"not null;default:5" json:"critical_stock" validate:"gt=0"`

	// Stock fields are written only by the stock ledger.
	Stock      StockMap `gorm:"type:text;serializer:json" json:"stock"`
	TotalStock int      `gorm:"not null;default:0" json:"total_stock"`
}

// Status classifies TotalStock against the critical threshold.
func (p *Product) Status() StockStatus {
	critical := p.CriticalStock
	if critical <= 0 {
		critical = DefaultCriticalStock
	}
	switch {
	case p.TotalStock > critical:
		return StockInStock
	case p.TotalStock > 0:
		return StockCritical
	default:
		return StockOutOfStock
	}
}

// StockValue is TotalStock priced at cost.
func (p *Product) StockValue() decimal.Decimal {
	return p.CostPrice.Mul(decimal.NewFromInt(int64(p.TotalStock)))
}

// ProductResponse adds derived fields for API responses
type ProductResponse struct {
	Product
	Status StockStatus `json:"status"`
}

func (p *Product) ToResponse() ProductResponse {
	return ProductResponse{Product: *p, Status: p.Status()}
}
