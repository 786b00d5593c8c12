package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxEntry TransactionType = "entry"
	TxExit  TransactionType = "exit"
)

// Sign is the stock direction of the transaction type: +1 for entries, -1 for exits.
func (t TransactionType) Sign() int {
	if t == TxExit {
		return -1
	}
	return 1
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
)

// Outstanding reports whether the sale still counts as a receivable.
func (s PaymentStatus) Outstanding() bool {
	return s == PaymentPending || s == PaymentPartial
}

// Transaction is immutable once stored; deletion is the only correction.
type Transaction struct {
	BaseModel
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName   string          `gorm:"type:varchar(255)" json:"product_name"` // Snapshot at creation
	Type          TransactionType `gorm:"type:varchar(10);not null;index" json:"type"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"` // Frozen quantity * unit price
	WarehouseID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"warehouse_id"`
	Location      *string         `gorm:"type:varchar(255)" json:"location,omitempty"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(10)" json:"payment_status,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
}

// Delta is the signed stock change this transaction applied when committed.
func (t *Transaction) Delta() int {
	return t.Type.Sign() * t.Quantity
}
