package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const BackupVersion = 1

// importNamespace derives stable UUIDs for records exported with non-UUID ids.
var importNamespace = uuid.MustParse("4f1c2a3e-7b8d-4c5e-9f60-1a2b3c4d5e6f")

type Backup struct {
	Version    int        `json:"version"`
	ExportDate string     `json:"exportDate"`
	Data       BackupData `json:"data"`
}

type BackupData struct {
	Products     []ProductRecord     `json:"products"`
	Transactions []TransactionRecord `json:"transactions"`
	Settings     []SettingRecord     `json:"settings"`
	Warehouses   []WarehouseRecord   `json:"warehouses"`
}

type ProductRecord struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Barcode       *string         `json:"barcode,omitempty"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	CriticalStock int             `json:"criticalStock"`
	Stock         json.RawMessage `json:"stock"`
	TotalStock    int             `json:"totalStock"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type TransactionRecord struct {
	ID            string                `json:"id"`
	ProductID     string                `json:"productId"`
	ProductName   string                `json:"productName"`
	Type          model.TransactionType `json:"type"`
	Quantity      int                   `json:"quantity"`
	UnitPrice     decimal.Decimal       `json:"unitPrice"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"`
	WarehouseID   string                `json:"warehouseId"`
	Location      *string               `json:"location,omitempty"`
	PaymentStatus model.PaymentStatus   `json:"paymentStatus,omitempty"`
	Notes         string                `json:"notes"`
	Date          time.Time             `json:"date"`
}

type SettingRecord struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type WarehouseRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// importPayload mirrors Backup with pointers so absent collections can be told apart from empty ones.
type importPayload struct {
	Version int `json:"version"`
	Data    *struct {
		Products     *[]ProductRecord     `json:"products"`
		Transactions *[]transactionImport `json:"transactions"`
		Settings     []SettingRecord      `json:"settings"`
		Warehouses   *[]WarehouseRecord   `json:"warehouses"`
	} `json:"data"`
}

// transactionImport shadows TotalAmount so a missing amount can be computed instead of read as zero.
type transactionImport struct {
	TransactionRecord
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}

// ImportSummary reports what an import replaced.
type ImportSummary struct {
	Products      int  `json:"products"`
	Transactions  int  `json:"transactions"`
	Settings      int  `json:"settings"`
	Warehouses    int  `json:"warehouses"`
	LegacyStock   int  `json:"legacy_stock"`
	WarehousesSet bool `json:"warehouses_replaced"`
}

type BackupService interface {
	Export(ctx context.Context) (*Backup, error)
	Import(ctx context.Context, raw []byte) (*ImportSummary, error)
}

type backupService struct {
	store repository.Store
	hub   Broadcaster
	now   func() time.Time
}

func NewBackupService(store repository.Store, hub Broadcaster) BackupService {
	return &backupService{store: store, hub: hub, now: time.Now}
}

func (s *backupService) Export(ctx context.Context) (*Backup, error) {
	products, err := s.store.Products().FindAll(ctx)
	if err != nil {
		return nil, storeErr("products", err)
	}
	txs, err := s.store.Transactions().FindAll(ctx, repository.TransactionFilter{})
	if err != nil {
		return nil, storeErr("transactions", err)
	}
	settings, err := s.store.Settings().FindAll(ctx)
	if err != nil {
		return nil, storeErr("settings", err)
	}
	warehouses, err := s.store.Warehouses().FindAll(ctx)
	if err != nil {
		return nil, storeErr("warehouses", err)
	}

	backup := &Backup{
		Version:    BackupVersion,
		ExportDate: s.now().UTC().Format(time.RFC3339),
		Data: BackupData{
			Products:     make([]ProductRecord, 0, len(products)),
			Transactions: make([]TransactionRecord, 0, len(txs)),
			Settings:     make([]SettingRecord, 0, len(settings)),
			Warehouses:   make([]WarehouseRecord, 0, len(warehouses)),
		},
	}

	for _, p := range products {
		stock := p.Stock
		if stock == nil {
			stock = model.StockMap{}
		}
		rawStock, err := json.Marshal(stock)
		if err != nil {
			return nil, fmt.Errorf("encode stock of %s: %w", p.ID, err)
		}
		backup.Data.Products = append(backup.Data.Products, ProductRecord{
			ID:            p.ID.String(),
			Name:          p.Name,
			Barcode:       p.Barcode,
			CostPrice:     p.CostPrice,
			CriticalStock: p.CriticalStock,
			Stock:         rawStock,
			TotalStock:    p.TotalStock,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	for _, t := range txs {
		backup.Data.Transactions = append(backup.Data.Transactions, TransactionRecord{
			ID:            t.ID.String(),
			ProductID:     t.ProductID.String(),
			ProductName:   t.ProductName,
			Type:          t.Type,
			Quantity:      t.Quantity,
			UnitPrice:     t.UnitPrice,
			TotalAmount:   t.TotalAmount,
			WarehouseID:   t.WarehouseID.String(),
			Location:      t.Location,
			PaymentStatus: t.PaymentStatus,
			Notes:         t.Notes,
			Date:          t.Date,
		})
	}
	for _, st := range settings {
		value, err := json.Marshal(st.Value)
		if err != nil {
			return nil, fmt.Errorf("encode setting %s: %w", st.Key, err)
		}
		backup.Data.Settings = append(backup.Data.Settings, SettingRecord{Key: st.Key, Value: value})
	}
	for _, w := range warehouses {
		backup.Data.Warehouses = append(backup.Data.Warehouses, WarehouseRecord{
			ID:        w.ID.String(),
			Name:      w.Name,
			CreatedAt: w.CreatedAt,
		})
	}
	return backup, nil
}

// importID keeps UUID ids and maps any other non-empty id to a stable UUID, so
// references between records survive the conversion.
func importID(id string) uuid.UUID {
	if id == "" {
		return uuid.Nil
	}
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(importNamespace, []byte(id))
}

func invalidFormat(format string, args ...interface{}) *Error {
	return newError(KindInvalidFormat, fmt.Sprintf(format, args...), nil)
}

// Import replaces transactions, products and settings (and warehouses when the
// payload carries them) with the payload's contents in one database transaction.
func (s *backupService) Import(ctx context.Context, raw []byte) (summary *ImportSummary, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = string(KindOf(err))
		}
		metrics.Imports.WithLabelValues(result).Inc()
	}()

	var payload importPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, newError(KindInvalidFormat, "backup is not valid JSON", err)
	}
	if payload.Data == nil || payload.Data.Products == nil || payload.Data.Transactions == nil {
		return nil, invalidFormat("backup must contain data.products and data.transactions")
	}

	summary = &ImportSummary{}
	products, err := decodeProducts(*payload.Data.Products, summary)
	if err != nil {
		return nil, err
	}
	txs, err := decodeTransactions(*payload.Data.Transactions)
	if err != nil {
		return nil, err
	}
	settings, err := decodeSettings(payload.Data.Settings, s.now())
	if err != nil {
		return nil, err
	}
	var warehouses []model.Warehouse
	if payload.Data.Warehouses != nil {
		summary.WarehousesSet = true
		if warehouses, err = decodeWarehouses(*payload.Data.Warehouses); err != nil {
			return nil, err
		}
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Transactions().DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Products().DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Settings().DeleteAll(ctx); err != nil {
			return err
		}
		if summary.WarehousesSet {
			if err := tx.Warehouses().DeleteAll(ctx); err != nil {
				return err
			}
			if err := tx.Warehouses().Restore(ctx, warehouses); err != nil {
				return err
			}
		}
		if err := tx.Products().Restore(ctx, products); err != nil {
			return err
		}
		if err := tx.Transactions().Restore(ctx, txs); err != nil {
			return err
		}
		return tx.Settings().Restore(ctx, settings)
	})
	if err != nil {
		return nil, storeErr("backup", err)
	}

	summary.Products = len(products)
	summary.Transactions = len(txs)
	summary.Settings = len(settings)
	summary.Warehouses = len(warehouses)

	logger.Info(ctx).
		Int("products", summary.Products).
		Int("transactions", summary.Transactions).
		Int("legacy_stock", summary.LegacyStock).
		Bool("warehouses_replaced", summary.WarehousesSet).
		Msg("backup imported")

	if s.hub != nil {
		s.hub.Publish(StockEvent{Type: "stock_update", Action: "backup_imported", Message: "ledger replaced from backup"})
	}
	return summary, nil
}

func decodeProducts(records []ProductRecord, summary *ImportSummary) ([]model.Product, error) {
	seen := make(map[uuid.UUID]bool, len(records))
	products := make([]model.Product, 0, len(records))
	for i, r := range records {
		stock, legacy, err := model.DecodeStockMap(r.Stock)
		if err != nil {
			return nil, invalidFormat("products[%d].stock: %v", i, err)
		}
		if legacy {
			summary.LegacyStock++
		}
		remapped := make(model.StockMap, len(stock))
		for wh, qty := range stock {
			remapped[importID(wh).String()] += qty
		}

		p := model.Product{
			Name:          r.Name,
			Barcode:       trimmedOrNil(r.Barcode),
			CostPrice:     r.CostPrice,
			CriticalStock: r.CriticalStock,
			Stock:         remapped,
			TotalStock:    remapped.Sum(),
		}
		if p.CriticalStock <= 0 {
			p.CriticalStock = model.DefaultCriticalStock
		}
		if p.CostPrice.IsNegative() {
			return nil, invalidFormat("products[%d]: costPrice must not be negative", i)
		}
		if err := validateInput(&p); err != nil {
			return nil, invalidFormat("products[%d]: %s", i, err.Error())
		}
		p.ID = importID(r.ID)
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if seen[p.ID] {
			return nil, invalidFormat("products[%d]: duplicate id %q", i, r.ID)
		}
		seen[p.ID] = true
		p.CreatedAt = r.CreatedAt
		p.UpdatedAt = r.UpdatedAt
		products = append(products, p)
	}
	return products, nil
}

// decodeTransactions computes a missing totalAmount and rejects one that is not quantity*unitPrice.
func decodeTransactions(records []transactionImport) ([]model.Transaction, error) {
	seen := make(map[uuid.UUID]bool, len(records))
	txs := make([]model.Transaction, 0, len(records))
	for i, rec := range records {
		r := rec.TransactionRecord
		if r.Type != model.TxEntry && r.Type != model.TxExit {
			return nil, invalidFormat("transactions[%d]: unknown type %q", i, r.Type)
		}
		if r.Quantity <= 0 {
			return nil, invalidFormat("transactions[%d]: quantity must be positive", i)
		}
		if r.UnitPrice.IsNegative() {
			return nil, invalidFormat("transactions[%d]: unitPrice must not be negative", i)
		}
		total := r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
		if rec.TotalAmount != nil && !rec.TotalAmount.Equal(total) {
			return nil, invalidFormat("transactions[%d]: totalAmount %s does not match quantity*unitPrice %s",
				i, rec.TotalAmount.String(), total.String())
		}
		t := model.Transaction{
			ProductID:     importID(r.ProductID),
			ProductName:   r.ProductName,
			Type:          r.Type,
			Quantity:      r.Quantity,
			UnitPrice:     r.UnitPrice,
			TotalAmount:   total,
			WarehouseID:   importID(r.WarehouseID),
			Location:      r.Location,
			PaymentStatus: r.PaymentStatus,
			Notes:         r.Notes,
			Date:          r.Date,
		}
		if t.Type == model.TxExit && t.PaymentStatus == "" {
			t.PaymentStatus = model.PaymentPending
		}
		t.ID = importID(r.ID)
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if seen[t.ID] {
			return nil, invalidFormat("transactions[%d]: duplicate id %q", i, r.ID)
		}
		seen[t.ID] = true
		txs = append(txs, t)
	}
	return txs, nil
}

// decodeSettings accepts string values as-is and keeps any other JSON value as its text.
func decodeSettings(records []SettingRecord, now time.Time) ([]model.Setting, error) {
	seen := make(map[string]bool, len(records))
	settings := make([]model.Setting, 0, len(records))
	for i, r := range records {
		if r.Key == "" {
			return nil, invalidFormat("settings[%d]: key is required", i)
		}
		if seen[r.Key] {
			continue
		}
		seen[r.Key] = true

		value := string(bytes.TrimSpace(r.Value))
		var s string
		if err := json.Unmarshal(r.Value, &s); err == nil {
			value = s
		} else if value == "null" {
			value = ""
		}
		settings = append(settings, model.Setting{Key: r.Key, Value: value, UpdatedAt: now})
	}
	return settings, nil
}

func decodeWarehouses(records []WarehouseRecord) ([]model.Warehouse, error) {
	seen := make(map[uuid.UUID]bool, len(records))
	warehouses := make([]model.Warehouse, 0, len(records))
	for i, r := range records {
		if r.Name == "" {
			return nil, invalidFormat("warehouses[%d]: name is required", i)
		}
		w := model.Warehouse{Name: r.Name}
		w.ID = importID(r.ID)
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		if seen[w.ID] {
			return nil, invalidFormat("warehouses[%d]: duplicate id %q", i, r.ID)
		}
		seen[w.ID] = true
		w.CreatedAt = r.CreatedAt
		warehouses = append(warehouses, w)
	}
	return warehouses, nil
}
