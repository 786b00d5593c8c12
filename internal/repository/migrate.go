package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Product{}, &model.Transaction{}, &model.Warehouse{}, &model.Setting{})
}

// StockMigrationReport summarizes a legacy stock migration run.
type StockMigrationReport struct {
	Scanned  int `json:"scanned"`
	Legacy   int `json:"legacy"`
	Repaired int `json:"repaired"`
}

type rawStockRow struct {
	ID         uuid.UUID
	Stock      sql.NullString
	TotalStock int
}

// MigrateLegacyStock rewrites every product whose stock column is not a
// warehouse map (old single-number rows) to an empty map, and repairs cached
// totals that disagree with their map. It is safe to run repeatedly.
func MigrateLegacyStock(ctx context.Context, db *gorm.DB) (StockMigrationReport, error) {
	var report StockMigrationReport

	var rows []rawStockRow
	if err := db.WithContext(ctx).
		Table("products").
		Select("id, stock, total_stock").
		Scan(&rows).Error; err != nil {
		return report, fmt.Errorf("scan products: %w", err)
	}
	report.Scanned = len(rows)

	for _, row := range rows {
		stock, legacy, err := model.DecodeStockMap([]byte(row.Stock.String))
		if err != nil {
			return report, fmt.Errorf("product %s: %w", row.ID, err)
		}
		total := stock.Sum()
		if !legacy && total == row.TotalStock {
			continue
		}

		encoded, err := json.Marshal(stock)
		if err != nil {
			return report, err
		}
		if err := db.WithContext(ctx).
			Table("products").
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{"stock": string(encoded), "total_stock": total}).Error; err != nil {
			return report, fmt.Errorf("product %s: %w", row.ID, err)
		}

		if legacy {
			report.Legacy++
			logger.Logger.Warn().
				Str("product_id", row.ID.String()).
				Str("legacy_stock", row.Stock.String).
				Msg("legacy stock value replaced by empty warehouse map")
		} else {
			report.Repaired++
			logger.Logger.Warn().
				Str("product_id", row.ID.String()).
				Int("cached_total", row.TotalStock).
				Int("map_total", total).
				Msg("cached total stock repaired")
		}
	}
	return report, nil
}
