package main

import (
	"context"
	"errors"
	"flag"

	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/logger"

	"gorm.io/gorm"
)

var errDryRun = errors.New("dry run")

// migrate-stock rewrites products whose stock column predates the per-warehouse
// map and repairs cached totals. The API runs the same step at startup.
func main() {
	dryRun := flag.Bool("dry-run", false, "report affected rows without writing")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init("migrate-stock", cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	// 2. Setup Database
	dsn := cfg.SQLitePath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.PostgresDSN()
	}
	db, err := database.Connect(database.Options{Driver: cfg.DBDriver, DSN: dsn})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// 3. Migrate
	ctx := context.Background()
	var report repository.StockMigrationReport
	if *dryRun {
		err = db.Transaction(func(tx *gorm.DB) error {
			report, err = repository.MigrateLegacyStock(ctx, tx)
			if err != nil {
				return err
			}
			return errDryRun
		})
		if errors.Is(err, errDryRun) {
			err = nil
		}
	} else {
		report, err = repository.MigrateLegacyStock(ctx, db)
	}
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("stock migration failed")
	}

	logger.Logger.Info().
		Bool("dry_run", *dryRun).
		Int("scanned", report.Scanned).
		Int("legacy", report.Legacy).
		Int("repaired", report.Repaired).
		Msg("stock migration finished")
}
