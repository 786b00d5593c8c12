package database

import (
	"fmt"
	stdlog "log"
	"time"

	"go-stock-ledger/pkg/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options selects and tunes the ledger store backend.
type Options struct {
	Driver      string // "postgres" or "sqlite"
	DSN         string
	LogLevel    gormlogger.LogLevel
	MaxOpenConn int
}

func newGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	if level == 0 {
		level = gormlogger.Warn
	}
	return gormlogger.New(
		stdlog.New(logger.Logger, "", 0),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Connect opens the store described by opts.
func Connect(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true, // Disables implicit prepared statements for pooled (pgbouncer) deployments
		})
	case "sqlite":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      newGormLogger(opts.LogLevel),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	if opts.Driver == "sqlite" {
		// SQLite has no row locks; one connection makes every write transaction exclusive.
		sqlDB.SetMaxOpenConns(1)
	} else {
		maxOpen := opts.MaxOpenConn
		if maxOpen <= 0 {
			maxOpen = 100
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Logger.Info().Str("driver", opts.Driver).Msg("Database connection established")
	return db, nil
}
