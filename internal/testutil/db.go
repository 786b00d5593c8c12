// Package testutil provides ledger stores for package tests: an isolated SQLite one and,
// when TEST_POSTGRES_DSN is set, a pooled Postgres one.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/database"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewDB opens a private in-memory database with the ledger schema applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.Connect(database.Options{
		Driver:   "sqlite",
		DSN:      dsn,
		LogLevel: gormlogger.Silent,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewStore is NewDB wrapped in the repository Store.
func NewStore(t testing.TB) (repository.Store, *gorm.DB) {
	t.Helper()
	db := NewDB(t)
	return repository.NewStore(db), db
}

// PostgresDSNEnv names the scratch Postgres database used by lock tests.
const PostgresDSNEnv = "TEST_POSTGRES_DSN"

// NewPostgresStore connects to the database in TEST_POSTGRES_DSN with a real
// connection pool, or skips the test when the variable is unset.
func NewPostgresStore(t testing.TB) (repository.Store, *gorm.DB) {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	db, err := database.Connect(database.Options{
		Driver:      "postgres",
		DSN:         dsn,
		LogLevel:    gormlogger.Silent,
		MaxOpenConn: 16,
	})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db), db
}
