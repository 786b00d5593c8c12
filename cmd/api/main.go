package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/handler"
	"go-stock-ledger/internal/idempotency"
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.AppName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	dsn := cfg.SQLitePath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.PostgresDSN()
	}
	gormLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := database.Connect(database.Options{Driver: cfg.DBDriver, DSN: dsn, LogLevel: gormLevel})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate schema")
	}
	// Older rows kept stock as a plain number; rewrite them before serving.
	if _, err := repository.MigrateLegacyStock(ctx, db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate legacy stock")
	}
	store := repository.NewStore(db)

	// 3. Optional idempotency store
	var guard service.IdempotencyGuard
	if cfg.RedisAddr != "" {
		client, err := idempotency.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		defer client.Close()
		guard = idempotency.NewStore(client, "stock-ledger", cfg.IdempotencyTTL)
		logger.Logger.Info().Str("addr", cfg.RedisAddr).Msg("idempotency keys enabled")
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	// 5. Dependency Injection (Wiring Layers)
	invService := service.NewInventoryService(store, wsHub, guard)
	dashService := service.NewDashboardService(store, cfg.ReportLocation())
	whService := service.NewWarehouseService(store, cfg.DefaultWarehouseName)
	settingsService := service.NewSettingsService(store)
	backupService := service.NewBackupService(store, wsHub)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestContext())

	// 7. Routes
	handler.RegisterRoutes(app.Group("/api/v1"), handler.Handlers{
		Inventory:  handler.NewInventoryHandler(invService),
		Dashboard:  handler.NewDashboardHandler(dashService),
		Warehouses: handler.NewWarehouseHandler(whService, settingsService),
		Backup:     handler.NewBackupHandler(backupService),
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Logger.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Logger.Info().Msg("Server exited")
}
