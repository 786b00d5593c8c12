package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds runtime configuration for the ledger service.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	AppName  string `envconfig:"APP_NAME" default:"Stock Ledger v1.0"`
	Port     string `envconfig:"PORT" default:"3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DBDriver selects the ledger store backend: "postgres" or "sqlite".
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"stock"`
	DBTimeZone  string `envconfig:"DB_TIMEZONE" default:"UTC"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"stock.db"`

	// RedisAddr enables idempotent transaction submission when set.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	ReportTimezone       string `envconfig:"REPORT_TIMEZONE" default:"Local"`
	DefaultWarehouseName string `envconfig:"DEFAULT_WAREHOUSE_NAME" default:"Main Warehouse"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on system env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

// PostgresDSN returns DATABASE_URL or a DSN assembled from the DB_* parts.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimeZone,
	)
}

// ReportLocation resolves the zone used for "today/week/month" windows.
func (c *Config) ReportLocation() *time.Location {
	if c.ReportTimezone == "" || c.ReportTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.ReportTimezone).Msg("unknown report timezone, falling back to local")
		return time.Local
	}
	return loc
}
