package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/database/migrations"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory sqlite store
const MemoryPath = ":memory:"

// NewDatabase opens the custom filter store
func NewDatabase(cfg *config.FilterStoreConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to filter store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	maxOpen, maxIdle, lifetime := cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetimeDuration()
	if cfg.Driver == "sqlite" && cfg.Path == MemoryPath {
		// every sqlite in-memory connection is a separate database,
		// so pin a single connection for the lifetime of the pool
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping filter store: %w", err)
	}

	log.Info("Filter store connected",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", maxOpen),
	)

	return db, nil
}

func dialectorFor(cfg *config.FilterStoreConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("filterStore.path is required for sqlite")
		}
		if cfg.Path == MemoryPath {
			return sqlite.Open("file::memory:?_foreign_keys=on"), nil
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create filter store directory: %w", err)
		}
		return sqlite.Open(cfg.Path + "?_foreign_keys=on"), nil
	case "postgres":
		return postgres.Open(cfg.ConnectionString()), nil
	default:
		return nil, fmt.Errorf("unsupported filter store driver: %s", cfg.Driver)
	}
}

// GooseDialect maps the configured driver to goose's dialect name
func GooseDialect(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return driver
}

// Migrate applies the embedded goose migrations
func Migrate(db *gorm.DB, driver string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return RunGoose(sqlDB, driver, "up")
}

// RunGoose runs one goose command against the embedded migrations
func RunGoose(sqlDB *sql.DB, driver, command string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(GooseDialect(driver)); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	switch command {
	case "up":
		if err := goose.Up(sqlDB, "."); err != nil {
			return fmt.Errorf("failed to run up migrations: %w", err)
		}
	case "down":
		if err := goose.Down(sqlDB, "."); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	case "status":
		if err := goose.Status(sqlDB, "."); err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
	case "version":
		if err := goose.Version(sqlDB, "."); err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

// HealthCheck pings the filter store
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// HealthCheckWithStats pings the filter store and returns pool statistics
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	if err := sqlDB.Ping(); err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}
