package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"statement-classifier/internal/config"
	"statement-classifier/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ruleIndexes are created after AutoMigrate; the postgres migrations carry the same ones
var ruleIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_category_rules_priority ON category_rules(priority)",
}

// DB is the connection behind the SQL rule store
type DB struct {
	*gorm.DB
	driver string
}

// Open connects to the configured driver without touching the schema
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rule database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping rule database: %w", err)
	}

	return &DB{DB: db, driver: driverName(cfg.Driver)}, nil
}

func driverName(driver string) string {
	if driver == "" {
		return DriverSQLite
	}
	return driver
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch driverName(cfg.Driver) {
	case DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case DriverSQLite:
		// sqlite will not create missing parent directories itself
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Driver reports which dialect the connection speaks
func (db *DB) Driver() string {
	return db.driver
}

// EnsureSchema creates or updates the category_rules table
func (db *DB) EnsureSchema() error {
	if err := db.DB.AutoMigrate(&models.CategoryRuleRecord{}); err != nil {
		return err
	}
	for _, stmt := range ruleIndexes {
		if err := db.DB.Exec(stmt).Error; err != nil {
			slog.Warn("failed to create rule index", slog.String("statement", stmt), slog.Any("error", err))
		}
	}
	return nil
}

func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Initialize opens the rule database and brings its schema up to date.
// Postgres runs the versioned migrations when AutoMigrate is set and falls
// back to gorm's AutoMigrate if the runner fails.
func Initialize(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if db.driver == DriverPostgres && cfg.AutoMigrate {
		if err := Migrate(cfg); err != nil {
			slog.Warn("migration runner failed, falling back to AutoMigrate", slog.Any("error", err))
		}
	}
	if err := db.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare rule schema: %w", err)
	}

	slog.Info("rule database initialized", slog.String("driver", db.driver))
	return db, nil
}
