package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rule store backends
const (
	RulesBackendJSON     = "json"
	RulesBackendSQLite   = "sqlite"
	RulesBackendPostgres = "postgres"
	RulesBackendMemory   = "memory"
)

type Config struct {
	Environment string
	LogLevel    string
	Rules       RulesConfig
	Database    DatabaseConfig
	Ingest      IngestConfig
}

type RulesConfig struct {
	Backend  string
	Path     string
	SeedPath string

	// Consecutive save failures before the store is bypassed, and how long it stays bypassed
	StoreMaxFailures  int
	StoreResetTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

type IngestConfig struct {
	UseNativeCategories bool
	MinConfidence       float64
	ClassifyWorkers     int
	ParallelThreshold   int
}

// Load reads configuration from the environment, after an optional .env file
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load %s: %v", envFile, err)
	}

	config := &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Rules: RulesConfig{
			Backend:  strings.ToLower(getEnv("RULES_BACKEND", RulesBackendJSON)),
			Path:     getEnv("RULES_PATH", "data/category_rules.json"),
			SeedPath: getEnv("RULES_SEED_PATH", "db/seeds/category_rules.yaml"),

			StoreMaxFailures:  getIntEnv("RULES_STORE_MAX_FAILURES", 5),
			StoreResetTimeout: getDurationEnv("RULES_STORE_RESET_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "classifier"),
			Password:        getEnv("DB_PASSWORD", "classifier"),
			Name:            getEnv("DB_NAME", "statement_classifier"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "data/rules.db"),
			MaxConnections:  getIntEnv("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			AutoMigrate:     getBoolEnv("AUTO_MIGRATE", false),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Ingest: IngestConfig{
			UseNativeCategories: getBoolEnv("USE_CSV_CATEGORIES", true),
			MinConfidence:       getFloatEnv("DETECT_MIN_CONFIDENCE", 0.5),
			ClassifyWorkers:     getIntEnv("CLASSIFY_WORKERS", 4),
			ParallelThreshold:   getIntEnv("CLASSIFY_PARALLEL_THRESHOLD", 2000),
		},
	}

	return config
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	switch c.Rules.Backend {
	case RulesBackendJSON:
		if c.Rules.Path == "" {
			return fmt.Errorf("RULES_PATH is required for the %s rules backend", c.Rules.Backend)
		}
	case RulesBackendSQLite, RulesBackendPostgres, RulesBackendMemory:
	default:
		return fmt.Errorf("unsupported RULES_BACKEND %q", c.Rules.Backend)
	}

	if c.Ingest.MinConfidence < 0 || c.Ingest.MinConfidence > 1 {
		return fmt.Errorf("DETECT_MIN_CONFIDENCE must be within [0, 1], got %v", c.Ingest.MinConfidence)
	}
	if c.Ingest.ClassifyWorkers < 1 {
		return fmt.Errorf("CLASSIFY_WORKERS must be at least 1, got %d", c.Ingest.ClassifyWorkers)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL returns the postgres connection URL used by the migration runner
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsTesting() bool {
	return c.Environment == "testing"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
