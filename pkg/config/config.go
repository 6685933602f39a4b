package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Polymarket API
	GammaAPIURL string
	ClobAPIURL  string

	// Scanning
	MinProfitMargin   float64
	ScanInterval      time.Duration
	MarketLimit       int
	FetchConcurrency  int
	ReportEveryCycles int
	MarketIDs         []string // explicit monitored set; empty enables discovery

	// Persistence
	StorageMode string // "sqlite" or "postgres"
	LogDir      string
	CSVLogFile  string
	DBFile      string

	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Execution
	PrivateKey string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	logDir := getEnvOrDefault("LOG_DIR", "./logs")

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket API defaults
		GammaAPIURL: getEnvOrDefault("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		ClobAPIURL:  getEnvOrDefault("CLOB_API_URL", "https://clob.polymarket.com"),

		// Scanning defaults
		MinProfitMargin:   getFloat64OrDefault("MIN_PROFIT_MARGIN", 0.01),
		ScanInterval:      getDurationOrDefault("SCAN_INTERVAL", 1*time.Second),
		MarketLimit:       getIntOrDefault("MAX_MARKETS_TO_MONITOR", 100),
		FetchConcurrency:  getIntOrDefault("FETCH_CONCURRENCY", 1),
		ReportEveryCycles: getIntOrDefault("REPORT_EVERY_CYCLES", 600),
		MarketIDs:         getListOrDefault("MARKET_IDS", nil),

		// Persistence defaults
		StorageMode: getEnvOrDefault("STORAGE_MODE", "sqlite"),
		LogDir:      logDir,
		CSVLogFile:  getEnvOrDefault("CSV_LOG_FILE", filepath.Join(logDir, "price_data.csv")),
		DBFile:      getEnvOrDefault("DB_LOG_FILE", filepath.Join(logDir, "price_data.db")),

		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_scanner"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Execution
		PrivateKey: os.Getenv("PRIVATE_KEY"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.GammaAPIURL == "" {
		return fmt.Errorf("GAMMA_API_URL cannot be empty")
	}

	if c.ClobAPIURL == "" {
		return fmt.Errorf("CLOB_API_URL cannot be empty")
	}

	if c.MinProfitMargin < 0 || c.MinProfitMargin >= 1.0 {
		return fmt.Errorf("MIN_PROFIT_MARGIN must be in [0, 1.0), got %f", c.MinProfitMargin)
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", c.ScanInterval)
	}

	if c.MarketLimit <= 0 {
		return fmt.Errorf("MAX_MARKETS_TO_MONITOR must be positive, got %d", c.MarketLimit)
	}

	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}

	if c.StorageMode != "sqlite" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'sqlite' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}

	return items
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
