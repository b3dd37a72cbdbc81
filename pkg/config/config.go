package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Market
	Market MarketConfig

	// Scheduler
	Scheduler SchedulerConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// MarketConfig holds the catalogue and calculation settings
type MarketConfig struct {
	CatalogueFile string        // empty means the built-in sample catalogue
	VWSPWindow    time.Duration // trailing window of the volume weighted price
	LastTradeTTL  time.Duration // last traded price is flagged stale after this
}

// SchedulerConfig holds the index snapshot job settings
type SchedulerConfig struct {
	Enabled       bool
	IndexSchedule string // cron expression with seconds
	HistorySize   int
	MaxRetries    int
	RetryDelay    time.Duration
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	TradeRateLimit float64 // trade submissions per second
	TradeRateBurst int
}

// Load reads configuration from environment variables,
// after loading the first .env file found.
func Load() (*Config, error) {
	loadEnvFile()
	return load()
}

// LoadWithEnvFile reads configuration after loading the given .env file
func LoadWithEnvFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load env file %s: %w", path, err)
	}
	return load()
}

func load() (*Config, error) {
	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Market
		Market: MarketConfig{
			CatalogueFile: getEnv("STOCKS_CATALOGUE_FILE", ""),
			VWSPWindow:    getEnvAsDuration("VWSP_WINDOW", "5m"),
			LastTradeTTL:  getEnvAsDuration("LAST_TRADE_TTL", "5m"),
		},

		// Scheduler
		Scheduler: SchedulerConfig{
			Enabled:       getEnvAsBool("INDEX_SNAPSHOT_ENABLED", true),
			IndexSchedule: getEnv("INDEX_SNAPSHOT_SCHEDULE", "0 * * * * *"),
			HistorySize:   getEnvAsInt("INDEX_HISTORY_SIZE", 100),
			MaxRetries:    getEnvAsInt("SCHEDULER_MAX_RETRIES", 0),
			RetryDelay:    getEnvAsDuration("SCHEDULER_RETRY_DELAY", "5s"),
		},

		// API
		API: APIConfig{
			TradeRateLimit: getEnvAsFloat("TRADE_RATE_LIMIT", 20),
			TradeRateBurst: getEnvAsInt("TRADE_RATE_BURST", 40),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Port: "8089",
		Env:  "development",
		Market: MarketConfig{
			VWSPWindow:   5 * time.Minute,
			LastTradeTTL: 5 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			IndexSchedule: "0 * * * * *",
			HistorySize:   100,
			RetryDelay:    5 * time.Second,
		},
		API: APIConfig{
			TradeRateLimit: 20,
			TradeRateBurst: 40,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Market.VWSPWindow <= 0 {
		return fmt.Errorf("VWSP_WINDOW must be positive")
	}

	if c.Scheduler.HistorySize < 1 {
		return fmt.Errorf("INDEX_HISTORY_SIZE must be at least 1")
	}

	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("SCHEDULER_MAX_RETRIES cannot be negative")
	}

	if c.API.TradeRateLimit <= 0 {
		return fmt.Errorf("TRADE_RATE_LIMIT must be positive")
	}

	if c.API.TradeRateBurst < 1 {
		return fmt.Errorf("TRADE_RATE_BURST must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
