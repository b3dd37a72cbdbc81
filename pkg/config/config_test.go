package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8089" {
		t.Errorf("Expected Port to be 8089, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Market.VWSPWindow != 5*time.Minute {
		t.Errorf("Expected VWSP window to be 5m, got %v", cfg.Market.VWSPWindow)
	}

	if cfg.Market.CatalogueFile != "" {
		t.Errorf("Expected no catalogue file, got %s", cfg.Market.CatalogueFile)
	}

	if cfg.Scheduler.HistorySize != 100 {
		t.Errorf("Expected history size to be 100, got %d", cfg.Scheduler.HistorySize)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("VWSP_WINDOW", "15m")
	t.Setenv("STOCKS_CATALOGUE_FILE", "catalogue.yaml")
	t.Setenv("TRADE_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Market.VWSPWindow != 15*time.Minute {
		t.Errorf("Expected VWSP window to be 15m, got %v", cfg.Market.VWSPWindow)
	}

	if cfg.Market.CatalogueFile != "catalogue.yaml" {
		t.Errorf("Expected catalogue file, got %s", cfg.Market.CatalogueFile)
	}

	if cfg.API.TradeRateLimit != 2.5 {
		t.Errorf("Expected trade rate limit 2.5, got %v", cfg.API.TradeRateLimit)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel to be debug, got %s", cfg.LogLevel)
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	t.Setenv("ENV", "invalid")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"VWSP_WINDOW", "-1m"},
		{"INDEX_HISTORY_SIZE", "0"},
		{"TRADE_RATE_LIMIT", "-3"},
		{"TRADE_RATE_BURST", "0"},
		{"SCHEDULER_MAX_RETRIES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadWithEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("VWSP_WINDOW=10m\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set
	t.Setenv("VWSP_WINDOW", "")
	os.Unsetenv("VWSP_WINDOW")

	cfg, err := LoadWithEnvFile(path)
	if err != nil {
		t.Fatalf("LoadWithEnvFile() failed: %v", err)
	}

	if cfg.Market.VWSPWindow != 10*time.Minute {
		t.Errorf("Expected VWSP window to be 10m, got %v", cfg.Market.VWSPWindow)
	}

	if _, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Expected error for missing env file, got nil")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().validate(); err != nil {
		t.Errorf("Default() config is invalid: %v", err)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "2h")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	expected := 2 * time.Hour

	if duration != expected {
		t.Errorf("Expected duration to be %v, got %v", expected, duration)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "100")

	value := getEnvAsInt("TEST_INT", 50)
	if value != 100 {
		t.Errorf("Expected value to be 100, got %d", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")

	value := getEnvAsBool("TEST_BOOL", false)
	if value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}
