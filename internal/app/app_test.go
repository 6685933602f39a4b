package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mselser95/polymarket-scanner/pkg/config"
	"go.uber.org/zap"
)

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		LogLevel:          "info",
		HTTPPort:          "0",
		GammaAPIURL:       "http://127.0.0.1:1",
		ClobAPIURL:        "http://127.0.0.1:1",
		MinProfitMargin:   0.01,
		ScanInterval:      time.Second,
		MarketLimit:       10,
		FetchConcurrency:  1,
		ReportEveryCycles: 600,
		StorageMode:       "sqlite",
		LogDir:            dir,
		CSVLogFile:        filepath.Join(dir, "price_data.csv"),
		DBFile:            filepath.Join(dir, "price_data.db"),
	}
}

func TestNewAndShutdown(t *testing.T) {
	cfg := testAppConfig(t)

	application, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Both persistence sinks are created during setup.
	if _, err := os.Stat(cfg.CSVLogFile); err != nil {
		t.Errorf("csv log not created: %v", err)
	}
	if _, err := os.Stat(cfg.DBFile); err != nil {
		t.Errorf("sqlite store not created: %v", err)
	}

	if err := application.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_InvalidCredentialDegradesToObservationOnly(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.PrivateKey = "definitely-not-hex"

	application, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() must not fail on a bad credential, got %v", err)
	}

	if err := application.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
