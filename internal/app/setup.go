package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/polymarket-scanner/internal/executor"
	"github.com/mselser95/polymarket-scanner/internal/pricesource"
	"github.com/mselser95/polymarket-scanner/internal/report"
	"github.com/mselser95/polymarket-scanner/internal/scanner"
	"github.com/mselser95/polymarket-scanner/internal/storage"
	"github.com/mselser95/polymarket-scanner/pkg/cache"
	"github.com/mselser95/polymarket-scanner/pkg/config"
	"github.com/mselser95/polymarket-scanner/pkg/healthprobe"
	"github.com/mselser95/polymarket-scanner/pkg/httpserver"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	store, err := setupIndexedStore(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup indexed store: %w", err)
	}

	recorder, err := setupRecorder(cfg, logger, store)
	if err != nil {
		store.Close()
		cancel()
		return nil, fmt.Errorf("setup recorder: %w", err)
	}

	reporter := report.NewReporter(store)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, reporter)

	exec := setupExecutor(cfg, logger)

	source := pricesource.NewClient(cfg.GammaAPIURL, cfg.ClobAPIURL, logger)

	scan := scanner.New(&scanner.Config{
		Source:            source,
		Recorder:          recorder,
		Reporter:          reporter,
		Executor:          exec,
		Cache:             marketCache,
		Health:            healthChecker,
		Logger:            logger,
		MarketIDs:         cfg.MarketIDs,
		MarketLimit:       cfg.MarketLimit,
		MinProfitMargin:   cfg.MinProfitMargin,
		ScanInterval:      cfg.ScanInterval,
		FetchConcurrency:  cfg.FetchConcurrency,
		ReportEveryCycles: cfg.ReportEveryCycles,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		marketCache:   marketCache,
		store:         store,
		recorder:      recorder,
		reporter:      reporter,
		scanner:       scan,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	reporter *report.Reporter,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Reporter:      reporter,
	})
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 markets)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupIndexedStore(cfg *config.Config, logger *zap.Logger) (storage.IndexedStore, error) {
	if cfg.StorageMode == "postgres" {
		pgStore, err := storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pgStore, nil
	}

	return storage.NewSQLiteStore(cfg.DBFile, logger)
}

func setupRecorder(cfg *config.Config, logger *zap.Logger, store storage.IndexedStore) (storage.Recorder, error) {
	csvLog, err := storage.NewCSVLog(cfg.CSVLogFile, logger)
	if err != nil {
		return nil, fmt.Errorf("create csv log: %w", err)
	}
	return storage.NewDualSink(csvLog, store, logger), nil
}

// setupExecutor builds the trade executor. A malformed credential is
// not fatal: the process degrades to observation-only mode.
func setupExecutor(cfg *config.Config, logger *zap.Logger) *executor.Executor {
	exec, err := executor.New(&executor.Config{
		PrivateKey: cfg.PrivateKey,
		Logger:     logger,
	})
	if err != nil {
		var cfgErr *types.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Error("executor-credential-invalid",
				zap.String("field", cfgErr.Field),
				zap.String("note", "continuing in observation-only mode"),
				zap.Error(err))
		} else {
			logger.Error("executor-setup-failed",
				zap.String("note", "continuing in observation-only mode"),
				zap.Error(err))
		}
		return executor.NewObservationOnly(logger)
	}
	return exec
}
