// Package app wires the scanner's components together and manages
// their lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-scanner/internal/report"
	"github.com/mselser95/polymarket-scanner/internal/scanner"
	"github.com/mselser95/polymarket-scanner/internal/storage"
	"github.com/mselser95/polymarket-scanner/pkg/cache"
	"github.com/mselser95/polymarket-scanner/pkg/config"
	"github.com/mselser95/polymarket-scanner/pkg/healthprobe"
	"github.com/mselser95/polymarket-scanner/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	marketCache   cache.Cache
	store         storage.IndexedStore
	recorder      storage.Recorder
	reporter      *report.Reporter
	scanner       *scanner.Scanner
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
