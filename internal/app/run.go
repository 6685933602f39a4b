package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown. A fatal scanner
// error (for example discovery returning no markets) propagates to the
// caller after cleanup.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel),
		zap.Duration("scan-interval", a.cfg.ScanInterval))

	scanErr := a.startComponents()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("gamma-api", a.cfg.GammaAPIURL))

	return a.waitForShutdown(scanErr)
}

func (a *App) startComponents() <-chan error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start scan loop
	scanErr := make(chan error, 1)
	a.wg.Add(1)
	go a.runScanner(scanErr)

	return scanErr
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runScanner(scanErr chan<- error) {
	defer a.wg.Done()
	scanErr <- a.scanner.Run(a.ctx)
}

func (a *App) waitForShutdown(scanErr <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case err := <-scanErr:
		if err != nil {
			a.logger.Error("scan-loop-failed", zap.Error(err))
			runErr = err
		} else {
			a.logger.Info("scan-loop-finished")
		}
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	if err := a.Shutdown(); err != nil {
		a.logger.Error("shutdown-error", zap.Error(err))
	}
	return runErr
}
