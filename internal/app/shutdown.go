package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to stop the scan loop
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Wait for the scan loop to flush final statistics and exit before
	// closing the sinks it writes to.
	a.wg.Wait()

	// Close the recorder (closes both sinks; the indexed store is shared
	// with it, so it is not closed again separately)
	err = a.recorder.Close()
	if err != nil {
		a.logger.Error("recorder-close-error", zap.Error(err))
	}

	a.marketCache.Close()

	a.logger.Info("application-shutdown-complete")

	return nil
}
