package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

// DualSink writes every observation to the sequential CSV log and the
// indexed store as one logical write. Both sink writes are always
// attempted even when the first fails, so a transient failure in one
// sink never suppresses durability in the other. Writes are serialized
// by an internal mutex; the SQLite connection is a single writer.
type DualSink struct {
	csv    *CSVLog
	store  IndexedStore
	logger *zap.Logger
	mu     sync.Mutex
}

// NewDualSink creates the dual-sink recorder.
func NewDualSink(csvLog *CSVLog, store IndexedStore, logger *zap.Logger) *DualSink {
	return &DualSink{
		csv:    csvLog,
		store:  store,
		logger: logger,
	}
}

// Record persists one observation into both sinks. A non-nil error
// names the failed sink(s); the caller must treat the write as not
// fully durable but each sink write was still attempted.
func (d *DualSink) Record(ctx context.Context, obs *types.PriceObservation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	defer func() {
		RecordDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	csvErr := d.csv.Append(obs)
	if csvErr != nil {
		RecordErrorsTotal.WithLabelValues(types.SinkCSV).Inc()
		d.logger.Error("csv-append-failed",
			zap.String("market-id", obs.MarketID),
			zap.Time("observed-at", obs.Timestamp),
			zap.Error(csvErr))
	}

	_, dbErr := d.store.Insert(ctx, obs)
	if dbErr != nil {
		RecordErrorsTotal.WithLabelValues(types.SinkIndexed).Inc()
		d.logger.Error("indexed-insert-failed",
			zap.String("market-id", obs.MarketID),
			zap.Time("observed-at", obs.Timestamp),
			zap.Error(dbErr))
	}

	if csvErr != nil || dbErr != nil {
		return errors.Join(csvErr, dbErr)
	}

	ObservationsRecordedTotal.Inc()
	return nil
}

// Close closes both sinks, reporting the first error encountered.
func (d *DualSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	csvErr := d.csv.Close()
	dbErr := d.store.Close()
	return errors.Join(csvErr, dbErr)
}
