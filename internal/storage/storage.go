// Package storage implements the dual-sink persistence layer: an
// append-only CSV log plus an indexed store (SQLite or Postgres), both
// written from a single Record call. The indexed store also answers the
// windowed aggregation queries used for reporting.
package storage

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-scanner/pkg/types"
)

// Recorder is the write side of the persistence layer.
type Recorder interface {
	// Record durably persists one observation into both sinks as one
	// logical write. Both sink writes are always attempted; a non-nil
	// error names the sink(s) that failed, so a partial write is never
	// silent.
	Record(ctx context.Context, obs *types.PriceObservation) error

	// Close closes both sinks.
	Close() error
}

// Querier is the read side of the persistence layer, backed by the
// indexed store. All windows are trailing: rows with
// timestamp >= now - hoursBack.
type Querier interface {
	// WindowStats aggregates opportunity rows in the window. A window
	// with no matching rows yields a zeroed result, not an error.
	WindowStats(ctx context.Context, hoursBack int) (*types.AggregateStats, error)

	// WindowTotals returns record and opportunity counts plus total-cost
	// figures across all rows in the window.
	WindowTotals(ctx context.Context, hoursBack int) (*WindowTotals, error)

	// HourlyDistribution groups the window's rows by hour of day,
	// ascending hour order.
	HourlyDistribution(ctx context.Context, hoursBack int) ([]types.HourlyBucket, error)

	// TopMarkets ranks markets by opportunity count descending, ties
	// broken by first-recorded order.
	TopMarkets(ctx context.Context, hoursBack, limit int) ([]types.MarketRank, error)

	// WindowRows returns the window's raw rows, newest first.
	WindowRows(ctx context.Context, hoursBack int) ([]types.PriceObservation, error)
}

// IndexedStore is the random-access sink: inserts return the row's
// identity key, and every recorded field is recoverable by it.
type IndexedStore interface {
	Querier

	Insert(ctx context.Context, obs *types.PriceObservation) (int64, error)
	GetByID(ctx context.Context, id int64) (*types.PriceObservation, error)
	Close() error
}

// WindowTotals summarizes all rows (not just opportunities) in a window.
type WindowTotals struct {
	Records       int
	Opportunities int
	AvgTotalCost  float64
	MinTotalCost  float64
}

// windowCutoff computes the inclusive lower bound of a trailing window.
func windowCutoff(now time.Time, hoursBack int) time.Time {
	return now.Add(-time.Duration(hoursBack) * time.Hour)
}
