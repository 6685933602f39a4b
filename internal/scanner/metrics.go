package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stateIdle        = "idle"
	stateDiscovering = "discovering"
	stateScanning    = "scanning"
	stateSleeping    = "sleeping"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ScanCyclesTotal counts completed scan passes.
	ScanCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_scan_cycles_total",
		Help: "Total number of completed scan passes",
	})

	// MarketsScannedTotal counts successfully sampled markets.
	MarketsScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_markets_scanned_total",
		Help: "Total number of markets successfully sampled",
	})

	// FetchFailuresTotal counts skipped markets due to fetch errors.
	FetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_market_fetch_failures_total",
		Help: "Total number of per-market fetches skipped due to errors",
	})

	// OpportunitiesDetectedTotal counts detected arbitrage opportunities.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	})

	// ScanPassDurationSeconds tracks full-pass latency.
	ScanPassDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_scan_pass_duration_seconds",
		Help:    "Duration of one full scan pass over the monitored set",
		Buckets: prometheus.DefBuckets,
	})

	// ScanState exposes the loop's current state as a one-hot gauge.
	ScanState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scanner_state",
		Help: "Current scan loop state (1 for the active state)",
	}, []string{"state"})
)

func setState(state string) {
	for _, s := range []string{stateIdle, stateDiscovering, stateScanning, stateSleeping} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		ScanState.WithLabelValues(s).Set(v)
	}
}
