package pricesource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// MarketsDiscoveredTotal tracks qualifying markets returned by discovery.
	MarketsDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_discovery_markets_total",
		Help: "Total number of active markets returned by the discovery endpoint",
	})

	// DiscoveryErrorsTotal tracks discovery request failures.
	DiscoveryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_discovery_errors_total",
		Help: "Total number of failed discovery requests",
	})

	// DiscoveryDurationSeconds tracks discovery request latency.
	DiscoveryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_discovery_duration_seconds",
		Help:    "Duration of discovery requests",
		Buckets: prometheus.DefBuckets,
	})

	// PriceFetchesTotal tracks successful per-market price fetches.
	PriceFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_price_fetches_total",
		Help: "Total number of successful price fetches",
	})

	// PriceFetchErrorsTotal tracks per-market fetch/parse failures.
	PriceFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_price_fetch_errors_total",
		Help: "Total number of failed price fetches",
	})

	// PriceFetchDurationSeconds tracks per-market fetch latency.
	PriceFetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_price_fetch_duration_seconds",
		Help:    "Duration of per-market price fetches",
		Buckets: prometheus.DefBuckets,
	})

	// BookLookupErrorsTotal tracks best-effort order book lookup failures.
	BookLookupErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_book_lookup_errors_total",
		Help: "Total number of failed or unusable order book lookups",
	})
)
