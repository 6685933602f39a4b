package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ObservationsRecordedTotal tracks fully durable dual-sink writes.
	ObservationsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_observations_recorded_total",
		Help: "Total number of observations durably written to both sinks",
	})

	// RecordErrorsTotal tracks per-sink write failures.
	RecordErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_record_errors_total",
		Help: "Total number of sink write failures",
	}, []string{"sink"})

	// RecordDurationSeconds tracks dual-sink write latency.
	RecordDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_record_duration_seconds",
		Help:    "Duration of dual-sink observation writes",
		Buckets: prometheus.DefBuckets,
	})
)
