package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ExecutionsSimulatedTotal counts accepted simulated trades.
	ExecutionsSimulatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_executions_simulated_total",
		Help: "Total number of simulated arbitrage trades",
	})

	// ExecutionsRejectedTotal counts refused executions (armed mode).
	ExecutionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_executions_rejected_total",
		Help: "Total number of executions refused because live trading is unimplemented",
	})
)
