package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker provides health and readiness checks for the scanner.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
	cycles    atomic.Int64
	lastScan  atomic.Int64 // unix nano of last completed pass, 0 when none
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// RecordScanCycle notes that a scan pass completed at t.
func (h *HealthChecker) RecordScanCycle(t time.Time) {
	h.cycles.Add(1)
	h.lastScan.Store(t.UnixNano())
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	ScanCycles int64  `json:"scan_cycles"`
	LastScanAt string `json:"last_scan_at,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:     "healthy",
			Uptime:     time.Since(h.startTime).String(),
			ScanCycles: h.cycles.Load(),
		}
		if last := h.lastScan.Load(); last > 0 {
			resp.LastScanAt = time.Unix(0, last).UTC().Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK once the scan loop has started, 503 before that.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "scanner is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status:     "ready",
			Uptime:     time.Since(h.startTime).String(),
			ScanCycles: h.cycles.Load(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
