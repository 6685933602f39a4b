package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mselser95/polymarket-scanner/internal/report"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultStatsWindowHours = 24
	maxStatsWindowHours     = 24 * 30
	statsTopMarketsLimit    = 10
)

// StatsHandler handles HTTP requests for recorded price statistics.
type StatsHandler struct {
	reporter *report.Reporter
	logger   *zap.Logger
}

// NewStatsHandler creates a new statistics handler.
func NewStatsHandler(reporter *report.Reporter, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		reporter: reporter,
		logger:   logger,
	}
}

// StatsResponse represents the HTTP response for the statistics API.
type StatsResponse struct {
	Summary    *report.Summary      `json:"summary"`
	Hourly     []types.HourlyBucket `json:"hourly"`
	TopMarkets []types.MarketRank   `json:"top_markets"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleStats handles GET /api/stats?hours=<window> requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	hours := defaultStatsWindowHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxStatsWindowHours {
			h.writeError(w, "invalid hours parameter", http.StatusBadRequest)
			return
		}
		hours = parsed
	}

	ctx := r.Context()

	summary, err := h.reporter.Summary(ctx, hours)
	if err != nil {
		h.logger.Error("stats-summary-failed", zap.Error(err))
		h.writeError(w, "failed to compute statistics", http.StatusInternalServerError)
		return
	}

	hourly, err := h.reporter.HourlyDistribution(ctx, hours)
	if err != nil {
		h.logger.Error("stats-hourly-failed", zap.Error(err))
		h.writeError(w, "failed to compute statistics", http.StatusInternalServerError)
		return
	}

	top, err := h.reporter.TopMarkets(ctx, hours, statsTopMarketsLimit)
	if err != nil {
		h.logger.Error("stats-top-markets-failed", zap.Error(err))
		h.writeError(w, "failed to compute statistics", http.StatusInternalServerError)
		return
	}

	response := StatsResponse{
		Summary:    summary,
		Hourly:     hourly,
		TopMarkets: top,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *StatsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
