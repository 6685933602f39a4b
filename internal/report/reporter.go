// Package report is the read-only statistics façade over the indexed
// store. It never writes: every figure is derived on demand from the
// recorded history.
package report

import (
	"context"
	"io"

	"github.com/mselser95/polymarket-scanner/internal/storage"
	"github.com/mselser95/polymarket-scanner/pkg/types"
)

// questionLabelMax caps market question labels in ranked listings.
const questionLabelMax = 50

// Summary is a single windowed snapshot combining the opportunity
// aggregates with whole-window record totals. Percent fields are the
// matching fraction scaled by 100 for presentation.
type Summary struct {
	WindowHours        int     `json:"window_hours"`
	TotalRecords       int     `json:"total_records"`
	TotalOpportunities int     `json:"total_opportunities"`
	OpportunityRatio   float64 `json:"opportunity_ratio"`
	OpportunityPercent float64 `json:"opportunity_percent"`
	UniqueMarkets      int     `json:"unique_markets"`
	AvgProfit          float64 `json:"avg_profit"`
	AvgProfitPercent   float64 `json:"avg_profit_percent"`
	MaxProfit          float64 `json:"max_profit"`
	MaxProfitPercent   float64 `json:"max_profit_percent"`
	MinProfit          float64 `json:"min_profit"`
	MinProfitPercent   float64 `json:"min_profit_percent"`
	AvgTotalCost       float64 `json:"avg_total_cost"`
	MinTotalCost       float64 `json:"min_total_cost"`
}

// Reporter answers statistics queries against a Querier.
type Reporter struct {
	store storage.Querier
}

// NewReporter creates a reporter over the given store.
func NewReporter(store storage.Querier) *Reporter {
	return &Reporter{store: store}
}

// Summary builds the windowed snapshot for the trailing hoursBack hours.
// An empty window yields all-zero figures, never a division error.
func (r *Reporter) Summary(ctx context.Context, hoursBack int) (*Summary, error) {
	stats, err := r.store.WindowStats(ctx, hoursBack)
	if err != nil {
		return nil, err
	}
	totals, err := r.store.WindowTotals(ctx, hoursBack)
	if err != nil {
		return nil, err
	}

	ratio := 0.0
	if totals.Records > 0 {
		ratio = float64(totals.Opportunities) / float64(totals.Records)
	}

	return &Summary{
		WindowHours:        hoursBack,
		TotalRecords:       totals.Records,
		TotalOpportunities: totals.Opportunities,
		OpportunityRatio:   ratio,
		OpportunityPercent: ratio * 100,
		UniqueMarkets:      stats.UniqueMarkets,
		AvgProfit:          stats.AvgProfit,
		AvgProfitPercent:   stats.AvgProfit * 100,
		MaxProfit:          stats.MaxProfit,
		MaxProfitPercent:   stats.MaxProfit * 100,
		MinProfit:          stats.MinProfit,
		MinProfitPercent:   stats.MinProfit * 100,
		AvgTotalCost:       totals.AvgTotalCost,
		MinTotalCost:       totals.MinTotalCost,
	}, nil
}

// HourlyDistribution returns the window's hour-of-day distribution.
func (r *Reporter) HourlyDistribution(ctx context.Context, hoursBack int) ([]types.HourlyBucket, error) {
	return r.store.HourlyDistribution(ctx, hoursBack)
}

// TopMarkets returns the window's top markets by opportunity count,
// with question labels truncated for display.
func (r *Reporter) TopMarkets(ctx context.Context, hoursBack, limit int) ([]types.MarketRank, error) {
	ranks, err := r.store.TopMarkets(ctx, hoursBack, limit)
	if err != nil {
		return nil, err
	}
	for i := range ranks {
		ranks[i].Question = truncateLabel(ranks[i].Question, questionLabelMax)
	}
	return ranks, nil
}

// ExportCSV writes the window's raw rows to w in the sequential log's
// column format.
func (r *Reporter) ExportCSV(ctx context.Context, w io.Writer, hoursBack int) error {
	rows, err := r.store.WindowRows(ctx, hoursBack)
	if err != nil {
		return err
	}
	return storage.WriteCSV(w, rows)
}

// truncateLabel shortens s to max runes. Truncating on runes keeps
// multi-byte question text valid UTF-8.
func truncateLabel(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
