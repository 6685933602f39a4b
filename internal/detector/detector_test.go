package detector

import (
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name            string
		yes             float64
		no              float64
		margin          float64
		wantOpportunity bool
		wantProfit      float64
	}{
		{
			name: "underpriced_pair",
			yes:  0.40, no: 0.55, margin: 0.01,
			wantOpportunity: true, wantProfit: 0.05,
		},
		{
			name: "fair_pricing",
			yes:  0.50, no: 0.50, margin: 0.01,
			wantOpportunity: false, wantProfit: 0,
		},
		{
			name: "overpriced_pair",
			yes:  0.55, no: 0.60, margin: 0.01,
			wantOpportunity: false, wantProfit: 0,
		},
		{
			name: "total_exactly_at_threshold",
			yes:  0.50, no: 0.49, margin: 0.01,
			wantOpportunity: false, wantProfit: 0,
		},
		{
			name: "zero_margin_total_below_one",
			yes:  0.50, no: 0.499, margin: 0,
			wantOpportunity: true, wantProfit: 0.001,
		},
		{
			name: "zero_prices",
			yes:  0, no: 0, margin: 0.01,
			wantOpportunity: true, wantProfit: 1.0,
		},
		{
			name: "negative_price_still_total",
			yes:  -0.1, no: 0.5, margin: 0.01,
			wantOpportunity: true, wantProfit: 0.6,
		},
		{
			name: "prices_above_one",
			yes:  1.2, no: 1.3, margin: 0.01,
			wantOpportunity: false, wantProfit: 0,
		},
		{
			name: "large_margin_suppresses_small_edge",
			yes:  0.48, no: 0.50, margin: 0.05,
			wantOpportunity: false, wantProfit: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.yes, tt.no, tt.margin)

			if got.IsOpportunity != tt.wantOpportunity {
				t.Errorf("IsOpportunity = %v, want %v", got.IsOpportunity, tt.wantOpportunity)
			}
			if math.Abs(got.Profit-tt.wantProfit) > 1e-9 {
				t.Errorf("Profit = %v, want %v", got.Profit, tt.wantProfit)
			}
		})
	}
}

func TestEvaluate_ProfitNeverNegative(t *testing.T) {
	for _, margin := range []float64{0, 0.01, 0.1, 0.5} {
		for yes := -0.5; yes <= 1.5; yes += 0.25 {
			for no := -0.5; no <= 1.5; no += 0.25 {
				v := Evaluate(yes, no, margin)
				if v.Profit < 0 {
					t.Fatalf("Evaluate(%v, %v, %v) produced negative profit %v", yes, no, margin, v.Profit)
				}
				if !v.IsOpportunity && v.Profit != 0 {
					t.Fatalf("Evaluate(%v, %v, %v) produced profit without opportunity", yes, no, margin)
				}
			}
		}
	}
}
