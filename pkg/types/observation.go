package types

import "time"

// PriceQuote holds the Yes/No prices resolved for a market in one fetch.
// Ask and bid prices default to the corresponding mid price when order
// book depth is unavailable.
type PriceQuote struct {
	Question string
	YesPrice float64
	NoPrice  float64
	YesAsk   float64
	NoAsk    float64
	YesBid   float64
	NoBid    float64
}

// PriceObservation is one recorded sample of a market's Yes/No prices.
// Created exactly once per (market, scan cycle) pair and never mutated;
// the persistence layer is append-only history.
//
// Invariants: TotalCost = YesPrice + NoPrice,
// IsOpportunity = (TotalCost < 1 - margin),
// PotentialProfit = max(0, 1 - TotalCost) and is nonzero only when
// IsOpportunity is set.
type PriceObservation struct {
	Timestamp       time.Time `json:"timestamp"`
	MarketID        string    `json:"market_id"`
	MarketQuestion  string    `json:"market_question"`
	YesPrice        float64   `json:"yes_price"`
	NoPrice         float64   `json:"no_price"`
	TotalCost       float64   `json:"total_cost"`
	IsOpportunity   bool      `json:"arbitrage_opportunity"`
	PotentialProfit float64   `json:"potential_profit"`
	YesAskPrice     float64   `json:"yes_ask_price"`
	NoAskPrice      float64   `json:"no_ask_price"`
	YesBidPrice     float64   `json:"yes_bid_price"`
	NoBidPrice      float64   `json:"no_bid_price"`
}

// NewPriceObservation builds an observation from a quote, enforcing the
// arithmetic invariants above.
func NewPriceObservation(ref MarketRef, quote *PriceQuote, margin float64, now time.Time) *PriceObservation {
	total := quote.YesPrice + quote.NoPrice
	opportunity := total < 1.0-margin

	profit := 0.0
	if opportunity {
		profit = 1.0 - total
		if profit < 0 {
			profit = 0
		}
	}

	question := ref.Question
	if question == "" {
		question = quote.Question
	}

	return &PriceObservation{
		Timestamp:       now,
		MarketID:        ref.ID,
		MarketQuestion:  question,
		YesPrice:        quote.YesPrice,
		NoPrice:         quote.NoPrice,
		TotalCost:       total,
		IsOpportunity:   opportunity,
		PotentialProfit: profit,
		YesAskPrice:     quote.YesAsk,
		NoAskPrice:      quote.NoAsk,
		YesBidPrice:     quote.YesBid,
		NoBidPrice:      quote.NoBid,
	}
}

// AggregateStats summarizes opportunity rows inside a trailing window.
// Derived on demand, never stored.
type AggregateStats struct {
	TotalOpportunities int     `json:"total_opportunities"`
	AvgProfit          float64 `json:"avg_profit"`
	MaxProfit          float64 `json:"max_profit"`
	MinProfit          float64 `json:"min_profit"`
	UniqueMarkets      int     `json:"unique_markets"`
	WindowHours        int     `json:"window_hours"`
}

// HourlyBucket is one row of the hour-of-day distribution query.
type HourlyBucket struct {
	Hour          int `json:"hour"`
	Records       int `json:"records"`
	Opportunities int `json:"opportunities"`
}

// MarketRank is one row of the top-markets query, ranked by opportunity
// count descending.
type MarketRank struct {
	MarketID      string  `json:"market_id"`
	Question      string  `json:"question"`
	Opportunities int     `json:"opportunities"`
	AvgProfit     float64 `json:"avg_profit"`
	MaxProfit     float64 `json:"max_profit"`
}
