package types

import "time"

// Market represents a Polymarket market as returned by the Gamma API
// discovery endpoint. Active and Closed are pointers because the API
// omits them for some markets; a missing field means active and open.
type Market struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Slug     string `json:"slug"`
	Active   *bool  `json:"active"`
	Closed   *bool  `json:"closed"`
}

// Tradeable reports whether the market is active and not closed,
// defaulting missing fields to active/open.
func (m *Market) Tradeable() bool {
	if m.Active != nil && !*m.Active {
		return false
	}
	if m.Closed != nil && *m.Closed {
		return false
	}
	return true
}

// MarketRef identifies a market in the scanner's working set.
// Immutable once created.
type MarketRef struct {
	ID           string
	Question     string
	Slug         string
	DiscoveredAt time.Time
}

// NewMarketRef creates a MarketRef from a discovered market.
func NewMarketRef(m *Market, discoveredAt time.Time) MarketRef {
	return MarketRef{
		ID:           m.ID,
		Question:     m.Question,
		Slug:         m.Slug,
		DiscoveredAt: discoveredAt,
	}
}
