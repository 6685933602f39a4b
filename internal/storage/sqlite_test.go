package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "price_data.db")
	store, err := NewSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testObservation(marketID string, ts time.Time, opportunity bool, profit float64) *types.PriceObservation {
	total := 1.0 - profit
	return &types.PriceObservation{
		Timestamp:       ts,
		MarketID:        marketID,
		MarketQuestion:  "Question for " + marketID,
		YesPrice:        total / 2,
		NoPrice:         total / 2,
		TotalCost:       total,
		IsOpportunity:   opportunity,
		PotentialProfit: profit,
		YesAskPrice:     total / 2,
		NoAskPrice:      total / 2,
		YesBidPrice:     total / 2,
		NoBidPrice:      total / 2,
	}
}

func TestSQLiteStore_InsertAndGetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	obs := testObservation("mkt-1", ts, true, 0.05)
	obs.YesAskPrice = 0.48
	obs.NoBidPrice = 0.46

	id, err := store.Insert(ctx, obs)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("Insert() id = %d, want positive", id)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.MarketID != obs.MarketID {
		t.Errorf("MarketID = %q, want %q", got.MarketID, obs.MarketID)
	}
	if got.MarketQuestion != obs.MarketQuestion {
		t.Errorf("MarketQuestion = %q, want %q", got.MarketQuestion, obs.MarketQuestion)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.IsOpportunity != obs.IsOpportunity {
		t.Errorf("IsOpportunity = %v, want %v", got.IsOpportunity, obs.IsOpportunity)
	}
	if got.PotentialProfit != obs.PotentialProfit {
		t.Errorf("PotentialProfit = %v, want %v", got.PotentialProfit, obs.PotentialProfit)
	}
	if got.YesAskPrice != 0.48 || got.NoBidPrice != 0.46 {
		t.Errorf("book columns = %v/%v, want 0.48/0.46", got.YesAskPrice, got.NoBidPrice)
	}
}

func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), 9999)
	if err == nil {
		t.Fatal("expected error for missing row")
	}
}

func TestSQLiteStore_SchemaInitIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "price_data.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	_, err = store.Insert(ctx, testObservation("mkt-1", time.Now(), false, 0))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen: schema creation must not drop existing rows.
	reopened, err := NewSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	totals, err := reopened.WindowTotals(ctx, 24)
	if err != nil {
		t.Fatalf("WindowTotals() error = %v", err)
	}
	if totals.Records != 1 {
		t.Errorf("Records after reopen = %d, want 1", totals.Records)
	}
}

func TestSQLiteStore_WindowStats_EmptyWindow(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.WindowStats(context.Background(), 24)
	if err != nil {
		t.Fatalf("WindowStats() on empty store error = %v", err)
	}

	if stats.TotalOpportunities != 0 || stats.UniqueMarkets != 0 {
		t.Errorf("counts = %d/%d, want 0/0", stats.TotalOpportunities, stats.UniqueMarkets)
	}
	if stats.AvgProfit != 0 || stats.MaxProfit != 0 || stats.MinProfit != 0 {
		t.Errorf("profits = %v/%v/%v, want zeros", stats.AvgProfit, stats.MaxProfit, stats.MinProfit)
	}
	if stats.WindowHours != 24 {
		t.Errorf("WindowHours = %d, want 24", stats.WindowHours)
	}
}

func TestSQLiteStore_WindowStats_CutoffIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	inside := testObservation("mkt-in", now.Add(-2*time.Hour), true, 0.04)
	outside := testObservation("mkt-out", now.Add(-30*time.Hour), true, 0.50)
	noOpp := testObservation("mkt-flat", now.Add(-1*time.Hour), false, 0)

	for _, obs := range []*types.PriceObservation{inside, outside, noOpp} {
		if _, err := store.Insert(ctx, obs); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	stats, err := store.WindowStats(ctx, 24)
	if err != nil {
		t.Fatalf("WindowStats() error = %v", err)
	}

	if stats.TotalOpportunities != 1 {
		t.Errorf("TotalOpportunities = %d, want 1 (old row excluded)", stats.TotalOpportunities)
	}
	if stats.MaxProfit != 0.04 {
		t.Errorf("MaxProfit = %v, want 0.04 (old 0.50 row excluded)", stats.MaxProfit)
	}
	if stats.UniqueMarkets != 1 {
		t.Errorf("UniqueMarkets = %d, want 1", stats.UniqueMarkets)
	}

	totals, err := store.WindowTotals(ctx, 24)
	if err != nil {
		t.Fatalf("WindowTotals() error = %v", err)
	}
	if totals.Records != 2 {
		t.Errorf("Records = %d, want 2 (opportunity + flat)", totals.Records)
	}
	if totals.Opportunities != 1 {
		t.Errorf("Opportunities = %d, want 1", totals.Opportunities)
	}
}

func TestSQLiteStore_HourlyDistribution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rows := []struct {
		hour        int
		opportunity bool
	}{
		{9, true},
		{9, false},
		{14, true},
	}
	for _, r := range rows {
		ts := time.Date(2025, 6, 2, r.hour, 15, 0, 0, time.UTC)
		if _, err := store.Insert(ctx, testObservation("mkt-1", ts, r.opportunity, 0.02)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	buckets, err := store.HourlyDistribution(ctx, 24)
	if err != nil {
		t.Fatalf("HourlyDistribution() error = %v", err)
	}

	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2: %+v", len(buckets), buckets)
	}
	if buckets[0].Hour != 9 || buckets[1].Hour != 14 {
		t.Errorf("bucket hours = %d,%d, want ascending 9,14", buckets[0].Hour, buckets[1].Hour)
	}
	if buckets[0].Records != 2 || buckets[0].Opportunities != 1 {
		t.Errorf("hour 9 = %d records/%d opportunities, want 2/1", buckets[0].Records, buckets[0].Opportunities)
	}
}

func TestSQLiteStore_TopMarkets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	// mkt-b has two opportunities, mkt-a and mkt-c one each; mkt-a was
	// recorded before mkt-c, so the tie keeps mkt-a first.
	inserts := []string{"mkt-a", "mkt-b", "mkt-c", "mkt-b"}
	for i, id := range inserts {
		ts := now.Add(-time.Duration(len(inserts)-i) * time.Minute)
		if _, err := store.Insert(ctx, testObservation(id, ts, true, 0.03)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	ranks, err := store.TopMarkets(ctx, 24, 2)
	if err != nil {
		t.Fatalf("TopMarkets() error = %v", err)
	}

	if len(ranks) != 2 {
		t.Fatalf("got %d ranks, want 2 (limit)", len(ranks))
	}
	if ranks[0].MarketID != "mkt-b" || ranks[0].Opportunities != 2 {
		t.Errorf("ranks[0] = %+v, want mkt-b with 2", ranks[0])
	}
	if ranks[1].MarketID != "mkt-a" {
		t.Errorf("ranks[1].MarketID = %q, want mkt-a (first-recorded tie-break)", ranks[1].MarketID)
	}
}

func TestSQLiteStore_WindowRows_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		ts := now.Add(-time.Duration(i) * time.Hour)
		if _, err := store.Insert(ctx, testObservation("mkt-1", ts, false, 0)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	rows, err := store.WindowRows(ctx, 24)
	if err != nil {
		t.Fatalf("WindowRows() error = %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp.After(rows[i-1].Timestamp) {
			t.Fatalf("rows not in newest-first order: %v before %v", rows[i-1].Timestamp, rows[i].Timestamp)
		}
	}
}
