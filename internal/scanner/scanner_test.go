package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-scanner/internal/report"
	"github.com/mselser95/polymarket-scanner/internal/storage"
	"github.com/mselser95/polymarket-scanner/pkg/healthprobe"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu         sync.Mutex
	refs       []types.MarketRef
	listErr    error
	listCalls  int
	quotes     map[string]*types.PriceQuote
	fetchErrs  map[string]error
	fetchCalls map[string]int
}

func (f *fakeSource) ListActiveMarkets(ctx context.Context, limit int) ([]types.MarketRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.refs, f.listErr
}

func (f *fakeSource) FetchPrices(ctx context.Context, marketID string) (*types.PriceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchCalls == nil {
		f.fetchCalls = make(map[string]int)
	}
	f.fetchCalls[marketID]++
	if err, ok := f.fetchErrs[marketID]; ok {
		return nil, err
	}
	quote := *f.quotes[marketID]
	return &quote, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []*types.PriceObservation
}

func (f *fakeRecorder) Record(ctx context.Context, obs *types.PriceObservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, obs)
	return nil
}

func (f *fakeRecorder) Close() error { return nil }

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorded)
}

func (f *fakeRecorder) snapshot() []*types.PriceObservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.PriceObservation, len(f.recorded))
	copy(out, f.recorded)
	return out
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeExecutor) Execute(ctx context.Context, marketID string, yesPrice, noPrice float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, marketID)
	return true
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]interface{})}
}

func (c *mapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(key string, value interface{}, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return true
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *mapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]interface{})
}

func (c *mapCache) Close() {}

type emptyQuerier struct{}

func (emptyQuerier) WindowStats(ctx context.Context, hoursBack int) (*types.AggregateStats, error) {
	return &types.AggregateStats{WindowHours: hoursBack}, nil
}

func (emptyQuerier) WindowTotals(ctx context.Context, hoursBack int) (*storage.WindowTotals, error) {
	return &storage.WindowTotals{}, nil
}

func (emptyQuerier) HourlyDistribution(ctx context.Context, hoursBack int) ([]types.HourlyBucket, error) {
	return nil, nil
}

func (emptyQuerier) TopMarkets(ctx context.Context, hoursBack, limit int) ([]types.MarketRank, error) {
	return nil, nil
}

func (emptyQuerier) WindowRows(ctx context.Context, hoursBack int) ([]types.PriceObservation, error) {
	return nil, nil
}

// slowQuerier blocks the first WindowStats call until release is
// closed; later calls return immediately.
type slowQuerier struct {
	emptyQuerier
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (q *slowQuerier) WindowStats(ctx context.Context, hoursBack int) (*types.AggregateStats, error) {
	q.mu.Lock()
	q.calls++
	first := q.calls == 1
	q.mu.Unlock()

	if first {
		close(q.started)
		<-q.release
	}
	return &types.AggregateStats{WindowHours: hoursBack}, nil
}

func testConfig(source *fakeSource, recorder *fakeRecorder, exec *fakeExecutor) *Config {
	return &Config{
		Source:            source,
		Recorder:          recorder,
		Reporter:          report.NewReporter(emptyQuerier{}),
		Executor:          exec,
		Cache:             newMapCache(),
		Health:            healthprobe.New(),
		Logger:            zap.NewNop(),
		MarketLimit:       10,
		MinProfitMargin:   0.01,
		ScanInterval:      5 * time.Millisecond,
		FetchConcurrency:  1,
		ReportEveryCycles: 0,
	}
}

// runUntil runs the scanner until cond holds (or the deadline passes)
// and returns Run's error.
func runUntil(t *testing.T, s *Scanner, cond func() bool) error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			cancel()
			t.Fatal("condition not reached before deadline")
		case <-time.After(2 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
		return nil
	}
}

func TestScanner_RecordsAllObservations(t *testing.T) {
	source := &fakeSource{
		refs: []types.MarketRef{
			{ID: "mkt-cheap", Question: "Cheap?"},
			{ID: "mkt-fair", Question: "Fair?"},
		},
		quotes: map[string]*types.PriceQuote{
			"mkt-cheap": {YesPrice: 0.40, NoPrice: 0.55},
			"mkt-fair":  {YesPrice: 0.50, NoPrice: 0.50},
		},
	}
	recorder := &fakeRecorder{}
	exec := &fakeExecutor{}

	s := New(testConfig(source, recorder, exec))
	err := runUntil(t, s, func() bool { return recorder.count() >= 2 })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	seen := map[string]bool{}
	for _, obs := range recorder.snapshot() {
		seen[obs.MarketID] = true
		if obs.MarketID == "mkt-fair" && obs.IsOpportunity {
			t.Error("fair market must not be flagged")
		}
		if obs.MarketID == "mkt-cheap" && !obs.IsOpportunity {
			t.Error("cheap market must be flagged")
		}
	}
	if !seen["mkt-cheap"] || !seen["mkt-fair"] {
		t.Errorf("both markets must be recorded, saw %v", seen)
	}

	for _, id := range exec.executed() {
		if id != "mkt-cheap" {
			t.Errorf("executor invoked for %q, want only opportunities", id)
		}
	}
	if len(exec.executed()) == 0 {
		t.Error("executor was never invoked for the opportunity")
	}
}

func TestScanner_FetchErrorsAreSkipped(t *testing.T) {
	source := &fakeSource{
		refs: []types.MarketRef{
			{ID: "mkt-bad"},
			{ID: "mkt-good"},
		},
		quotes: map[string]*types.PriceQuote{
			"mkt-good": {YesPrice: 0.50, NoPrice: 0.50},
		},
		fetchErrs: map[string]error{
			"mkt-bad": &types.FetchError{Kind: types.FetchTransport, MarketID: "mkt-bad", Err: errors.New("boom")},
		},
	}
	recorder := &fakeRecorder{}

	s := New(testConfig(source, recorder, &fakeExecutor{}))
	err := runUntil(t, s, func() bool { return recorder.count() >= 1 })
	if err != nil {
		t.Fatalf("Run() error = %v (per-market failures must not abort the loop)", err)
	}

	for _, obs := range recorder.snapshot() {
		if obs.MarketID == "mkt-bad" {
			t.Fatal("failed market must not produce an observation")
		}
	}

	source.mu.Lock()
	badCalls := source.fetchCalls["mkt-bad"]
	source.mu.Unlock()
	if badCalls == 0 {
		t.Error("failed market must still be attempted")
	}
}

func TestScanner_EmptyDiscoveryIsFatal(t *testing.T) {
	source := &fakeSource{refs: nil}
	s := New(testConfig(source, &fakeRecorder{}, &fakeExecutor{}))

	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when discovery yields no markets")
	}
}

func TestScanner_DiscoveryErrorIsFatal(t *testing.T) {
	source := &fakeSource{listErr: errors.New("gamma down")}
	s := New(testConfig(source, &fakeRecorder{}, &fakeExecutor{}))

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected discovery failure to propagate")
	}
}

func TestScanner_ExplicitListSkipsDiscovery(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*types.PriceQuote{
			"mkt-1": {Question: "From the quote", YesPrice: 0.50, NoPrice: 0.50},
		},
	}
	recorder := &fakeRecorder{}

	cfg := testConfig(source, recorder, &fakeExecutor{})
	cfg.MarketIDs = []string{"mkt-1"}

	s := New(cfg)
	err := runUntil(t, s, func() bool { return recorder.count() >= 2 })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	source.mu.Lock()
	listCalls := source.listCalls
	source.mu.Unlock()
	if listCalls != 0 {
		t.Errorf("discovery called %d times, want 0 with an explicit list", listCalls)
	}

	// The question is not in the explicit list; it must be resolved from
	// the quote and carried on the observation.
	for _, obs := range recorder.snapshot() {
		if obs.MarketQuestion != "From the quote" {
			t.Errorf("MarketQuestion = %q, want resolved from quote", obs.MarketQuestion)
		}
	}
}

func TestScanner_WaitsForInFlightReportBeforeReturning(t *testing.T) {
	source := &fakeSource{
		refs: []types.MarketRef{{ID: "mkt-1"}},
		quotes: map[string]*types.PriceQuote{
			"mkt-1": {YesPrice: 0.50, NoPrice: 0.50},
		},
	}
	querier := &slowQuerier{started: make(chan struct{}), release: make(chan struct{})}

	cfg := testConfig(source, &fakeRecorder{}, &fakeExecutor{})
	cfg.Reporter = report.NewReporter(querier)
	cfg.ReportEveryCycles = 1

	s := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-querier.started:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("periodic report never started")
	}
	cancel()

	// The caller closes the sinks as soon as Run returns, so Run must
	// not return while a report query is still in flight.
	select {
	case <-done:
		t.Fatal("Run() returned with a report query in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(querier.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the report completed")
	}
}

func TestScanner_ReportsScanCyclesToHealthProbe(t *testing.T) {
	source := &fakeSource{
		refs: []types.MarketRef{{ID: "mkt-1"}},
		quotes: map[string]*types.PriceQuote{
			"mkt-1": {YesPrice: 0.50, NoPrice: 0.50},
		},
	}
	recorder := &fakeRecorder{}
	cfg := testConfig(source, recorder, &fakeExecutor{})

	s := New(cfg)
	err := runUntil(t, s, func() bool { return recorder.count() >= 3 })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	cfg.Health.Health()(w, req)

	var resp healthprobe.HealthResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.ScanCycles < 3 {
		t.Errorf("ScanCycles = %d, want >= 3", resp.ScanCycles)
	}
	if resp.LastScanAt == "" {
		t.Error("LastScanAt must be set after completed passes")
	}
}
