// Package scanner runs the polling loop: discover (or take) a monitored
// market set, sample every market's Yes/No prices each pass, record
// every observation, and hand detected opportunities to the executor.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polymarket-scanner/internal/detector"
	"github.com/mselser95/polymarket-scanner/internal/report"
	"github.com/mselser95/polymarket-scanner/internal/storage"
	"github.com/mselser95/polymarket-scanner/pkg/cache"
	"github.com/mselser95/polymarket-scanner/pkg/healthprobe"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// reportWindowHours is the trailing window used for periodic and final
// statistics.
const reportWindowHours = 24

// questionCacheTTL bounds how long a resolved market question is reused
// before the next quote refreshes it.
const questionCacheTTL = time.Hour

// PriceSource provides market discovery and per-market price fetches.
type PriceSource interface {
	ListActiveMarkets(ctx context.Context, limit int) ([]types.MarketRef, error)
	FetchPrices(ctx context.Context, marketID string) (*types.PriceQuote, error)
}

// Executor handles detected opportunities.
type Executor interface {
	Execute(ctx context.Context, marketID string, yesPrice, noPrice float64) bool
}

// Config holds scanner configuration and collaborators.
type Config struct {
	Source   PriceSource
	Recorder storage.Recorder
	Reporter *report.Reporter
	Executor Executor
	Cache    cache.Cache
	Health   *healthprobe.HealthChecker
	Logger   *zap.Logger

	// MarketIDs is the explicit monitored set. Empty enables discovery.
	MarketIDs         []string
	MarketLimit       int
	MinProfitMargin   float64
	ScanInterval      time.Duration
	FetchConcurrency  int
	ReportEveryCycles int
}

// Scanner is the scan loop. One Run per process lifetime.
type Scanner struct {
	cfg    *Config
	logger *zap.Logger
	runID  string

	markets  []types.MarketRef
	now      func() time.Time
	reportWG sync.WaitGroup
}

// New creates the scanner.
func New(cfg *Config) *Scanner {
	return &Scanner{
		cfg:    cfg,
		logger: cfg.Logger,
		runID:  uuid.New().String(),
		now:    time.Now,
	}
}

// Run executes the loop until ctx is cancelled. Discovery yielding no
// markets is fatal: the error propagates and the process exits non-zero.
// On cancellation a final statistics summary is flushed before return.
func (s *Scanner) Run(ctx context.Context) error {
	setState(stateDiscovering)

	if err := s.resolveMarkets(ctx); err != nil {
		return err
	}

	s.logger.Info("scan-loop-started",
		zap.String("run-id", s.runID),
		zap.Int("markets", len(s.markets)),
		zap.Duration("interval", s.cfg.ScanInterval),
		zap.Float64("min-profit-margin", s.cfg.MinProfitMargin))

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			break
		}

		setState(stateScanning)
		s.scanPass(ctx, cycle)

		s.cfg.Health.RecordScanCycle(s.now())
		ScanCyclesTotal.Inc()

		if s.cfg.ReportEveryCycles > 0 && cycle%s.cfg.ReportEveryCycles == 0 {
			// Reporting must never stall the next pass. The goroutine is
			// tracked so Run does not return while a query is in flight
			// against sinks the caller is about to close.
			s.reportWG.Add(1)
			go func(cycle int) {
				defer s.reportWG.Done()
				s.reportStats(cycle)
			}(cycle)
		}

		setState(stateSleeping)
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	setState(stateIdle)
	s.reportWG.Wait()
	s.flushFinalStats()

	s.logger.Info("scan-loop-stopped", zap.String("run-id", s.runID))
	return nil
}

// resolveMarkets fixes the monitored set for the run: the explicit list
// when configured, otherwise one discovery call. The set keeps its
// original order for the whole run.
func (s *Scanner) resolveMarkets(ctx context.Context) error {
	if len(s.cfg.MarketIDs) > 0 {
		now := s.now()
		refs := make([]types.MarketRef, 0, len(s.cfg.MarketIDs))
		for _, id := range s.cfg.MarketIDs {
			refs = append(refs, types.MarketRef{ID: id, DiscoveredAt: now})
		}
		s.markets = refs

		s.logger.Info("monitoring-explicit-markets", zap.Int("count", len(refs)))
		return nil
	}

	refs, err := s.cfg.Source.ListActiveMarkets(ctx, s.cfg.MarketLimit)
	if err != nil {
		return fmt.Errorf("discover markets: %w", err)
	}
	if len(refs) == 0 {
		s.logger.Error("discovery-returned-no-markets")
		return fmt.Errorf("no active markets discovered, nothing to scan")
	}
	s.markets = refs

	s.logger.Info("markets-discovered", zap.Int("count", len(refs)))
	return nil
}

// scanPass samples every monitored market once, in fixed order. Fetch
// failures are logged and skipped; every successful quote is recorded.
func (s *Scanner) scanPass(ctx context.Context, cycle int) {
	start := s.now()

	g := &errgroup.Group{}
	g.SetLimit(s.cfg.FetchConcurrency)

	for i := range s.markets {
		// Stop handing out work once the run is cancelled; in-flight
		// fetches drain below.
		if ctx.Err() != nil {
			break
		}

		ref := s.markets[i]
		g.Go(func() error {
			s.scanMarket(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	ScanPassDurationSeconds.Observe(time.Since(start).Seconds())

	s.logger.Debug("scan-pass-complete",
		zap.Int("cycle", cycle),
		zap.Int("markets", len(s.markets)),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Scanner) scanMarket(ctx context.Context, ref types.MarketRef) {
	quote, err := s.cfg.Source.FetchPrices(ctx, ref.ID)
	if err != nil {
		FetchFailuresTotal.Inc()
		s.logger.Warn("market-fetch-failed",
			zap.String("market-id", ref.ID),
			zap.Error(err))
		return
	}

	s.resolveQuestion(&ref, quote)

	obs := types.NewPriceObservation(ref, quote, s.cfg.MinProfitMargin, s.now())
	MarketsScannedTotal.Inc()

	if err := s.cfg.Recorder.Record(ctx, obs); err != nil {
		s.logger.Error("observation-record-failed",
			zap.String("market-id", ref.ID),
			zap.Error(err))
	}

	verdict := detector.Evaluate(quote.YesPrice, quote.NoPrice, s.cfg.MinProfitMargin)
	if !verdict.IsOpportunity {
		return
	}

	OpportunitiesDetectedTotal.Inc()
	s.logger.Info("arbitrage-opportunity",
		zap.String("event-id", uuid.New().String()),
		zap.String("market-id", ref.ID),
		zap.String("question", obs.MarketQuestion),
		zap.Float64("yes-price", quote.YesPrice),
		zap.Float64("no-price", quote.NoPrice),
		zap.Float64("total-cost", obs.TotalCost),
		zap.Float64("potential-profit", verdict.Profit))

	s.cfg.Executor.Execute(ctx, ref.ID, quote.YesPrice, quote.NoPrice)
}

// resolveQuestion fills a missing question label on explicit-list refs,
// preferring the cached value and caching fresh ones from the quote.
func (s *Scanner) resolveQuestion(ref *types.MarketRef, quote *types.PriceQuote) {
	if ref.Question != "" {
		return
	}

	key := "question:" + ref.ID
	if cached, ok := s.cfg.Cache.Get(key); ok {
		if q, ok := cached.(string); ok && quote.Question == "" {
			quote.Question = q
		}
		return
	}
	if quote.Question != "" {
		s.cfg.Cache.Set(key, quote.Question, questionCacheTTL)
	}
}

// reportStats logs the trailing-window aggregates. Runs off the scan
// goroutine; failures are logged and dropped.
func (s *Scanner) reportStats(cycle int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := s.cfg.Reporter.Summary(ctx, reportWindowHours)
	if err != nil {
		s.logger.Warn("periodic-report-failed", zap.Error(err))
		return
	}

	s.logger.Info("periodic-statistics",
		zap.Int("cycle", cycle),
		zap.Int("window-hours", summary.WindowHours),
		zap.Int("records", summary.TotalRecords),
		zap.Int("opportunities", summary.TotalOpportunities),
		zap.Float64("opportunity-percent", summary.OpportunityPercent),
		zap.Int("unique-markets", summary.UniqueMarkets),
		zap.Float64("avg-profit-percent", summary.AvgProfitPercent),
		zap.Float64("max-profit-percent", summary.MaxProfitPercent))
}

// flushFinalStats emits the closing summary after the loop stops. Uses a
// fresh context: the run context is already cancelled here.
func (s *Scanner) flushFinalStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := s.cfg.Reporter.Summary(ctx, reportWindowHours)
	if err != nil {
		s.logger.Warn("final-report-failed", zap.Error(err))
		return
	}

	s.logger.Info("final-statistics",
		zap.String("run-id", s.runID),
		zap.Int("window-hours", summary.WindowHours),
		zap.Int("records", summary.TotalRecords),
		zap.Int("opportunities", summary.TotalOpportunities),
		zap.Float64("opportunity-percent", summary.OpportunityPercent),
		zap.Int("unique-markets", summary.UniqueMarkets),
		zap.Float64("avg-profit-percent", summary.AvgProfitPercent),
		zap.Float64("max-profit-percent", summary.MaxProfitPercent),
		zap.Float64("avg-total-cost", summary.AvgTotalCost),
		zap.Float64("min-total-cost", summary.MinTotalCost))
}
