package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements IndexedStore on an embedded SQLite database.
// Timestamps are stored as RFC3339 UTC text so lexicographic comparison
// matches chronological order.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures
// the schema. Schema creation is idempotent: reopening an existing
// store preserves prior rows.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed,
			Err: fmt.Errorf("create data directory: %w", err)}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed,
			Err: fmt.Errorf("open database: %w", err)}
	}

	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed,
			Err: fmt.Errorf("set WAL mode: %w", err)}
	}

	s := &SQLiteStore{db: db, logger: logger, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed, Err: err}
	}

	logger.Info("sqlite-store-opened", zap.String("path", dbPath))

	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_data (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp             TEXT NOT NULL,
			market_id             TEXT NOT NULL,
			market_question       TEXT,
			yes_price             REAL,
			no_price              REAL,
			total_cost            REAL,
			arbitrage_opportunity INTEGER,
			potential_profit      REAL,
			yes_ask_price         REAL,
			no_ask_price          REAL,
			yes_bid_price         REAL,
			no_bid_price          REAL,
			raw_data              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_timestamp
			ON price_data(market_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_arbitrage
			ON price_data(arbitrage_opportunity, timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert appends one observation and returns its identity key.
func (s *SQLiteStore) Insert(ctx context.Context, obs *types.PriceObservation) (int64, error) {
	raw, err := json.Marshal(obs)
	if err != nil {
		return 0, &types.PersistenceError{Op: "record", Sink: types.SinkIndexed,
			Err: fmt.Errorf("marshal raw payload: %w", err)}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO price_data
			(timestamp, market_id, market_question, yes_price, no_price,
			 total_cost, arbitrage_opportunity, potential_profit,
			 yes_ask_price, no_ask_price, yes_bid_price, no_bid_price, raw_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.Timestamp.UTC().Format(time.RFC3339),
		obs.MarketID,
		obs.MarketQuestion,
		obs.YesPrice,
		obs.NoPrice,
		obs.TotalCost,
		boolToInt(obs.IsOpportunity),
		obs.PotentialProfit,
		obs.YesAskPrice,
		obs.NoAskPrice,
		obs.YesBidPrice,
		obs.NoBidPrice,
		string(raw),
	)
	if err != nil {
		return 0, &types.PersistenceError{Op: "record", Sink: types.SinkIndexed,
			Err: fmt.Errorf("insert observation: %w", err)}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &types.PersistenceError{Op: "record", Sink: types.SinkIndexed,
			Err: fmt.Errorf("last insert id: %w", err)}
	}
	return id, nil
}

const obsColumns = `timestamp, market_id, market_question, yes_price, no_price,
	total_cost, arbitrage_opportunity, potential_profit,
	yes_ask_price, no_ask_price, yes_bid_price, no_bid_price`

// GetByID returns the observation stored under the given identity key.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*types.PriceObservation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+obsColumns+` FROM price_data WHERE id = ?`, id)

	obs, err := scanObservation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("observation not found: %d", id)
	}
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	return obs, nil
}

// WindowStats aggregates opportunity rows inside the trailing window.
func (s *SQLiteStore) WindowStats(ctx context.Context, hoursBack int) (*types.AggregateStats, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC().Format(time.RFC3339)

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(potential_profit), 0),
			COALESCE(MAX(potential_profit), 0),
			COALESCE(MIN(potential_profit), 0),
			COUNT(DISTINCT market_id)
		FROM price_data
		WHERE arbitrage_opportunity = 1 AND timestamp >= ?`, cutoff)

	stats := &types.AggregateStats{WindowHours: hoursBack}
	err := row.Scan(&stats.TotalOpportunities, &stats.AvgProfit,
		&stats.MaxProfit, &stats.MinProfit, &stats.UniqueMarkets)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	return stats, nil
}

// WindowTotals counts all rows in the window and their total-cost spread.
func (s *SQLiteStore) WindowTotals(ctx context.Context, hoursBack int) (*WindowTotals, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC().Format(time.RFC3339)

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(arbitrage_opportunity), 0),
			COALESCE(AVG(total_cost), 0),
			COALESCE(MIN(total_cost), 0)
		FROM price_data
		WHERE timestamp >= ?`, cutoff)

	totals := &WindowTotals{}
	err := row.Scan(&totals.Records, &totals.Opportunities,
		&totals.AvgTotalCost, &totals.MinTotalCost)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	return totals, nil
}

// HourlyDistribution groups the window's rows by hour of day (UTC),
// ascending hour order.
func (s *SQLiteStore) HourlyDistribution(ctx context.Context, hoursBack int) ([]types.HourlyBucket, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC().Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			CAST(strftime('%H', timestamp) AS INTEGER) AS hour,
			COUNT(*),
			COALESCE(SUM(arbitrage_opportunity), 0)
		FROM price_data
		WHERE timestamp >= ?
		GROUP BY hour
		ORDER BY hour ASC`, cutoff)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	defer rows.Close()

	var buckets []types.HourlyBucket
	for rows.Next() {
		var b types.HourlyBucket
		if err := rows.Scan(&b.Hour, &b.Records, &b.Opportunities); err != nil {
			return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// TopMarkets ranks markets by opportunity count descending; ties keep
// first-recorded order (MIN(id) ascending).
func (s *SQLiteStore) TopMarkets(ctx context.Context, hoursBack, limit int) ([]types.MarketRank, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC().Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			market_id,
			COALESCE(market_question, ''),
			COUNT(*) AS opportunities,
			AVG(potential_profit),
			MAX(potential_profit)
		FROM price_data
		WHERE arbitrage_opportunity = 1 AND timestamp >= ?
		GROUP BY market_id, market_question
		ORDER BY opportunities DESC, MIN(id) ASC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	defer rows.Close()

	var ranks []types.MarketRank
	for rows.Next() {
		var r types.MarketRank
		if err := rows.Scan(&r.MarketID, &r.Question, &r.Opportunities, &r.AvgProfit, &r.MaxProfit); err != nil {
			return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
		}
		ranks = append(ranks, r)
	}
	return ranks, rows.Err()
}

// WindowRows returns the window's raw rows, newest first.
func (s *SQLiteStore) WindowRows(ctx context.Context, hoursBack int) ([]types.PriceObservation, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC().Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+obsColumns+` FROM price_data WHERE timestamp >= ? ORDER BY timestamp DESC`,
		cutoff)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	defer rows.Close()

	var observations []types.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows.Scan)
		if err != nil {
			return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
		}
		observations = append(observations, *obs)
	}
	return observations, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing-sqlite-store")
	return s.db.Close()
}

func scanObservation(scan func(...any) error) (*types.PriceObservation, error) {
	var obs types.PriceObservation
	var ts string
	var flag int

	err := scan(&ts, &obs.MarketID, &obs.MarketQuestion,
		&obs.YesPrice, &obs.NoPrice, &obs.TotalCost, &flag, &obs.PotentialProfit,
		&obs.YesAskPrice, &obs.NoAskPrice, &obs.YesBidPrice, &obs.NoBidPrice)
	if err != nil {
		return nil, err
	}

	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("parse stored timestamp %q: %w", ts, err)
	}
	obs.Timestamp = parsed
	obs.IsOpportunity = flag != 0
	return &obs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
