package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore implements IndexedStore on PostgreSQL, for deployments
// where the history should live in a shared database instead of a
// local file. Row uniqueness under concurrent writers comes from the
// BIGSERIAL identity key.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and ensures the schema.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed,
			Err: fmt.Errorf("open database: %w", err)}
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed,
			Err: fmt.Errorf("ping database: %w", err)}
	}

	s := &PostgresStore{db: db, logger: cfg.Logger, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkIndexed, Err: err}
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return s, nil
}

func (s *PostgresStore) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_data (
			id                    BIGSERIAL PRIMARY KEY,
			timestamp             TIMESTAMPTZ NOT NULL,
			market_id             TEXT NOT NULL,
			market_question       TEXT,
			yes_price             DOUBLE PRECISION,
			no_price              DOUBLE PRECISION,
			total_cost            DOUBLE PRECISION,
			arbitrage_opportunity SMALLINT,
			potential_profit      DOUBLE PRECISION,
			yes_ask_price         DOUBLE PRECISION,
			no_ask_price          DOUBLE PRECISION,
			yes_bid_price         DOUBLE PRECISION,
			no_bid_price          DOUBLE PRECISION,
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
func (s *PostgresStore) Insert(ctx context.Context, obs *types.PriceObservation) (int64, error) {
	raw, err := json.Marshal(obs)
	if err != nil {
		return 0, &types.PersistenceError{Op: "record", Sink: types.SinkIndexed,
			Err: fmt.Errorf("marshal raw payload: %w", err)}
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO price_data
			(timestamp, market_id, market_question, yes_price, no_price,
			 total_cost, arbitrage_opportunity, potential_profit,
			 yes_ask_price, no_ask_price, yes_bid_price, no_bid_price, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		obs.Timestamp.UTC(),
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
	).Scan(&id)
	if err != nil {
		return 0, &types.PersistenceError{Op: "record", Sink: types.SinkIndexed,
			Err: fmt.Errorf("insert observation: %w", err)}
	}
	return id, nil
}

// GetByID returns the observation stored under the given identity key.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*types.PriceObservation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+obsColumns+` FROM price_data WHERE id = $1`, id)

	obs, err := scanPgObservation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("observation not found: %d", id)
	}
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	return obs, nil
}

// WindowStats aggregates opportunity rows inside the trailing window.
func (s *PostgresStore) WindowStats(ctx context.Context, hoursBack int) (*types.AggregateStats, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC()

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(potential_profit), 0),
			COALESCE(MAX(potential_profit), 0),
			COALESCE(MIN(potential_profit), 0),
			COUNT(DISTINCT market_id)
		FROM price_data
		WHERE arbitrage_opportunity = 1 AND timestamp >= $1`, cutoff)

	stats := &types.AggregateStats{WindowHours: hoursBack}
	err := row.Scan(&stats.TotalOpportunities, &stats.AvgProfit,
		&stats.MaxProfit, &stats.MinProfit, &stats.UniqueMarkets)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	return stats, nil
}

// WindowTotals counts all rows in the window and their total-cost spread.
func (s *PostgresStore) WindowTotals(ctx context.Context, hoursBack int) (*WindowTotals, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC()

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(arbitrage_opportunity), 0),
			COALESCE(AVG(total_cost), 0),
			COALESCE(MIN(total_cost), 0)
		FROM price_data
		WHERE timestamp >= $1`, cutoff)

	totals := &WindowTotals{}
	err := row.Scan(&totals.Records, &totals.Opportunities,
		&totals.AvgTotalCost, &totals.MinTotalCost)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	return totals, nil
}

// HourlyDistribution groups the window's rows by hour of day (UTC).
func (s *PostgresStore) HourlyDistribution(ctx context.Context, hoursBack int) ([]types.HourlyBucket, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			EXTRACT(HOUR FROM timestamp AT TIME ZONE 'UTC')::INT AS hour,
			COUNT(*),
			COALESCE(SUM(arbitrage_opportunity), 0)
		FROM price_data
		WHERE timestamp >= $1
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
// first-recorded order.
func (s *PostgresStore) TopMarkets(ctx context.Context, hoursBack, limit int) ([]types.MarketRank, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			market_id,
			COALESCE(market_question, ''),
			COUNT(*) AS opportunities,
			AVG(potential_profit),
			MAX(potential_profit)
		FROM price_data
		WHERE arbitrage_opportunity = 1 AND timestamp >= $1
		GROUP BY market_id, market_question
		ORDER BY opportunities DESC, MIN(id) ASC
		LIMIT $2`, cutoff, limit)
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
func (s *PostgresStore) WindowRows(ctx context.Context, hoursBack int) ([]types.PriceObservation, error) {
	cutoff := windowCutoff(s.now(), hoursBack).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+obsColumns+` FROM price_data WHERE timestamp >= $1 ORDER BY timestamp DESC`,
		cutoff)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
	}
	defer rows.Close()

	var observations []types.PriceObservation
	for rows.Next() {
		obs, err := scanPgObservation(rows.Scan)
		if err != nil {
			return nil, &types.PersistenceError{Op: "query", Sink: types.SinkIndexed, Err: err}
		}
		observations = append(observations, *obs)
	}
	return observations, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing-postgres-store")
	return s.db.Close()
}

func scanPgObservation(scan func(...any) error) (*types.PriceObservation, error) {
	var obs types.PriceObservation
	var flag int

	err := scan(&obs.Timestamp, &obs.MarketID, &obs.MarketQuestion,
		&obs.YesPrice, &obs.NoPrice, &obs.TotalCost, &flag, &obs.PotentialProfit,
		&obs.YesAskPrice, &obs.NoAskPrice, &obs.YesBidPrice, &obs.NoBidPrice)
	if err != nil {
		return nil, err
	}
	obs.IsOpportunity = flag != 0
	return &obs, nil
}
