package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := &PostgresStore{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	return store, mock
}

func TestPostgresStore_Insert(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	obs := testObservation("mkt-1", ts, true, 0.05)

	mock.ExpectQuery("INSERT INTO price_data").
		WithArgs(
			obs.Timestamp.UTC(),
			obs.MarketID,
			obs.MarketQuestion,
			obs.YesPrice,
			obs.NoPrice,
			obs.TotalCost,
			1, // arbitrage_opportunity
			obs.PotentialProfit,
			obs.YesAskPrice,
			obs.NoAskPrice,
			obs.YesBidPrice,
			obs.NoBidPrice,
			sqlmock.AnyArg(), // raw_data JSON
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.Insert(context.Background(), obs)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id != 7 {
		t.Errorf("Insert() id = %d, want 7", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_Insert_Failure(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("INSERT INTO price_data").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Insert(context.Background(), testObservation("mkt-1", time.Now(), false, 0))
	if err == nil {
		t.Fatal("expected error")
	}

	var pe *types.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a PersistenceError", err)
	}
	if pe.Op != "record" || pe.Sink != types.SinkIndexed {
		t.Errorf("PersistenceError = %+v, want record/indexed", pe)
	}
}

func TestPostgresStore_WindowStats(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	mock.ExpectQuery("SELECT(.|\n)+FROM price_data").
		WithArgs(now.Add(-24 * time.Hour)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "avg", "max", "min", "distinct"},
		).AddRow(5, 0.03, 0.08, 0.01, 3))

	stats, err := store.WindowStats(context.Background(), 24)
	if err != nil {
		t.Fatalf("WindowStats() error = %v", err)
	}

	if stats.TotalOpportunities != 5 || stats.UniqueMarkets != 3 {
		t.Errorf("counts = %d/%d, want 5/3", stats.TotalOpportunities, stats.UniqueMarkets)
	}
	if stats.AvgProfit != 0.03 || stats.MaxProfit != 0.08 || stats.MinProfit != 0.01 {
		t.Errorf("profits = %v/%v/%v", stats.AvgProfit, stats.MaxProfit, stats.MinProfit)
	}
	if stats.WindowHours != 24 {
		t.Errorf("WindowHours = %d, want 24", stats.WindowHours)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_TopMarkets_QueryFailure(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM price_data").
		WillReturnError(errors.New("relation does not exist"))

	_, err := store.TopMarkets(context.Background(), 24, 10)
	if err == nil {
		t.Fatal("expected error")
	}

	var pe *types.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "query" {
		t.Errorf("error %v should be a query PersistenceError", err)
	}
}
