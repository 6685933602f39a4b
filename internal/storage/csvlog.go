package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

// csvHeader is the fixed column order of the sequential log. The
// indexed store mirrors the same columns plus an identity key and a
// raw-payload column.
//
//nolint:gochecknoglobals // fixed schema
var csvHeader = []string{
	"timestamp",
	"market_id",
	"market_question",
	"yes_price",
	"no_price",
	"total_cost",
	"arbitrage_opportunity",
	"potential_profit",
	"yes_ask_price",
	"no_ask_price",
	"yes_bid_price",
	"no_bid_price",
}

// CSVLog is the append-only sequential sink: a header-plus-rows tabular
// file. Reopening an existing file appends; the header is written only
// when the file is new or empty.
type CSVLog struct {
	path   string
	file   *os.File
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewCSVLog opens (or creates) the sequential log at path.
func NewCSVLog(path string, logger *zap.Logger) (*CSVLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkCSV,
			Err: fmt.Errorf("create log directory: %w", err)}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkCSV,
			Err: fmt.Errorf("open log file: %w", err)}
	}

	l := &CSVLog{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
		logger: logger,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkCSV,
			Err: fmt.Errorf("stat log file: %w", err)}
	}
	if info.Size() == 0 {
		if err := l.writeRow(csvHeader); err != nil {
			file.Close()
			return nil, &types.PersistenceError{Op: "schema-init", Sink: types.SinkCSV,
				Err: fmt.Errorf("write header: %w", err)}
		}
	}

	logger.Info("csv-log-opened",
		zap.String("path", path),
		zap.Int64("existing-bytes", info.Size()))

	return l, nil
}

// Append writes one observation row and flushes it to the OS.
func (l *CSVLog) Append(obs *types.PriceObservation) error {
	if err := l.writeRow(observationRow(obs)); err != nil {
		return &types.PersistenceError{Op: "record", Sink: types.SinkCSV, Err: err}
	}
	return nil
}

func (l *CSVLog) writeRow(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Write(row); err != nil {
		return err
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the underlying file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// WriteCSV writes observations to w in the sequential log's format,
// header first. Used by on-demand exports so exported files and the
// live log share one schema.
func WriteCSV(w io.Writer, observations []types.PriceObservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range observations {
		if err := cw.Write(observationRow(&observations[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func observationRow(obs *types.PriceObservation) []string {
	return []string{
		obs.Timestamp.Format(time.RFC3339),
		obs.MarketID,
		obs.MarketQuestion,
		formatPrice(obs.YesPrice),
		formatPrice(obs.NoPrice),
		formatPrice(obs.TotalCost),
		formatFlag(obs.IsOpportunity),
		formatPrice(obs.PotentialProfit),
		formatPrice(obs.YesAskPrice),
		formatPrice(obs.NoAskPrice),
		formatPrice(obs.YesBidPrice),
		formatPrice(obs.NoBidPrice),
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
