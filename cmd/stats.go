package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mselser95/polymarket-scanner/internal/report"
	"github.com/mselser95/polymarket-scanner/internal/storage"
	"github.com/mselser95/polymarket-scanner/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	statsHours  int
	statsExport bool
	statsOutput string

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Report statistics over the recorded price history",
		Long: `Reads the indexed store and prints aggregate statistics for the trailing
window: opportunity counts and profits, hour-of-day distribution, and the
markets with the most opportunities.

With --export the window's raw rows are written to a CSV file; the file
name is derived from the current time unless --output is given.`,
		RunE: runStats,
	}
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsHours, "hours", 24, "Trailing window size in hours")
	statsCmd.Flags().BoolVar(&statsExport, "export", false, "Export the window's rows to CSV")
	statsCmd.Flags().StringVar(&statsOutput, "output", "", "Export file path (default derived from timestamp)")
}

func runStats(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if statsHours <= 0 {
		return fmt.Errorf("--hours must be positive, got %d", statsHours)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reporter := report.NewReporter(store)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := printReport(ctx, reporter); err != nil {
		return err
	}

	if statsExport {
		return exportWindow(ctx, reporter)
	}
	return nil
}

// openStore opens the read side of the indexed store. A missing SQLite
// file means no history has ever been recorded: that is a hard error,
// not an empty report.
func openStore(cfg *config.Config, logger *zap.Logger) (storage.IndexedStore, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}

	if _, err := os.Stat(cfg.DBFile); err != nil {
		return nil, fmt.Errorf("no recorded data at %s, run the scanner first: %w", cfg.DBFile, err)
	}
	return storage.NewSQLiteStore(cfg.DBFile, logger)
}

func printReport(ctx context.Context, reporter *report.Reporter) error {
	summary, err := reporter.Summary(ctx, statsHours)
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}

	fmt.Printf("=== Price history, last %d hours ===\n", summary.WindowHours)
	fmt.Printf("Records:          %d\n", summary.TotalRecords)
	fmt.Printf("Opportunities:    %d (%.2f%%)\n", summary.TotalOpportunities, summary.OpportunityPercent)
	fmt.Printf("Unique markets:   %d\n", summary.UniqueMarkets)
	fmt.Printf("Avg profit:       %.2f%%\n", summary.AvgProfitPercent)
	fmt.Printf("Max profit:       %.2f%%\n", summary.MaxProfitPercent)
	fmt.Printf("Min profit:       %.2f%%\n", summary.MinProfitPercent)
	fmt.Printf("Avg total cost:   %.4f\n", summary.AvgTotalCost)
	fmt.Printf("Min total cost:   %.4f\n", summary.MinTotalCost)

	hourly, err := reporter.HourlyDistribution(ctx, statsHours)
	if err != nil {
		return fmt.Errorf("compute hourly distribution: %w", err)
	}
	if len(hourly) > 0 {
		fmt.Println("\n=== Records by hour of day (UTC) ===")
		for _, bucket := range hourly {
			fmt.Printf("%02d:00  records=%-6d opportunities=%d\n",
				bucket.Hour, bucket.Records, bucket.Opportunities)
		}
	}

	top, err := reporter.TopMarkets(ctx, statsHours, 10)
	if err != nil {
		return fmt.Errorf("compute top markets: %w", err)
	}
	if len(top) > 0 {
		fmt.Println("\n=== Top markets by opportunities ===")
		for i, rank := range top {
			fmt.Printf("%2d. [%s] %s\n", i+1, rank.MarketID, rank.Question)
			fmt.Printf("    opportunities=%d avg-profit=%.2f%% max-profit=%.2f%%\n",
				rank.Opportunities, rank.AvgProfit*100, rank.MaxProfit*100)
		}
	}

	return nil
}

func exportWindow(ctx context.Context, reporter *report.Reporter) error {
	path := statsOutput
	if path == "" {
		path = fmt.Sprintf("price_data_export_%s.csv", time.Now().UTC().Format("20060102_150405"))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := reporter.ExportCSV(ctx, file, statsHours); err != nil {
		file.Close()
		return fmt.Errorf("export window: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	fmt.Printf("\nExported window to %s\n", path)
	return nil
}
