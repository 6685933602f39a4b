package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/mselser95/polymarket-scanner/internal/app"
	"github.com/mselser95/polymarket-scanner/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the price scanner",
	Long: `Starts the Polymarket price scanner, which will:
1. Discover active binary markets from the Gamma API
2. Sample every monitored market's Yes/No prices on a fixed interval
3. Record every observation to the CSV log and the indexed store
4. Flag arbitrage opportunities (YES + NO < 1.0 - margin) and simulate trades

Set MARKET_IDS to monitor an explicit comma-separated market list instead
of discovering one.`,
	RunE: runScanner,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runScanner(cmd *cobra.Command, args []string) error {
	// Best effort: a missing .env file is fine, the environment rules
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
