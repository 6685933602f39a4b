package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-scanner",
	Short: "Polymarket arbitrage price scanner",
	Long: `Polymarket arbitrage price scanner that polls binary (Yes/No) markets,
flags mispricings where YES price + NO price < 1.0 - margin, and records
every observation into an append-only CSV log plus an indexed store.

The scanner discovers active markets from the Polymarket Gamma API, samples
their prices on a fixed interval, and answers retrospective statistics
queries over the recorded history. Trade execution is simulate-only.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
