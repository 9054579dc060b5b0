package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "livetrader",
	Short: "A live trading account ledger and order reconciliation engine",
	Long: `Livetrader keeps a local account of record synchronized with an
execution venue.

It provides tools for:
  - Position and cash accounting with a configurable fee model
  - Resource freezing for in-flight orders
  - Reconciling asynchronous venue callbacks against local intent
  - Exposure-cap rebalancing with proportional sell allocation
  - Compressed portfolio snapshots for crash recovery
  - Fill and equity journaling to CSV or SQLite

Complete documentation is available at https://github.com/rustyeddy/livetrader`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
