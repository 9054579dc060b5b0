package cmd

import (
	"fmt"
	"log/slog"

	"github.com/rustyeddy/livetrader/snapshot"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect portfolio snapshots",
	Long: `Inspect compressed portfolio snapshots written by trading sessions.

Subcommands:
  latest - Print the path of the most recent snapshot
  show   - Print the contents of a snapshot

Examples:
  livetrader snapshot latest --dir snapshots
  livetrader snapshot show --file snapshots/portfolio_snapshot_20260831_150405.json.gz`,
}

var snapshotLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the path of the most recent snapshot",
	RunE:  runSnapshotLatest,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the contents of a snapshot",
	RunE:  runSnapshotShow,
}

var (
	snapshotDir  string
	snapshotFile string
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotLatestCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)

	snapshotLatestCmd.Flags().StringVarP(&snapshotDir, "dir", "d", "snapshots", "snapshot directory")
	snapshotShowCmd.Flags().StringVarP(&snapshotFile, "file", "f", "", "path to snapshot file (required)")
	snapshotShowCmd.MarkFlagRequired("file")
}

func runSnapshotLatest(cmd *cobra.Command, args []string) error {
	store := snapshot.NewStore(snapshotDir, slog.Default())
	path := store.Latest()
	if path == "" {
		fmt.Printf("No snapshots found in %s\n", snapshotDir)
		return nil
	}
	fmt.Println(path)
	return nil
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	store := snapshot.NewStore("", slog.Default())
	view, err := store.Load(snapshotFile, false)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if view == nil {
		fmt.Printf("Snapshot not found: %s\n", snapshotFile)
		return nil
	}

	fmt.Printf("Snapshot: %s\n", snapshotFile)
	fmt.Printf("  Total Cash: $%.2f\n", view.TotalCash)
	fmt.Printf("  Available Cash: $%.2f\n", view.AvailableCash)
	if len(view.Positions) == 0 {
		fmt.Println("  No positions")
		return nil
	}
	for _, p := range view.Positions {
		fmt.Printf("  %s: total %d, available %d, avg %.4f, MV $%.2f\n",
			p.Symbol, p.TotalVolume, p.AvailableVolume, p.AvgPrice, p.MarketValue)
	}
	return nil
}
