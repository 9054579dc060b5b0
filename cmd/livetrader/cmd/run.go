package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/livetrader/broker/sim"
	"github.com/rustyeddy/livetrader/config"
	"github.com/rustyeddy/livetrader/engine"
	"github.com/rustyeddy/livetrader/journal"
	"github.com/rustyeddy/livetrader/order"
	"github.com/rustyeddy/livetrader/portfolio"
	"github.com/rustyeddy/livetrader/snapshot"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a paper trading session from a config file",
	Long: `Run a demonstration trading session against the built-in paper venue
using settings from a configuration file.

The session submits a sample order batch, waits for fills, marks prices,
rebalances exposure back under the configured cap, cancels whatever is
still open and persists a snapshot.

Example:
  livetrader run --config session.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("Running paper session with config: %s\n", runConfigPath)
	fmt.Printf("  Cash: $%.2f  Exposure cap: %.0f%%  T+1: %v\n",
		cfg.Account.AvailableCash, cfg.Risk.MaxPortfolioExposure*100, cfg.Account.T1Settlement)
	fmt.Println()

	eng, j, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	if err := eng.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	ctx := context.Background()
	if err := eng.SyncAccount(ctx); err != nil {
		return fmt.Errorf("sync account: %w", err)
	}

	// Sample batch: one buy per demo symbol, sized off available cash.
	demo := []struct {
		symbol string
		price  float64
	}{
		{"600000", 10.50},
		{"000001", 25.20},
	}
	cash := eng.Ledger().AvailableCash()
	for _, d := range demo {
		volume := int64(cash/float64(len(demo))/d.price/100) * 100
		if volume <= 0 {
			continue
		}
		o := order.New(d.symbol, order.Buy, order.Limit, d.price, volume)
		ok, err := eng.Submit(o)
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		if !ok {
			fmt.Printf("  order for %s failed pre-trade check, skipped\n", d.symbol)
			continue
		}
		fmt.Printf("  queued BUY %s x%d @ %.2f\n", d.symbol, volume, d.price)
	}

	eng.Dispatch(ctx)
	eng.AwaitCompletion(ctx, 10*time.Second)

	if err := eng.MarkPrices(func(symbol string) (float64, bool) {
		for _, d := range demo {
			if d.symbol == symbol {
				return d.price, true
			}
		}
		return 0, false
	}); err != nil {
		slog.Warn("mark prices failed", "err", err)
	}

	if err := eng.RebalanceExposure(ctx); err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}

	if err := eng.PostMarket(ctx); err != nil {
		slog.Warn("post-market routine failed", "err", err)
	}
	if err := eng.Close(); err != nil {
		return fmt.Errorf("close engine: %w", err)
	}

	view := eng.Ledger().View()
	fmt.Printf("\nFinal Results:\n")
	fmt.Printf("  Total Cash: $%.2f\n", view.TotalCash)
	fmt.Printf("  Available Cash: $%.2f\n", view.AvailableCash)
	for _, p := range view.Positions {
		fmt.Printf("  %s: %d @ %.2f (MV $%.2f)\n",
			p.Symbol, p.TotalVolume, p.AvgPrice, p.MarketValue)
	}
	fmt.Printf("\nSnapshots saved under: %s\n", cfg.Snapshot.Dir)

	return nil
}

func buildEngine(cfg *config.Config) (*engine.Engine, journal.Journal, error) {
	fees := portfolio.FeeModel{
		CommissionRate: cfg.Account.CommissionRate,
		StampDutyRate:  cfg.Account.StampDutyRate,
		MinCommission:  cfg.Account.MinimumCommissionFee,
		SlippageRate:   cfg.Account.SlippageRate,
	}
	ledger := portfolio.NewLedger(cfg.Account.AvailableCash, fees, cfg.Account.T1Settlement, slog.Default())

	var j journal.Journal
	var err error
	switch cfg.Journal.Type {
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.EquityFile)
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
	default:
		j = journal.Discard
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create journal: %w", err)
	}

	poll, _ := cfg.Engine.ParsePollInterval()
	maxWait, _ := cfg.Engine.ParseMaxWait()
	watchdog, _ := cfg.Engine.ParseWatchdogInterval()

	venue := sim.New(cfg.Account.AvailableCash, nil)
	venue.FillDelay = 10 * time.Millisecond
	venue.PartialSteps = 2

	store := snapshot.NewStore(cfg.Snapshot.Dir, slog.Default())

	eng := engine.New(ledger, venue, j, store, engine.Config{
		PollInterval:     poll,
		MaxWait:          maxWait,
		WatchdogInterval: watchdog,
		MaxExposure:      cfg.Risk.MaxPortfolioExposure,
	}, slog.Default())

	return eng, j, nil
}
