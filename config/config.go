package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete trading-session configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
}

// AccountConfig contains initial cash and the fee model
type AccountConfig struct {
	AvailableCash        float64 `json:"available_cash" yaml:"available_cash"`
	CommissionRate       float64 `json:"commission_rate" yaml:"commission_rate"`
	StampDutyRate        float64 `json:"stamp_duty_rate" yaml:"stamp_duty_rate"`
	MinimumCommissionFee float64 `json:"minimum_commission_fee" yaml:"minimum_commission_fee"`
	SlippageRate         float64 `json:"slippage_rate" yaml:"slippage_rate"`
	T1Settlement         bool    `json:"t1_settlement" yaml:"t1_settlement"`
}

// RiskConfig contains portfolio-level limits
type RiskConfig struct {
	MaxPortfolioExposure float64 `json:"max_portfolio_exposure" yaml:"max_portfolio_exposure"`
}

// SnapshotConfig locates the snapshot directory
type SnapshotConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
}

// EngineConfig contains engine timing parameters as duration strings,
// e.g. "500ms", "30s"
type EngineConfig struct {
	PollInterval     string `json:"poll_interval" yaml:"poll_interval"`
	MaxWait          string `json:"max_wait" yaml:"max_wait"`
	WatchdogInterval string `json:"watchdog_interval" yaml:"watchdog_interval"`
}

// ParsePollInterval converts the poll interval string to time.Duration
func (ec EngineConfig) ParsePollInterval() (time.Duration, error) {
	return parseDuration(ec.PollInterval)
}

// ParseMaxWait converts the max wait string to time.Duration
func (ec EngineConfig) ParseMaxWait() (time.Duration, error) {
	return parseDuration(ec.MaxWait)
}

// ParseWatchdogInterval converts the watchdog interval string to
// time.Duration
func (ec EngineConfig) ParseWatchdogInterval() (time.Duration, error) {
	return parseDuration(ec.WatchdogInterval)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file as YAML or JSON based on the
// file extension
func (c *Config) SaveToFile(filename string) error {
	var data []byte
	var err error

	if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Account.AvailableCash <= 0 {
		return fmt.Errorf("account available_cash must be positive")
	}
	if c.Account.CommissionRate < 0 || c.Account.StampDutyRate < 0 {
		return fmt.Errorf("fee rates must be non-negative")
	}
	if c.Account.MinimumCommissionFee < 0 {
		return fmt.Errorf("minimum_commission_fee must be non-negative")
	}
	if c.Risk.MaxPortfolioExposure <= 0 || c.Risk.MaxPortfolioExposure > 1 {
		return fmt.Errorf("max_portfolio_exposure must be in (0, 1]")
	}
	if c.Snapshot.Dir == "" {
		return fmt.Errorf("snapshot dir is required")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("fills_file and equity_file required for CSV journal")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("db_path required for SQLite journal")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal type must be 'csv', 'sqlite' or 'none'")
	}

	durations := map[string]string{
		"poll_interval":     c.Engine.PollInterval,
		"max_wait":          c.Engine.MaxWait,
		"watchdog_interval": c.Engine.WatchdogInterval,
	}
	for name, val := range durations {
		if _, err := parseDuration(val); err != nil {
			return fmt.Errorf("engine %s: %w", name, err)
		}
	}

	return nil
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			AvailableCash:        1000000,
			CommissionRate:       0.00025,
			StampDutyRate:        0.001,
			MinimumCommissionFee: 5.0,
			SlippageRate:         0.001,
			T1Settlement:         true,
		},
		Risk: RiskConfig{
			MaxPortfolioExposure: 0.80,
		},
		Snapshot: SnapshotConfig{
			Dir: "snapshots",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "trader.db",
		},
		Engine: EngineConfig{
			PollInterval:     "500ms",
			MaxWait:          "30s",
			WatchdogInterval: "60s",
		},
	}
}
