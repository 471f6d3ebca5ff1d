// Package config defines all configuration for the trading engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// every field overridable via TRADER_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML
// file structure.
type Config struct {
	EngineID   string           `mapstructure:"engine_id"`
	Markets    []MarketConfig   `mapstructure:"markets"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// MarketConfig names one (exchange, symbol) pair the engine spawns a
// trader for, and how that trader sources its market data.
type MarketConfig struct {
	Exchange string `mapstructure:"exchange"`
	Symbol   string `mapstructure:"symbol"`

	DataSource string `mapstructure:"data_source"` // "historic_csv" | "live_ws" | "rest_poll"
	CSVPath    string `mapstructure:"csv_path"`
	WSURL      string `mapstructure:"ws_url"`
	RESTURL    string `mapstructure:"rest_url"`
}

// PortfolioConfig tunes the shared Portfolio state machine.
//
//   - StartingCash: seeds a fresh engine only; the repository is
//     authoritative for restarts.
//   - DefaultOrderValue: notional the default Allocator targets per entry.
//   - RiskFreeRate: subtracted from mean return in the Sharpe ratio.
//   - MaxTotalExposure: if > 0, wires a MaxExposureRisk evaluator on top
//     of the default risk pass-through.
type PortfolioConfig struct {
	StartingCash      float64 `mapstructure:"starting_cash"`
	DefaultOrderValue float64 `mapstructure:"default_order_value"`
	RiskFreeRate      float64 `mapstructure:"risk_free_rate"`
	MaxTotalExposure  float64 `mapstructure:"max_total_exposure"`
}

// StrategyConfig tunes the illustrative RSIStrategy.
type StrategyConfig struct {
	RSIPeriod int `mapstructure:"rsi_period"`
}

// ExecutionConfig tunes SimulatedExecution's fee model and fill-latency
// rate limiter.
type ExecutionConfig struct {
	ExchangeFeeRate float64 `mapstructure:"exchange_fee_rate"`
	SlippageRate    float64 `mapstructure:"slippage_rate"`
	NetworkFeeFlat  float64 `mapstructure:"network_fee_flat"`
	FillsPerSecond  float64 `mapstructure:"fills_per_second"`
	FillBurst       int     `mapstructure:"fill_burst"`
}

// RepositoryConfig selects and configures the persistence backend.
type RepositoryConfig struct {
	Backend string `mapstructure:"backend"` // "memory" | "file" | "redis" | "sqlite"

	FileDir    string `mapstructure:"file_dir"`
	RedisAddr  string `mapstructure:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with TRADER_* environment
// overrides, e.g. TRADER_PORTFOLIO_STARTING_CASH.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.EngineID == "" {
		return fmt.Errorf("engine_id is required")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}
	for i, m := range c.Markets {
		if m.Exchange == "" || m.Symbol == "" {
			return fmt.Errorf("markets[%d]: exchange and symbol are required", i)
		}
		switch m.DataSource {
		case "historic_csv":
			if m.CSVPath == "" {
				return fmt.Errorf("markets[%d]: csv_path is required for historic_csv", i)
			}
		case "live_ws":
			if m.WSURL == "" {
				return fmt.Errorf("markets[%d]: ws_url is required for live_ws", i)
			}
		case "rest_poll":
			if m.RESTURL == "" {
				return fmt.Errorf("markets[%d]: rest_url is required for rest_poll", i)
			}
		default:
			return fmt.Errorf("markets[%d]: data_source must be one of historic_csv, live_ws, rest_poll", i)
		}
	}
	if c.Portfolio.StartingCash <= 0 {
		return fmt.Errorf("portfolio.starting_cash must be > 0")
	}
	if c.Portfolio.DefaultOrderValue <= 0 {
		return fmt.Errorf("portfolio.default_order_value must be > 0")
	}
	switch c.Repository.Backend {
	case "memory", "file", "redis", "sqlite":
	default:
		return fmt.Errorf("repository.backend must be one of memory, file, redis, sqlite")
	}
	if c.Repository.Backend == "file" && c.Repository.FileDir == "" {
		return fmt.Errorf("repository.file_dir is required for the file backend")
	}
	if c.Repository.Backend == "redis" && c.Repository.RedisAddr == "" {
		return fmt.Errorf("repository.redis_addr is required for the redis backend")
	}
	if c.Repository.Backend == "sqlite" && c.Repository.SQLitePath == "" {
		return fmt.Errorf("repository.sqlite_path is required for the sqlite backend")
	}
	return nil
}
