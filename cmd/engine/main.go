// tradecore is a multi-market, event-driven trading engine core.
//
// Architecture:
//
//	main.go                          — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/engine/engine.go        — orchestrator: owns the command channel, spawns one trader per market
//	internal/trader/trader.go        — per-market loop: Market → Signal → Order → Fill against the shared portfolio
//	internal/portfolio/portfolio.go  — the only mutable multi-market state, guarded by a single mutex
//	internal/portfolio/position      — position accounting and direction-aware P&L
//	internal/portfolio/repository    — pluggable persistence (memory, file, redis, sqlite)
//	internal/strategy/rsi.go         — illustrative Wilder-smoothed RSI signal generator
//	internal/execution/execution.go  — illustrative simulated fill generator
//	internal/data                    — illustrative market data sources (CSV replay, websocket, REST poll)
//	internal/statistic               — streaming per-market Sharpe/Sortino/drawdown via Welford's algorithm
//
// Data flow per trader: MarketEvent → Portfolio.UpdateFromMarket →
// Strategy.GenerateSignal → Portfolio.GenerateOrder → Execution.GenerateFill
// → Portfolio.UpdateFromFill → (PositionUpdate | Balance | Metric) events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"tradecore/internal/config"
	"tradecore/internal/control"
	"tradecore/internal/data"
	"tradecore/internal/engine"
	"tradecore/internal/event"
	"tradecore/internal/execution"
	"tradecore/internal/portfolio"
	"tradecore/internal/portfolio/repository"
	"tradecore/internal/statistic"
	"tradecore/internal/strategy"
	"tradecore/internal/trader"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("TRADER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Logging))

	repo, err := buildRepository(cfg.Repository)
	if err != nil {
		logger.Error("failed to build repository", "error", err)
		os.Exit(1)
	}

	risk := buildRisk(cfg.Portfolio)
	pf, err := portfolio.New(cfg.EngineID, repo, portfolio.DefaultAllocator{}, risk,
		cfg.Portfolio.StartingCash, cfg.Portfolio.DefaultOrderValue, cfg.Portfolio.RiskFreeRate)
	if err != nil {
		logger.Error("failed to build portfolio", "error", err)
		os.Exit(1)
	}

	transmitter := event.NewJSONTransmitter(os.Stdout)

	ctx, cancelSources := context.WithCancel(context.Background())
	defer cancelSources()

	eng, err := wireEngine(ctx, cfg, pf, transmitter, logger)
	if err != nil {
		logger.Error("failed to wire engine", "error", err)
		os.Exit(1)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		eng.Run(runCtx)
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		eng.Commands() <- control.Terminate{Message: "shutdown signal received"}
	case <-done:
	}

	select {
	case <-done:
	case <-time.After(engine.TerminateGracePeriod + 5*time.Second):
		logger.Warn("engine did not stop within the grace window, forcing shutdown")
		cancel()
		<-done
	}
}

func newLogHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildRepository(cfg config.RepositoryConfig) (repository.Repository, error) {
	switch cfg.Backend {
	case "file":
		return repository.NewFileRepository(cfg.FileDir)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		return repository.NewRedisRepository(client), nil
	case "sqlite":
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	default:
		return repository.NewInMemoryRepository(), nil
	}
}

func buildRisk(cfg config.PortfolioConfig) portfolio.RiskEvaluator {
	chain := portfolio.Chain{portfolio.DefaultRisk{}}
	if cfg.MaxTotalExposure > 0 {
		chain = append(chain, portfolio.MaxExposureRisk{MaxTotalExposure: cfg.MaxTotalExposure})
	}
	return chain
}

func buildDataSource(ctx context.Context, mkt config.MarketConfig, logger *slog.Logger) (trader.DataSource, error) {
	switch mkt.DataSource {
	case "historic_csv":
		return data.NewHistoricCSVSource(mkt.Exchange, mkt.Symbol, mkt.CSVPath)
	case "live_ws":
		return data.NewLiveWSSource(ctx, mkt.WSURL, logger), nil
	case "rest_poll":
		return data.NewRestPollSource(ctx, mkt.RESTURL, mkt.Exchange, mkt.Symbol, 5*time.Second, logger), nil
	default:
		return nil, fmt.Errorf("unknown data_source %q", mkt.DataSource)
	}
}

// wireEngine builds one trader per configured market and assembles them
// into an Engine. Each trader is constructed against a command channel
// allocated up front via engine.NewCommandChannel, then handed to
// EngineBuilder.AddTrader alongside the trader itself — the engine
// writes commands onto the very channel the trader reads from.
func wireEngine(ctx context.Context, cfg *config.Config, pf *portfolio.Portfolio, transmitter event.MessageTransmitter, logger *slog.Logger) (*engine.Engine, error) {
	builder := engine.NewEngineBuilder().
		EngineID(cfg.EngineID).
		Portfolio(pf).
		Printer(statistic.NewTradingSummary(os.Stdout)).
		Logger(logger)

	rsiPeriod := cfg.Strategy.RSIPeriod
	if rsiPeriod <= 0 {
		rsiPeriod = 14
	}

	for _, mkt := range cfg.Markets {
		market := control.Market{Exchange: mkt.Exchange, Symbol: mkt.Symbol}

		source, err := buildDataSource(ctx, mkt, logger)
		if err != nil {
			return nil, fmt.Errorf("market %s/%s: %w", mkt.Exchange, mkt.Symbol, err)
		}

		exec := execution.NewSimulatedExecution(
			execution.FixedRateFees{
				ExchangeRate: cfg.Execution.ExchangeFeeRate,
				SlippageRate: cfg.Execution.SlippageRate,
				NetworkFlat:  cfg.Execution.NetworkFeeFlat,
			},
			orDefault(cfg.Execution.FillsPerSecond, 50),
			orDefaultInt(cfg.Execution.FillBurst, 10),
		)

		cmdCh := engine.NewCommandChannel()
		tr := trader.New(trader.Config{
			Market:      market,
			Data:        source,
			Strategy:    strategy.NewRSIStrategy(rsiPeriod),
			Execution:   exec,
			Portfolio:   pf,
			Transmitter: transmitter,
			Commands:    cmdCh,
			Logger:      logger,
		})

		builder = builder.AddTrader(market, tr, cmdCh)
	}

	return builder.Build()
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
