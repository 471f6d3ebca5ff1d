// Package trader implements the per-market event loop: pull a market
// event, mark the portfolio to market, ask the strategy for a signal,
// ask the portfolio for an order, ask execution for a fill, and feed
// the fill back into the portfolio. One Trader owns exactly one
// (exchange, symbol) market and runs on its own goroutine.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradecore/internal/control"
	"tradecore/internal/event"
)

// DataSource is the narrow view of internal/data.Source a trader needs.
// Defined locally so this package does not depend on any concrete data
// backend.
type DataSource interface {
	ShouldContinue() bool
	GenerateMarket() (event.MarketEvent, bool)
}

// SignalGenerator is the narrow view of internal/strategy.SignalGenerator.
type SignalGenerator interface {
	GenerateSignal(market event.MarketEvent) (event.SignalEvent, bool, error)
}

// Execution is the narrow view of internal/execution.Execution.
type Execution interface {
	GenerateFill(ctx context.Context, order event.OrderEvent) (event.FillEvent, error)
}

// PortfolioHandle is the narrow view of *portfolio.Portfolio a trader
// needs, kept here (rather than importing the concrete type) so the
// trader package has no dependency on the portfolio's repository or
// risk internals.
type PortfolioHandle interface {
	UpdateFromMarket(market event.MarketEvent) (*event.PositionUpdateEvent, error)
	GenerateOrder(signal event.SignalEvent) (*event.OrderEvent, error)
	GenerateExitOrder(forceExit event.SignalForceExit) (*event.OrderEvent, error)
	UpdateFromFill(fill event.FillEvent) ([]event.Event, error)
}

// StrategyError wraps an error returned by a SignalGenerator; it is
// always logged and the loop continues with the next market event.
type StrategyError struct{ Err error }

func (e *StrategyError) Error() string { return fmt.Sprintf("strategy: %v", e.Err) }
func (e *StrategyError) Unwrap() error { return e.Err }

// ExecutionError wraps an error returned by an Execution; like
// StrategyError, it is logged and the loop continues.
type ExecutionError struct{ Err error }

func (e *ExecutionError) Error() string { return fmt.Sprintf("execution: %v", e.Err) }
func (e *ExecutionError) Unwrap() error { return e.Err }

// Trader runs the Market → Signal → Order → Fill pipeline for a single
// market against a shared Portfolio.
type Trader struct {
	Market control.Market

	data      DataSource
	strategy  SignalGenerator
	execution Execution
	portfolio PortfolioHandle
	transmit  event.MessageTransmitter
	commands  <-chan control.Command
	logger    *slog.Logger

	pollInterval time.Duration
}

// Config bundles everything a Trader needs at construction.
type Config struct {
	Market       control.Market
	Data         DataSource
	Strategy     SignalGenerator
	Execution    Execution
	Portfolio    PortfolioHandle
	Transmitter  event.MessageTransmitter
	Commands     <-chan control.Command
	Logger       *slog.Logger
	PollInterval time.Duration // how long to sleep when the data source has nothing yet
}

// New builds a Trader from cfg, defaulting PollInterval and Logger if
// left zero.
func New(cfg Config) *Trader {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Trader{
		Market:       cfg.Market,
		data:         cfg.Data,
		strategy:     cfg.Strategy,
		execution:    cfg.Execution,
		portfolio:    cfg.Portfolio,
		transmit:     cfg.Transmitter,
		commands:     cfg.Commands,
		logger:       logger.With("exchange", cfg.Market.Exchange, "symbol", cfg.Market.Symbol),
		pollInterval: cfg.PollInterval,
	}
}

// Run drives the trader's loop until ctx is cancelled, the data source
// is exhausted, or a Terminate command arrives. A Portfolio error during
// UpdateFromFill is fatal to the trader per the error propagation
// policy — it returns immediately so the engine's stopped-notifier can
// observe it.
func (t *Trader) Run(ctx context.Context) error {
	t.logger.Info("trader starting")
	defer t.logger.Info("trader stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-t.commands:
			if done, err := t.handleCommand(cmd); done {
				return err
			}
			continue
		default:
		}

		if !t.data.ShouldContinue() {
			return nil
		}

		market, ok := t.data.GenerateMarket()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(t.pollInterval):
			}
			continue
		}

		t.emit(market)

		if err := t.step(ctx, market); err != nil {
			t.logger.Error("fatal portfolio error, trader exiting", "error", err)
			return err
		}
	}
}

// step runs one iteration of the Market → Signal → Order → Fill
// pipeline for a single market event.
func (t *Trader) step(ctx context.Context, market event.MarketEvent) error {
	if update, err := t.portfolio.UpdateFromMarket(market); err != nil {
		return err
	} else if update != nil {
		t.emit(*update)
	}

	signal, ok, err := t.strategy.GenerateSignal(market)
	if err != nil {
		t.logger.Error("strategy error, skipping market event", "error", &StrategyError{Err: err})
		return nil
	}
	if !ok {
		return nil
	}
	t.emit(signal)

	order, err := t.portfolio.GenerateOrder(signal)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	t.emit(*order)

	return t.fillAndApply(ctx, *order)
}

// fillAndApply asks execution to fill order, then applies the result to
// the portfolio. An Execution error is logged and swallowed; a
// Portfolio error is returned (fatal to the trader).
func (t *Trader) fillAndApply(ctx context.Context, order event.OrderEvent) error {
	fill, err := t.execution.GenerateFill(ctx, order)
	if err != nil {
		t.logger.Error("execution error, skipping order", "error", &ExecutionError{Err: err})
		return nil
	}
	t.emit(fill)

	events, err := t.portfolio.UpdateFromFill(fill)
	if err != nil {
		return err
	}
	for _, e := range events {
		t.emit(e)
	}
	return nil
}

// handleCommand applies a control.Command addressed to this trader.
// done=true means the trader should stop; err is the error Run should
// return (nil for a clean Terminate).
func (t *Trader) handleCommand(cmd control.Command) (done bool, err error) {
	switch c := cmd.(type) {
	case control.Terminate:
		t.logger.Info("trader received terminate", "message", c.Message)
		return true, nil

	case control.ExitPosition:
		forceExit := event.SignalForceExit{Exchange: c.Market.Exchange, Symbol: c.Market.Symbol}
		order, err := t.portfolio.GenerateExitOrder(forceExit)
		if err != nil {
			t.logger.Error("force exit failed", "error", err)
			return false, nil
		}
		if order == nil {
			return false, nil
		}
		t.emit(*order)
		if err := t.fillAndApply(context.Background(), *order); err != nil {
			return true, err
		}
		return false, nil

	default:
		t.logger.Warn("trader received unsupported command", "kind", cmd.Kind())
		return false, nil
	}
}

func (t *Trader) emit(e event.Event) {
	if t.transmit == nil {
		return
	}
	t.transmit.Send(e)
}
