// Package engine is the central orchestrator of the trading core.
//
// It owns the shared Portfolio, spawns one Trader goroutine per
// configured market, and services a command channel for the lifetime
// of the run: Running → Draining (on Terminate) → Stopped.
//
// Lifecycle: NewEngineBuilder()…Build() → Run(ctx) (blocks until every trader stops or a
// Terminate command drains the engine).
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tradecore/internal/control"
	"tradecore/internal/portfolio"
	"tradecore/internal/portfolio/repository"
	"tradecore/internal/statistic"
)

// TerminateGracePeriod bounds how long the engine waits for traders to
// unwind open positions after a Terminate before broadcasting a hard
// stop.
const TerminateGracePeriod = time.Second

// Runnable is the narrow view of *trader.Trader the engine drives.
type Runnable interface {
	Run(ctx context.Context) error
}

// traderHandle pairs a running trader with its command channel and the
// market it owns.
type traderHandle struct {
	market  control.Market
	trader  Runnable
	cmdCh   chan control.Command
	stopped bool
}

// Engine owns the command channel, the shared portfolio, and every
// trader's per-market command channel.
type Engine struct {
	engineID  string
	portfolio *portfolio.Portfolio
	printer   statistic.TablePrinter
	logger    *slog.Logger

	commands chan control.Command

	mu      sync.Mutex
	traders map[control.Market]*traderHandle
}

// EngineBuilder assembles an Engine field by field. It mirrors the
// required-field builder contract used throughout the event package.
type EngineBuilder struct {
	engineID    string
	portfolio   *portfolio.Portfolio
	printer     statistic.TablePrinter
	logger      *slog.Logger
	traders     map[control.Market]Runnable
	cmdChannels map[control.Market]chan control.Command
}

func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		traders:     make(map[control.Market]Runnable),
		cmdChannels: make(map[control.Market]chan control.Command),
	}
}

func (b *EngineBuilder) EngineID(id string) *EngineBuilder {
	b.engineID = id
	return b
}
func (b *EngineBuilder) Portfolio(p *portfolio.Portfolio) *EngineBuilder {
	b.portfolio = p
	return b
}
func (b *EngineBuilder) Printer(p statistic.TablePrinter) *EngineBuilder {
	b.printer = p
	return b
}
func (b *EngineBuilder) Logger(l *slog.Logger) *EngineBuilder {
	b.logger = l
	return b
}

// AddTrader registers a trader for the given market, along with the
// command channel that trader was constructed to read from — the same
// channel instance the engine will write ExitPosition/Terminate
// commands onto. Callers typically get cmdCh from NewCommandChannel
// before constructing the trader itself.
func (b *EngineBuilder) AddTrader(market control.Market, trader Runnable, cmdCh chan control.Command) *EngineBuilder {
	b.traders[market] = trader
	b.cmdChannels[market] = cmdCh
	return b
}

// NewCommandChannel allocates the command channel a trader for market
// should be constructed with, ahead of the trader itself existing.
func NewCommandChannel() chan control.Command {
	return make(chan control.Command, 16)
}

// Build validates and returns the assembled Engine.
func (b *EngineBuilder) Build() (*Engine, error) {
	switch {
	case b.engineID == "":
		return nil, newEngineError("build", ErrEngineIDRequired)
	case b.portfolio == nil:
		return nil, newEngineError("build", ErrPortfolioRequired)
	case len(b.traders) == 0:
		return nil, newEngineError("build", ErrNoTraders)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		engineID:  b.engineID,
		portfolio: b.portfolio,
		printer:   b.printer,
		logger:    logger.With("component", "engine", "engine_id", b.engineID),
		commands:  make(chan control.Command, 8),
		traders:   make(map[control.Market]*traderHandle, len(b.traders)),
	}
	for market, tr := range b.traders {
		cmdCh := b.cmdChannels[market]
		if cmdCh == nil {
			cmdCh = NewCommandChannel()
		}
		e.traders[market] = &traderHandle{
			market: market,
			trader: tr,
			cmdCh:  cmdCh,
		}
	}
	return e, nil
}

// Commands returns the channel remote callers send control.Command
// values on.
func (e *Engine) Commands() chan<- control.Command { return e.commands }

// Run moves every trader onto its own goroutine, then services the
// command channel until every trader has stopped or a Terminate drains
// the engine. It always prints the final summary before returning.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancelTraders := context.WithCancel(ctx)
	defer cancelTraders()

	stopped := make(chan control.Market, len(e.traders))
	var wg sync.WaitGroup

	e.mu.Lock()
	for market, h := range e.traders {
		wg.Add(1)
		go e.runTrader(ctx, market, h, stopped, &wg)
	}
	e.mu.Unlock()

	allStopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStopped)
	}()

	running := len(e.traders)

loop:
	for {
		select {
		case <-allStopped:
			break loop

		case market := <-stopped:
			running--
			e.logger.Info("trader stopped", "exchange", market.Exchange, "symbol", market.Symbol, "remaining", running)
			if running <= 0 {
				break loop
			}

		case cmd, ok := <-e.commands:
			if !ok {
				break loop
			}
			if e.handleCommand(ctx, cmd) {
				break loop
			}
		}
	}

	cancelTraders()
	<-allStopped

	e.printSummary()
}

// runTrader wraps a trader's Run in panic recovery — Go's sync.Mutex
// does not poison on a panicking holder the way the original design
// assumes, so this goroutine wrapper is what "recovers defensively"
// maps to here: a panicking trader is logged and treated as stopped
// rather than bringing down the whole engine.
func (e *Engine) runTrader(ctx context.Context, market control.Market, h *traderHandle, stopped chan<- control.Market, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("trader panicked, recovering", "exchange", market.Exchange, "symbol", market.Symbol, "panic", r)
		}
		stopped <- market
	}()

	if err := h.trader.Run(ctx); err != nil {
		e.logger.Error("trader exited with error", "exchange", market.Exchange, "symbol", market.Symbol, "error", err)
	}
}

// handleCommand applies an engine-level command. Returns true if the
// engine should stop its command loop.
func (e *Engine) handleCommand(ctx context.Context, cmd control.Command) bool {
	switch c := cmd.(type) {
	case control.FetchOpenPositions:
		snapshot, err := e.portfolio.SnapshotForMarkets(e.knownMarkets())
		if c.Reply != nil {
			c.Reply <- control.FetchOpenPositionsResult{Positions: snapshot.OpenPositions, Err: err}
		}
		return false

	case control.ExitPosition:
		e.forwardToTrader(c.Market, c)
		return false

	case control.ExitAllPositions:
		e.broadcast(func(market control.Market) control.Command {
			return control.ExitPosition{Market: market}
		})
		return false

	case control.Terminate:
		e.logger.Info("terminate received, draining traders", "message", c.Message)
		e.broadcast(func(market control.Market) control.Command {
			return control.ExitPosition{Market: market}
		})

		select {
		case <-ctx.Done():
		case <-time.After(TerminateGracePeriod):
		}

		e.broadcast(func(control.Market) control.Command { return c })
		return true

	default:
		e.logger.Warn("engine received unsupported command", "kind", cmd.Kind())
		return false
	}
}

func (e *Engine) forwardToTrader(market control.Market, cmd control.Command) {
	e.mu.Lock()
	h, ok := e.traders[market]
	e.mu.Unlock()
	if !ok {
		e.logger.Warn("command addressed to unknown market", "exchange", market.Exchange, "symbol", market.Symbol)
		return
	}
	select {
	case h.cmdCh <- cmd:
	default:
		e.logger.Warn("trader command channel full, dropping command", "exchange", market.Exchange, "symbol", market.Symbol)
	}
}

// knownMarkets returns the repository.MarketKey for every market this
// engine owns a trader for, used to restrict FetchOpenPositions to
// markets this engine actually trades.
func (e *Engine) knownMarkets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	markets := make([]string, 0, len(e.traders))
	for market := range e.traders {
		markets = append(markets, repository.MarketKey(market.Exchange, market.Symbol))
	}
	return markets
}

func (e *Engine) broadcast(build func(control.Market) control.Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for market, h := range e.traders {
		select {
		case h.cmdCh <- build(market):
		default:
			e.logger.Warn("trader command channel full, dropping broadcast command", "exchange", market.Exchange, "symbol", market.Symbol)
		}
	}
}

func (e *Engine) printSummary() {
	if e.printer == nil {
		return
	}
	e.printer.Print(e.portfolio.StatisticsSnapshots())
}
