// Package portfolio implements the shared, mutex-guarded state machine
// every trader calls into: update_from_market, generate_order,
// generate_exit_order, and update_from_fill. Exactly one Portfolio
// instance is shared across all traders in a process.
package portfolio

import (
	"sync"
	"time"

	"tradecore/internal/event"
	"tradecore/internal/portfolio/position"
	"tradecore/internal/portfolio/repository"
	"tradecore/internal/statistic"
)

// Portfolio is the only component with mutable multi-market state. Every
// public operation acquires mu for the full call; callers must
// never nest these calls or hold the lock across an external I/O call
// of their own.
type Portfolio struct {
	mu sync.Mutex

	engineID          string
	repo              repository.Repository
	allocator         Allocator
	risk              RiskEvaluator
	defaultOrderValue float64
	riskFreeRate      float64

	cash  float64
	stats map[string]*statistic.Statistic
}

// New constructs a Portfolio, rehydrating its cash balance from the
// repository if one was previously persisted (the repository is
// authoritative for restart semantics; startingCash seeds a fresh
// engine only).
func New(engineID string, repo repository.Repository, allocator Allocator, risk RiskEvaluator, startingCash, defaultOrderValue, riskFreeRate float64) (*Portfolio, error) {
	p := &Portfolio{
		engineID:          engineID,
		repo:              repo,
		allocator:         allocator,
		risk:              risk,
		defaultOrderValue: defaultOrderValue,
		riskFreeRate:      riskFreeRate,
		cash:              startingCash,
		stats:             make(map[string]*statistic.Statistic),
	}

	bal, err := repo.GetBalance(engineID)
	if err == nil {
		p.cash = bal.Cash
	} else if err != repository.ErrNotFound {
		return nil, newPortfolioError("rehydrate balance", err)
	}

	return p, nil
}

// statisticFor returns the cached Statistic for a market, rehydrating it
// from the repository on first access per market.
func (p *Portfolio) statisticFor(exchange, symbol string) (*statistic.Statistic, error) {
	marketID := repository.MarketKey(exchange, symbol)
	if s, ok := p.stats[marketID]; ok {
		return s, nil
	}

	state, err := p.repo.GetStatistics(marketID)
	var s *statistic.Statistic
	if err == nil {
		s = statistic.FromState(exchange, symbol, p.riskFreeRate, state)
	} else if err == repository.ErrNotFound {
		s = statistic.New(exchange, symbol, p.riskFreeRate)
	} else {
		return nil, newPortfolioError("rehydrate statistics", err)
	}

	p.stats[marketID] = s
	return s, nil
}

// UpdateFromMarket looks up the open position for the market carried in
// the event and, if present, marks it to market and returns the
// resulting PositionUpdateEvent. Returns nil, nil if no open position
// exists — this is never an error, only a no-op.
func (p *Portfolio) UpdateFromMarket(market event.MarketEvent) (*event.PositionUpdateEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positionID := position.DeterminePositionID(p.engineID, market.Exchange, market.Symbol)
	pos, err := p.repo.GetOpenPosition(positionID)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, newPortfolioError("update_from_market", err)
	}

	pos.UpdateFromMarket(market.Bar.Close)
	if err := p.repo.SetOpenPosition(pos); err != nil {
		return nil, newPortfolioError("update_from_market", err)
	}

	return &event.PositionUpdateEvent{Position: pos.Snapshot()}, nil
}

// GenerateOrder implements the order-of-preference policy: a matching
// close decision on an existing open position always wins; otherwise an
// entry decision may open a new position, subject to the allocator and
// risk evaluator. Never opens a new position while one is already open
// in the same market.
func (p *Portfolio) GenerateOrder(signal event.SignalEvent) (*event.OrderEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positionID := position.DeterminePositionID(p.engineID, signal.Exchange, signal.Symbol)
	openPos, err := p.repo.GetOpenPosition(positionID)
	hasOpen := err == nil
	if err != nil && err != repository.ErrNotFound {
		return nil, newPortfolioError("generate_order", err)
	}

	if hasOpen {
		closeDecision := openPos.Direction.ClosingDecision()
		if _, ok := signal.Signals[closeDecision]; ok {
			order := event.OrderEvent{
				TraceID:   event.NewTraceID(),
				Timestamp: signal.Timestamp,
				Exchange:  signal.Exchange,
				Symbol:    signal.Symbol,
				Close:     signal.MarketMeta.ClosePrice,
				Decision:  closeDecision,
				Quantity:  -openPos.Quantity,
				OrderType: event.OrderMarket,
			}
			return &order, nil
		}
		// A position is already open in this market; never stack a
		// second entry on top of it.
		return nil, nil
	}

	for _, d := range [...]event.Decision{event.Long, event.Short} {
		strength, ok := signal.Signals[d]
		if !ok || strength <= 0 {
			continue
		}

		qtyAbs := p.allocator.Allocate(strength, signal.MarketMeta.ClosePrice, p.cash, p.defaultOrderValue)
		order := event.OrderEvent{
			TraceID:   event.NewTraceID(),
			Timestamp: signal.Timestamp,
			Exchange:  signal.Exchange,
			Symbol:    signal.Symbol,
			Close:     signal.MarketMeta.ClosePrice,
			Decision:  d,
			Quantity:  qtyAbs * d.Sign(),
			OrderType: event.OrderMarket,
		}

		snapshot, err := p.snapshotLocked(nil)
		if err != nil {
			return nil, newPortfolioError("generate_order", err)
		}
		out, ok := p.risk.Evaluate(order, snapshot)
		if !ok {
			return nil, nil
		}
		return &out, nil
	}

	return nil, nil
}

// GenerateExitOrder bypasses the allocator/risk path entirely and
// produces a close order for whatever open position exists in the
// market named by forceExit. Returns nil, nil if none is open.
func (p *Portfolio) GenerateExitOrder(forceExit event.SignalForceExit) (*event.OrderEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positionID := position.DeterminePositionID(p.engineID, forceExit.Exchange, forceExit.Symbol)
	pos, err := p.repo.GetOpenPosition(positionID)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, newPortfolioError("generate_exit_order", err)
	}

	order := event.OrderEvent{
		TraceID:   event.NewTraceID(),
		Timestamp: time.Now(),
		Exchange:  forceExit.Exchange,
		Symbol:    forceExit.Symbol,
		Close:     pos.CurrentSymbolPrice,
		Decision:  pos.Direction.ClosingDecision(),
		Quantity:  -pos.Quantity,
		OrderType: event.OrderMarket,
	}
	return &order, nil
}

// UpdateFromFill is the only operation that mutates positions and
// balance. It opens a position on the first fill for a market, closes
// one on a matching closing fill, and treats any other fill/position
// state combination as a design error.
func (p *Portfolio) UpdateFromFill(fill event.FillEvent) ([]event.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positionID := position.DeterminePositionID(p.engineID, fill.Exchange, fill.Symbol)
	existing, err := p.repo.GetOpenPosition(positionID)
	hasOpen := err == nil
	if err != nil && err != repository.ErrNotFound {
		return nil, newPortfolioError("update_from_fill", err)
	}

	var events []event.Event

	switch {
	case !hasOpen && fill.Decision.IsEntry():
		estimatedExitFees := position.CalculateApproxTotalFees(fill.Fees)
		newPos := position.Open(p.engineID, fill, estimatedExitFees)
		p.cash -= newPos.EnterValueGross + fill.Fees.Total()

		if err := p.repo.SetOpenPosition(newPos); err != nil {
			return nil, newPortfolioError("update_from_fill", err)
		}
		events = append(events, event.PositionNewEvent{Position: newPos.Snapshot()})

	case hasOpen && fill.Decision == existing.Direction.ClosingDecision():
		res := existing.Close(fill)
		p.cash += res.CashDelta

		if err := p.repo.RemoveOpenPosition(positionID); err != nil {
			return nil, newPortfolioError("update_from_fill", err)
		}
		if err := p.repo.AppendClosedPosition(p.engineID, existing); err != nil {
			return nil, newPortfolioError("update_from_fill", err)
		}

		stat, err := p.statisticFor(fill.Exchange, fill.Symbol)
		if err != nil {
			return nil, err
		}
		stat.Update(res.ResultProfitPct)
		if err := p.repo.SetStatistics(repository.MarketKey(fill.Exchange, fill.Symbol), stat.State()); err != nil {
			return nil, newPortfolioError("update_from_fill", err)
		}

		events = append(events, event.PositionExitEvent{Position: existing.Snapshot()})
		events = append(events, event.MetricEvent{Exchange: fill.Exchange, Symbol: fill.Symbol, Snapshot: stat.Snapshot()})

	default:
		return nil, newPortfolioError("update_from_fill", ErrDecisionMismatch)
	}

	snapshot, err := p.snapshotLocked(nil)
	if err != nil {
		return nil, newPortfolioError("update_from_fill", err)
	}
	equity := computeEquity(p.cash, snapshot.OpenPositions)

	if err := p.repo.SetBalance(p.engineID, repository.Balance{Cash: p.cash, Equity: equity}); err != nil {
		return nil, newPortfolioError("update_from_fill", err)
	}
	for _, s := range p.stats {
		s.UpdateDrawdown(equity)
	}

	events = append(events, event.Balance{Timestamp: fill.Timestamp, Cash: p.cash, Equity: equity})

	return events, nil
}

// snapshotLocked returns a read-only Snapshot of portfolio state,
// restricted to markets if non-empty (empty means every market the
// engine holds positions in). Callers must already hold p.mu.
func (p *Portfolio) snapshotLocked(markets []string) (Snapshot, error) {
	open, err := p.repo.GetOpenPositions(p.engineID, markets)
	if err != nil {
		return Snapshot{}, err
	}
	equity := computeEquity(p.cash, open)
	return Snapshot{
		EngineID:      p.engineID,
		Cash:          p.cash,
		Equity:        equity,
		OpenPositions: open,
	}, nil
}

// Snapshot returns a read-only view of the portfolio's current state
// across every market. Order generation and UpdateFromFill, which
// already hold mu, call snapshotLocked(nil) directly instead.
func (p *Portfolio) Snapshot() (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(nil)
}

// SnapshotForMarkets is Snapshot restricted to the given markets
// (repository.MarketKey-formatted), used by FetchOpenPositions so a
// caller only ever sees positions in markets this engine actually
// trades.
func (p *Portfolio) SnapshotForMarkets(markets []string) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(markets)
}

// StatisticsSnapshots returns every market's current statistics,
// printed by the engine on termination.
func (p *Portfolio) StatisticsSnapshots() []statistic.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]statistic.Snapshot, 0, len(p.stats))
	for _, s := range p.stats {
		out = append(out, s.Snapshot())
	}
	return out
}

// computeEquity implements equity = cash + Σ current_value_gross of all
// open positions − Σ unrealised_fees_estimate (exit_fees_total).
func computeEquity(cash float64, open []position.Position) float64 {
	equity := cash
	for _, p := range open {
		equity += p.CurrentValueGross - p.ExitFeesTotal
	}
	return equity
}
