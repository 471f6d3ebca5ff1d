// Package execution turns accepted orders into fills. The core trader
// depends only on the Execution contract; SimulatedExecution is the
// illustrative backtest/paper-trading implementation shipped alongside
// it — a live implementation would submit to an exchange and await the
// resulting fill instead.
package execution

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"tradecore/internal/event"
)

// Execution is the capability a trader uses to turn an accepted order
// into a fill.
type Execution interface {
	GenerateFill(ctx context.Context, order event.OrderEvent) (event.FillEvent, error)
}

// FeeModel computes the fees charged against a fill. A fixed-rate model
// covers the common paper-trading case; production systems can supply
// one backed by actual maker/taker schedules.
type FeeModel interface {
	Calculate(fillValueGross float64) event.Fees
}

// FixedRateFees charges a constant fraction of notional for exchange
// and slippage, plus a flat network fee per fill.
type FixedRateFees struct {
	ExchangeRate float64
	SlippageRate float64
	NetworkFlat  float64
}

func (f FixedRateFees) Calculate(fillValueGross float64) event.Fees {
	return event.Fees{
		Exchange: fillValueGross * f.ExchangeRate,
		Slippage: fillValueGross * f.SlippageRate,
		Network:  f.NetworkFlat,
	}
}

// SimulatedExecution fills every order immediately at the order's close
// price, applying a configurable FeeModel and a golang.org/x/time/rate
// limiter to model per-exchange fill-latency and exchange API limits.
type SimulatedExecution struct {
	fees    FeeModel
	limiter *rate.Limiter
}

// NewSimulatedExecution builds a simulated executor that permits at
// most fillsPerSecond fills per second, bursting up to burst.
func NewSimulatedExecution(fees FeeModel, fillsPerSecond float64, burst int) *SimulatedExecution {
	return &SimulatedExecution{
		fees:    fees,
		limiter: rate.NewLimiter(rate.Limit(fillsPerSecond), burst),
	}
}

func (e *SimulatedExecution) GenerateFill(ctx context.Context, order event.OrderEvent) (event.FillEvent, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return event.FillEvent{}, fmt.Errorf("execution: rate limit wait: %w", err)
	}

	fillValueGross := absf(order.Quantity) * order.Close

	builder := event.NewFillEventBuilder().
		TraceID(order.TraceID).
		Timestamp(time.Now()).
		Market(order.Exchange, order.Symbol).
		MarketMeta(event.MarketMeta{ClosePrice: order.Close, Timestamp: order.Timestamp}).
		Decision(order.Decision).
		Quantity(order.Quantity).
		FillValueGross(fillValueGross).
		Fees(e.fees.Calculate(fillValueGross))

	fill, err := builder.Build()
	if err != nil {
		return event.FillEvent{}, fmt.Errorf("execution: %w", err)
	}
	return fill, nil
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
