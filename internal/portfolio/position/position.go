// Package position implements the Position lifecycle: opening on the
// first fill for a market, mark-to-market updates on every subsequent
// MarketEvent, and the direction-aware P&L computed on close. Position
// is data plus the arithmetic that keeps it consistent; the portfolio
// package owns when these methods are called.
package position

import (
	"fmt"
	"time"

	"tradecore/internal/event"
)

// Direction is immutable for the life of a position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// DirectionFromDecision maps an opening decision to its Direction.
// Panics if given a non-entry decision — callers must only invoke this
// on Long/Short decisions, guaranteed by update_from_fill's dispatch.
func DirectionFromDecision(d event.Decision) Direction {
	switch d {
	case event.Long:
		return Long
	case event.Short:
		return Short
	default:
		panic(fmt.Sprintf("position: %q is not an entry decision", d))
	}
}

// ClosingDecision returns the Decision that closes a position held in
// this direction.
func (d Direction) ClosingDecision() event.Decision {
	if d == Long {
		return event.CloseLong
	}
	return event.CloseShort
}

// Sign returns +1 for Long, -1 for Short.
func (d Direction) Sign() float64 {
	if d == Long {
		return 1
	}
	return -1
}

// DeterminePositionID returns the fingerprint used as the repository key
// for at most one open position per (engine, market): the layout named
// in the external-interfaces contract.
func DeterminePositionID(engineID, exchange, symbol string) string {
	return fmt.Sprintf("%s_%s_%s_position", engineID, exchange, symbol)
}

// Position is the central entity: an open or closed exposure in one
// market, with its fee-inclusive P&L tracked incrementally.
type Position struct {
	PositionID string
	EngineID   string
	Exchange   string
	Symbol     string
	Direction  Direction

	EntryTimestamp     time.Time
	EntryPrice         float64
	EntryFeesTotal     float64
	EnterValueGross    float64
	EnterAvgPriceGross float64

	CurrentSymbolPrice float64
	CurrentValueGross  float64
	ExitFeesTotal      float64

	Quantity float64 // signed; sign always matches Direction

	UnrealisedProfitTotal float64
	RealisedProfitTotal   float64
	ResultProfitPct       float64

	ExitTimestamp time.Time
	ExitPrice     float64
	Closed        bool
}

// Open constructs a new Position from the fill that opened it. The
// fill's Decision must be an entry decision (Long or Short); the caller
// (portfolio.UpdateFromFill) guarantees this by dispatch.
func Open(engineID string, fill event.FillEvent, estimatedExitFees float64) Position {
	dir := DirectionFromDecision(fill.Decision)
	return Position{
		PositionID:         DeterminePositionID(engineID, fill.Exchange, fill.Symbol),
		EngineID:           engineID,
		Exchange:           fill.Exchange,
		Symbol:             fill.Symbol,
		Direction:          dir,
		EntryTimestamp:     fill.Timestamp,
		EntryPrice:         fill.MarketMeta.ClosePrice,
		EntryFeesTotal:     fill.Fees.Total(),
		EnterValueGross:    fill.FillValueGross,
		EnterAvgPriceGross: fill.MarketMeta.ClosePrice,
		CurrentSymbolPrice: fill.MarketMeta.ClosePrice,
		CurrentValueGross:  fill.FillValueGross,
		ExitFeesTotal:      estimatedExitFees,
		Quantity:           fill.Quantity,
	}
}

// UpdateFromMarket recomputes the mark-to-market fields from a new
// close price, matching update_from_market's per-position arithmetic:
// current_value_gross = |quantity|·close, and unrealised P&L uses the
// direction-specific mirror formula, netted against the estimated exit
// fees (exit fees are unknown until the closing fill lands).
func (p *Position) UpdateFromMarket(closePrice float64) {
	p.CurrentSymbolPrice = closePrice
	absQty := absf(p.Quantity)
	p.CurrentValueGross = absQty * closePrice

	switch p.Direction {
	case Long:
		p.UnrealisedProfitTotal = (closePrice-p.EnterAvgPriceGross)*absQty - p.ExitFeesTotal
	case Short:
		p.UnrealisedProfitTotal = (p.EnterAvgPriceGross-closePrice)*absQty - p.ExitFeesTotal
	}
}

// CloseResult is the accounting produced by closing a position,
// including the cash delta the portfolio must apply (the CashDelta
// field).
type CloseResult struct {
	RealisedProfitTotal float64
	ResultProfitPct     float64
	CashDelta           float64
}

// Close applies the closing fill and returns the realised P&L and the
// cash delta the portfolio should add to its balance. It does not
// mutate the repository — the caller decides whether/how to persist
// the closed record.
func (p *Position) Close(fill event.FillEvent) CloseResult {
	absQty := absf(p.Quantity)
	exitPrice := fill.MarketMeta.ClosePrice

	realised := p.Direction.Sign()*(exitPrice-p.EnterAvgPriceGross)*absQty - p.EntryFeesTotal - fill.Fees.Total()

	var cashDelta float64
	switch p.Direction {
	case Long:
		cashDelta = absQty*exitPrice - fill.Fees.Total()
	case Short:
		cashDelta = (2*p.EnterAvgPriceGross-exitPrice)*absQty - fill.Fees.Total()
	}

	p.RealisedProfitTotal = realised
	p.ResultProfitPct = realised / p.EnterValueGross
	p.ExitTimestamp = fill.Timestamp
	p.ExitPrice = exitPrice
	p.Closed = true

	return CloseResult{
		RealisedProfitTotal: realised,
		ResultProfitPct:     p.ResultProfitPct,
		CashDelta:           cashDelta,
	}
}

// Snapshot converts the position into the wire-safe payload carried by
// position lifecycle events.
func (p Position) Snapshot() event.PositionSnapshot {
	return event.PositionSnapshot{
		PositionID:            p.PositionID,
		Exchange:              p.Exchange,
		Symbol:                p.Symbol,
		Direction:             string(p.Direction),
		EntryTimestamp:        p.EntryTimestamp,
		EntryPrice:            p.EntryPrice,
		EntryFeesTotal:        p.EntryFeesTotal,
		EnterValueGross:       p.EnterValueGross,
		EnterAvgPriceGross:    p.EnterAvgPriceGross,
		CurrentSymbolPrice:    p.CurrentSymbolPrice,
		CurrentValueGross:     p.CurrentValueGross,
		ExitFeesTotal:         p.ExitFeesTotal,
		Quantity:              p.Quantity,
		UnrealisedProfitTotal: p.UnrealisedProfitTotal,
		RealisedProfitTotal:   p.RealisedProfitTotal,
		ResultProfitPct:       p.ResultProfitPct,
	}
}

// CalculateApproxTotalFees estimates the fees an eventual closing fill
// will carry, used to seed ExitFeesTotal at open time so unrealised P&L
// is conservative before the real exit fee is known. Superseded once
// the closing fill lands and Close() recomputes with exact figures.
func CalculateApproxTotalFees(entryFees event.Fees) float64 {
	return entryFees.Total()
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
