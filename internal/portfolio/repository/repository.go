// Package repository defines the persistence contract the portfolio
// consumes for open/closed positions, per-market statistics, and
// balance, plus several illustrative backends. The core never depends
// on a concrete backend — only on this interface.
package repository

import (
	"errors"
	"fmt"

	"tradecore/internal/portfolio/position"
	"tradecore/internal/statistic"
)

// ErrNotFound is returned by Get* methods when no record exists under
// the given key. It is not itself a PortfolioError — the portfolio
// package decides how to interpret a missing record in context (e.g.
// "no open position" is not an error, it is the expected case).
var ErrNotFound = errors.New("repository: not found")

// MarketKey returns the persisted statistics key for a market, matching
// the layout named in the external-interfaces contract.
func MarketKey(exchange, symbol string) string {
	return fmt.Sprintf("%s_%s", exchange, symbol)
}

// BalanceKey returns the persisted balance key for an engine.
func BalanceKey(engineID string) string {
	return fmt.Sprintf("%s_balance", engineID)
}

// ClosedPositionsKey returns the persisted closed-positions log key for
// an engine.
func ClosedPositionsKey(engineID string) string {
	return fmt.Sprintf("%s_closed_positions", engineID)
}

// Repository is the persistence contract consumed by the portfolio.
// Every method must be safe for concurrent use — the portfolio itself
// serialises calls under its own lock, but a backend may be shared with
// out-of-process readers (e.g. FetchOpenPositions tooling).
type Repository interface {
	// GetOpenPosition returns the open position keyed by positionID, or
	// ErrNotFound if none exists.
	GetOpenPosition(positionID string) (position.Position, error)
	// SetOpenPosition upserts an open position record.
	SetOpenPosition(p position.Position) error
	// RemoveOpenPosition deletes the open position record, if any.
	RemoveOpenPosition(positionID string) error
	// GetOpenPositions returns every open position for the given
	// engine, optionally restricted to the given markets (empty means
	// all markets).
	GetOpenPositions(engineID string, markets []string) ([]position.Position, error)

	// AppendClosedPosition appends a position to the engine's
	// append-only closed-position log.
	AppendClosedPosition(engineID string, p position.Position) error
	// GetClosedPositions returns the engine's closed-position log.
	GetClosedPositions(engineID string) ([]position.Position, error)

	// GetStatistics returns the persisted statistics state for a
	// market, or ErrNotFound if the market has never been traded.
	GetStatistics(marketID string) (statistic.State, error)
	// SetStatistics upserts a market's statistics state.
	SetStatistics(marketID string, state statistic.State) error

	// GetBalance returns the engine's persisted balance, or ErrNotFound
	// if none has ever been set.
	GetBalance(engineID string) (Balance, error)
	// SetBalance upserts the engine's balance.
	SetBalance(engineID string, b Balance) error
}

// Balance is the persisted form of event.Balance (duplicated here to
// keep the repository package free of a dependency on the event wire
// types it is not otherwise coupled to).
type Balance struct {
	Cash   float64
	Equity float64
}
