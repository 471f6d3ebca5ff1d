// Package data provides the DataSource contract a trader pulls market
// events from, plus several illustrative implementations. The trader
// package depends only on the interface — these concrete sources exist
// to demonstrate the contract is backend-agnostic.
package data

import "tradecore/internal/event"

// Source is the capability a trader pulls market events from.
// ShouldContinue and GenerateMarket are called from the trader's own
// goroutine; implementations must not block indefinitely — the data
// source's pull is the only potentially slow step in the trader's loop
// and must be bounded by its own contract.
type Source interface {
	ShouldContinue() bool
	GenerateMarket() (event.MarketEvent, bool)
}
