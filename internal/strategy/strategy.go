// Package strategy turns market events into trading signals. The core
// trader depends only on the SignalGenerator contract; RSIStrategy is
// the illustrative implementation shipped alongside it.
package strategy

import "tradecore/internal/event"

// SignalGenerator is the capability a trader uses to turn a market
// event into an optional signal. Returning ok=false with a nil error
// means "no opinion this bar" — the trader advances without generating
// an order. A non-nil error means the indicator itself failed; per the
// error propagation policy the trader logs it and continues with the
// next market event rather than treating it as fatal.
type SignalGenerator interface {
	GenerateSignal(market event.MarketEvent) (event.SignalEvent, bool, error)
}
