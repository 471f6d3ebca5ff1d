// Package event defines the typed vocabulary that flows between pipeline
// stages (Market → Signal → Order → Fill) and the events the portfolio
// emits as a result of mutating state (PositionNew, PositionUpdate,
// PositionExit, Balance, Metric). It also defines the MessageTransmitter
// sink the engine and traders push those events through for observability.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the concrete type held by an Event value, standing
// in for a closed sum type.
type Kind string

const (
	KindMarket          Kind = "market"
	KindSignal          Kind = "signal"
	KindSignalForceExit Kind = "signal_force_exit"
	KindOrder           Kind = "order"
	KindFill            Kind = "fill"
	KindPositionNew     Kind = "position_new"
	KindPositionUpdate  Kind = "position_update"
	KindPositionExit    Kind = "position_exit"
	KindBalance         Kind = "balance"
	KindMetric          Kind = "metric"
)

// Event is satisfied by every concrete event type that can be pushed
// through a MessageTransmitter. Kind lets a sink switch on the concrete
// payload without a type assertion chain.
type Event interface {
	Kind() Kind
}

// NewTraceID generates a fresh trace identifier, used to correlate an
// event across the pipeline stages it causally produced.
func NewTraceID() string { return uuid.NewString() }

// Bar is an OHLCV sample for a market over one time interval.
type Bar struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// MarketMeta is a snapshot of the bar that caused a decision, carried
// forward through Signal → Order → Fill so exit-time logic can reference
// the market conditions that triggered it without re-reading the bar.
type MarketMeta struct {
	ClosePrice float64
	Timestamp  time.Time
}

// MarketEvent is produced by a DataSource and is immutable once built.
type MarketEvent struct {
	TraceID   string
	Timestamp time.Time
	Exchange  string
	Symbol    string
	Bar       Bar
}

func (MarketEvent) Kind() Kind { return KindMarket }

// Decision is a strategy's intent for a market: open or close a position
// in a given direction.
type Decision string

const (
	Long        Decision = "long"
	CloseLong   Decision = "close_long"
	Short       Decision = "short"
	CloseShort  Decision = "close_short"
)

// IsEntry reports whether the decision opens a new position.
func (d Decision) IsEntry() bool { return d == Long || d == Short }

// IsExit reports whether the decision closes an existing position.
func (d Decision) IsExit() bool { return d == CloseLong || d == CloseShort }

// Sign returns the signed-quantity direction implied by the decision:
// Long/CloseShort are positive, Short/CloseLong are negative.
func (d Decision) Sign() float64 {
	switch d {
	case Long, CloseShort:
		return 1
	case Short, CloseLong:
		return -1
	default:
		return 0
	}
}

// SignalEvent is a strategy's advisory output. An empty Signals map means
// "no advice" — the portfolio still observes the event for bookkeeping
// but must not generate an order from it.
type SignalEvent struct {
	TraceID    string
	Timestamp  time.Time
	Exchange   string
	Symbol     string
	MarketMeta MarketMeta
	Signals    map[Decision]float64 // strength in [0,1]
}

func (SignalEvent) Kind() Kind { return KindSignal }

// SignalForceExit is an out-of-band exit command flowing through the
// pipeline as a signal, synthesized by the trader in response to an
// ExitPosition command.
type SignalForceExit struct {
	Exchange string
	Symbol   string
}

func (SignalForceExit) Kind() Kind { return KindSignalForceExit }

// OrderType names how an order should be worked by the execution venue.
type OrderType string

const (
	OrderMarket  OrderType = "market"
	OrderLimit   OrderType = "limit"
	OrderBracket OrderType = "bracket"
)

// OrderEvent is a concrete instruction to transact, produced by the
// portfolio. Quantity is signed: its sign always matches Decision.Sign().
type OrderEvent struct {
	TraceID    string
	Timestamp  time.Time
	Exchange   string
	Symbol     string
	Close      float64
	Decision   Decision
	Quantity   float64
	OrderType  OrderType
}

func (OrderEvent) Kind() Kind { return KindOrder }

// OrderEventBuilder assembles an OrderEvent field by field, failing with
// ErrBuilderIncomplete if required fields are left unset — the same
// contract every event builder in this package follows.
type OrderEventBuilder struct {
	o         OrderEvent
	hasClose  bool
	hasQty    bool
}

func NewOrderEventBuilder() *OrderEventBuilder { return &OrderEventBuilder{} }

func (b *OrderEventBuilder) TraceID(id string) *OrderEventBuilder {
	b.o.TraceID = id
	return b
}
func (b *OrderEventBuilder) Timestamp(t time.Time) *OrderEventBuilder {
	b.o.Timestamp = t
	return b
}
func (b *OrderEventBuilder) Market(exchange, symbol string) *OrderEventBuilder {
	b.o.Exchange, b.o.Symbol = exchange, symbol
	return b
}
func (b *OrderEventBuilder) Close(close float64) *OrderEventBuilder {
	b.o.Close = close
	b.hasClose = true
	return b
}
func (b *OrderEventBuilder) Decision(d Decision) *OrderEventBuilder {
	b.o.Decision = d
	return b
}
func (b *OrderEventBuilder) Quantity(q float64) *OrderEventBuilder {
	b.o.Quantity = q
	b.hasQty = true
	return b
}
func (b *OrderEventBuilder) OrderType(t OrderType) *OrderEventBuilder {
	b.o.OrderType = t
	return b
}

// Build validates and returns the assembled OrderEvent.
func (b *OrderEventBuilder) Build() (OrderEvent, error) {
	switch {
	case b.o.TraceID == "":
		return OrderEvent{}, fmt.Errorf("order event: %w: trace_id", ErrBuilderIncomplete)
	case b.o.Exchange == "" || b.o.Symbol == "":
		return OrderEvent{}, fmt.Errorf("order event: %w: exchange/symbol", ErrBuilderIncomplete)
	case !b.hasClose:
		return OrderEvent{}, fmt.Errorf("order event: %w: close", ErrBuilderIncomplete)
	case b.o.Decision == "":
		return OrderEvent{}, fmt.Errorf("order event: %w: decision", ErrBuilderIncomplete)
	case !b.hasQty:
		return OrderEvent{}, fmt.Errorf("order event: %w: quantity", ErrBuilderIncomplete)
	case b.o.OrderType == "":
		return OrderEvent{}, fmt.Errorf("order event: %w: order_type", ErrBuilderIncomplete)
	}
	return b.o, nil
}

// Fees holds the non-negative fee components charged against a fill.
type Fees struct {
	Exchange float64
	Slippage float64
	Network  float64
}

// Total returns exchange + slippage + network exactly.
func (f Fees) Total() float64 { return f.Exchange + f.Slippage + f.Network }

// FillEvent confirms a transacted order with its executed price (via
// MarketMeta.ClosePrice), quantity, and fees.
type FillEvent struct {
	TraceID        string
	Timestamp      time.Time
	Exchange       string
	Symbol         string
	MarketMeta     MarketMeta
	Decision       Decision
	Quantity       float64
	FillValueGross float64
	Fees           Fees
}

func (FillEvent) Kind() Kind { return KindFill }

// FillEventBuilder follows the same required-field contract as
// OrderEventBuilder.
type FillEventBuilder struct {
	f           FillEvent
	hasQty      bool
	hasGross    bool
}

func NewFillEventBuilder() *FillEventBuilder { return &FillEventBuilder{} }

func (b *FillEventBuilder) TraceID(id string) *FillEventBuilder {
	b.f.TraceID = id
	return b
}
func (b *FillEventBuilder) Timestamp(t time.Time) *FillEventBuilder {
	b.f.Timestamp = t
	return b
}
func (b *FillEventBuilder) Market(exchange, symbol string) *FillEventBuilder {
	b.f.Exchange, b.f.Symbol = exchange, symbol
	return b
}
func (b *FillEventBuilder) MarketMeta(m MarketMeta) *FillEventBuilder {
	b.f.MarketMeta = m
	return b
}
func (b *FillEventBuilder) Decision(d Decision) *FillEventBuilder {
	b.f.Decision = d
	return b
}
func (b *FillEventBuilder) Quantity(q float64) *FillEventBuilder {
	b.f.Quantity = q
	b.hasQty = true
	return b
}
func (b *FillEventBuilder) FillValueGross(v float64) *FillEventBuilder {
	b.f.FillValueGross = v
	b.hasGross = true
	return b
}
func (b *FillEventBuilder) Fees(f Fees) *FillEventBuilder {
	b.f.Fees = f
	return b
}

func (b *FillEventBuilder) Build() (FillEvent, error) {
	switch {
	case b.f.TraceID == "":
		return FillEvent{}, fmt.Errorf("fill event: %w: trace_id", ErrBuilderIncomplete)
	case b.f.Exchange == "" || b.f.Symbol == "":
		return FillEvent{}, fmt.Errorf("fill event: %w: exchange/symbol", ErrBuilderIncomplete)
	case b.f.Decision == "":
		return FillEvent{}, fmt.Errorf("fill event: %w: decision", ErrBuilderIncomplete)
	case !b.hasQty:
		return FillEvent{}, fmt.Errorf("fill event: %w: quantity", ErrBuilderIncomplete)
	case !b.hasGross:
		return FillEvent{}, fmt.Errorf("fill event: %w: fill_value_gross", ErrBuilderIncomplete)
	}
	return b.f, nil
}

// Balance is the process-wide, per-engine cash/equity snapshot.
type Balance struct {
	Timestamp time.Time
	Cash      float64
	Equity    float64
}

func (Balance) Kind() Kind { return KindBalance }

// MetricEvent wraps a market's updated Statistics snapshot for
// observability; the statistic package defines the Snapshot type to
// avoid a dependency cycle (statistic imports event for nothing, event
// holds only the wire payload).
type MetricEvent struct {
	Exchange string
	Symbol   string
	Snapshot any
}

func (MetricEvent) Kind() Kind { return KindMetric }
