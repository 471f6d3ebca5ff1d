package portfolio

import (
	"math"
	"testing"

	"tradecore/internal/event"
	"tradecore/internal/portfolio/repository"
)

func approxEqual(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func newTestPortfolio(t *testing.T, cash float64) *Portfolio {
	t.Helper()
	p, err := New("engine-1", repository.NewInMemoryRepository(), DefaultAllocator{}, DefaultRisk{}, cash, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func fillFor(t *testing.T, p *Portfolio, signal event.SignalEvent) event.FillEvent {
	t.Helper()
	order, err := p.GenerateOrder(signal)
	if err != nil {
		t.Fatal(err)
	}
	if order == nil {
		t.Fatal("expected an order")
	}
	return event.FillEvent{
		TraceID:        order.TraceID,
		Timestamp:      order.Timestamp,
		Exchange:       order.Exchange,
		Symbol:         order.Symbol,
		MarketMeta:     event.MarketMeta{ClosePrice: order.Close, Timestamp: order.Timestamp},
		Decision:       order.Decision,
		Quantity:       order.Quantity,
		FillValueGross: math.Abs(order.Quantity) * order.Close,
	}
}

func TestSingleLongWinnerScenario(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	longSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 100},
		Signals:   map[event.Decision]float64{event.Long: 1},
	}
	fill1 := fillFor(t, p, longSignal)
	events, err := p.UpdateFromFill(fill1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected PositionNew+Balance, got %d events", len(events))
	}

	market2 := event.MarketEvent{Exchange: "binance", Symbol: "BTCUSDT", Bar: event.Bar{Close: 110}}
	if _, err := p.UpdateFromMarket(market2); err != nil {
		t.Fatal(err)
	}

	closeSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 120},
		Signals:   map[event.Decision]float64{event.CloseLong: 1},
	}
	fill2 := fillFor(t, p, closeSignal)
	events, err = p.UpdateFromFill(fill2)
	if err != nil {
		t.Fatal(err)
	}

	var sawExit bool
	for _, e := range events {
		if pe, ok := e.(event.PositionExitEvent); ok {
			sawExit = true
			approxEqual(t, pe.Position.RealisedProfitTotal, 200)
		}
	}
	if !sawExit {
		t.Fatal("expected a PositionExitEvent")
	}
	approxEqual(t, p.cash, 10200)

	closed, _ := p.repo.GetClosedPositions("engine-1")
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed position, got %d", len(closed))
	}
}

func TestShortRoundTripScenario(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	shortSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "ETHUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 100},
		Signals:   map[event.Decision]float64{event.Short: 1},
	}
	fill1 := fillFor(t, p, shortSignal)
	if _, err := p.UpdateFromFill(fill1); err != nil {
		t.Fatal(err)
	}

	closeSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "ETHUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 90},
		Signals:   map[event.Decision]float64{event.CloseShort: 1},
	}
	fill2 := fillFor(t, p, closeSignal)
	events, err := p.UpdateFromFill(fill2)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if pe, ok := e.(event.PositionExitEvent); ok {
			approxEqual(t, pe.Position.RealisedProfitTotal, 100)
		}
	}
}

func TestNoSignalPathProducesNoOrder(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	empty := event.SignalEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 50},
		Signals:    map[event.Decision]float64{},
	}
	order, err := p.GenerateOrder(empty)
	if err != nil {
		t.Fatal(err)
	}
	if order != nil {
		t.Fatalf("expected no order, got %+v", order)
	}
	if p.cash != 10000 {
		t.Fatalf("cash changed: %v", p.cash)
	}
}

func TestFeeAccountingScenario(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	longSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 100},
		Signals:   map[event.Decision]float64{event.Long: 1},
	}
	order, err := p.GenerateOrder(longSignal)
	if err != nil || order == nil {
		t.Fatalf("order = %+v, err = %v", order, err)
	}
	fill1 := event.FillEvent{
		Exchange: order.Exchange, Symbol: order.Symbol,
		MarketMeta: event.MarketMeta{ClosePrice: 100},
		Decision:   order.Decision, Quantity: order.Quantity,
		FillValueGross: math.Abs(order.Quantity) * order.Close,
		Fees:           event.Fees{Exchange: 1},
	}
	if _, err := p.UpdateFromFill(fill1); err != nil {
		t.Fatal(err)
	}

	fill2 := event.FillEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 110},
		Decision:   event.CloseLong, Quantity: -10,
		Fees: event.Fees{Exchange: 1},
	}
	events, err := p.UpdateFromFill(fill2)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if pe, ok := e.(event.PositionExitEvent); ok {
			approxEqual(t, pe.Position.RealisedProfitTotal, 98)
		}
	}
	approxEqual(t, p.cash, 10098)
}

func TestDecisionMismatchIsPortfolioError(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	longSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 100},
		Signals:   map[event.Decision]float64{event.Long: 1},
	}
	fill1 := fillFor(t, p, longSignal)
	if _, err := p.UpdateFromFill(fill1); err != nil {
		t.Fatal(err)
	}

	badFill := event.FillEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 105},
		Decision:   event.Short, Quantity: -5,
	}
	_, err := p.UpdateFromFill(badFill)
	if err == nil {
		t.Fatal("expected a decision mismatch error")
	}
}

func TestForceExitClosesOnlyIfOpen(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	order, err := p.GenerateExitOrder(event.SignalForceExit{Exchange: "binance", Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatal(err)
	}
	if order != nil {
		t.Fatalf("expected nil order with no open position, got %+v", order)
	}

	longSignal := event.SignalEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		MarketMeta: event.MarketMeta{ClosePrice: 100},
		Signals:   map[event.Decision]float64{event.Long: 1},
	}
	fill1 := fillFor(t, p, longSignal)
	if _, err := p.UpdateFromFill(fill1); err != nil {
		t.Fatal(err)
	}

	order, err = p.GenerateExitOrder(event.SignalForceExit{Exchange: "binance", Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatal(err)
	}
	if order == nil || order.Decision != event.CloseLong || order.Quantity != -10 {
		t.Fatalf("got %+v", order)
	}
}
