package position

import (
	"math"
	"testing"
	"time"

	"tradecore/internal/event"
)

func approxEqual(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestOpenLongRoundTrip(t *testing.T) {
	entry := event.FillEvent{
		Exchange:       "binance",
		Symbol:         "BTCUSDT",
		Decision:       event.Long,
		Quantity:       10,
		FillValueGross: 1000,
		MarketMeta:     event.MarketMeta{ClosePrice: 100, Timestamp: time.Unix(0, 0)},
		Timestamp:      time.Unix(0, 0),
	}
	p := Open("engine-1", entry, CalculateApproxTotalFees(entry.Fees))

	if p.Direction != Long {
		t.Fatalf("direction = %v, want Long", p.Direction)
	}
	if p.Quantity != 10 {
		t.Fatalf("quantity = %v, want 10", p.Quantity)
	}

	exit := event.FillEvent{
		Decision:   event.CloseLong,
		Quantity:   -10,
		MarketMeta: event.MarketMeta{ClosePrice: 120, Timestamp: time.Unix(1, 0)},
		Timestamp:  time.Unix(1, 0),
	}
	res := p.Close(exit)
	approxEqual(t, res.RealisedProfitTotal, (120-100)*10)
	if !p.Closed {
		t.Fatal("expected position closed")
	}
}

func TestOpenShortRoundTrip(t *testing.T) {
	entry := event.FillEvent{
		Decision:       event.Short,
		Quantity:       -10,
		FillValueGross: 1000,
		MarketMeta:     event.MarketMeta{ClosePrice: 100},
	}
	p := Open("engine-1", entry, 0)

	exit := event.FillEvent{
		Decision:   event.CloseShort,
		Quantity:   10,
		MarketMeta: event.MarketMeta{ClosePrice: 90},
	}
	res := p.Close(exit)
	approxEqual(t, res.RealisedProfitTotal, (100-90)*10)
	approxEqual(t, res.CashDelta, (2*100-90)*10)
}

func TestFeeAccountingScenario(t *testing.T) {
	entry := event.FillEvent{
		Decision:       event.Long,
		Quantity:       10,
		FillValueGross: 1000,
		MarketMeta:     event.MarketMeta{ClosePrice: 100},
		Fees:           event.Fees{Exchange: 1},
	}
	p := Open("engine-1", entry, CalculateApproxTotalFees(entry.Fees))

	exit := event.FillEvent{
		Decision:   event.CloseLong,
		Quantity:   -10,
		MarketMeta: event.MarketMeta{ClosePrice: 110},
		Fees:       event.Fees{Exchange: 1},
	}
	res := p.Close(exit)
	approxEqual(t, res.RealisedProfitTotal, 98)
}

func TestUpdateFromMarketTracksUnrealised(t *testing.T) {
	entry := event.FillEvent{
		Decision:       event.Long,
		Quantity:       10,
		FillValueGross: 1000,
		MarketMeta:     event.MarketMeta{ClosePrice: 100},
	}
	p := Open("engine-1", entry, 0)
	p.UpdateFromMarket(110)
	approxEqual(t, p.UnrealisedProfitTotal, 100)
	approxEqual(t, p.CurrentValueGross, 1100)
}

func TestDeterminePositionID(t *testing.T) {
	got := DeterminePositionID("engine-1", "binance", "BTCUSDT")
	want := "engine-1_binance_BTCUSDT_position"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
