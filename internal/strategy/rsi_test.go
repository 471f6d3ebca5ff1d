package strategy

import (
	"testing"
	"time"

	"tradecore/internal/event"
)

func bar(close float64) event.MarketEvent {
	return event.MarketEvent{
		Exchange: "binance", Symbol: "BTCUSDT",
		Timestamp: time.Now(),
		Bar:       event.Bar{Close: close},
	}
}

func TestRSIStrategyNoSignalDuringWarmup(t *testing.T) {
	s := NewRSIStrategy(14)
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113}
	for _, c := range closes {
		_, ok, err := s.GenerateSignal(bar(c))
		if err != nil {
			t.Fatalf("unexpected error during warmup at close=%v: %v", c, err)
		}
		if ok {
			t.Fatalf("unexpected signal during warmup at close=%v", c)
		}
	}
}

func TestRSIStrategyOversoldEmitsLongAndCloseShort(t *testing.T) {
	s := NewRSIStrategy(14)
	closes := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 87, 86}
	var last event.SignalEvent
	var ok bool
	for _, c := range closes {
		var err error
		last, ok, err = s.GenerateSignal(bar(c))
		if err != nil {
			t.Fatalf("unexpected error at close=%v: %v", c, err)
		}
	}
	if !ok {
		t.Fatal("expected a signal after warmup with a sustained downtrend")
	}
	if _, wantsLong := last.Signals[event.Long]; !wantsLong {
		t.Error("expected Long in signal map for oversold RSI")
	}
	if _, wantsCloseShort := last.Signals[event.CloseShort]; !wantsCloseShort {
		t.Error("expected CloseShort in signal map for oversold RSI")
	}
}

func TestRSIStrategyOverboughtEmitsCloseLongAndShort(t *testing.T) {
	s := NewRSIStrategy(14)
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114}
	var last event.SignalEvent
	var ok bool
	for _, c := range closes {
		var err error
		last, ok, err = s.GenerateSignal(bar(c))
		if err != nil {
			t.Fatalf("unexpected error at close=%v: %v", c, err)
		}
	}
	if !ok {
		t.Fatal("expected a signal after warmup with a sustained uptrend")
	}
	if _, wantsCloseLong := last.Signals[event.CloseLong]; !wantsCloseLong {
		t.Error("expected CloseLong in signal map for overbought RSI")
	}
	if _, wantsShort := last.Signals[event.Short]; !wantsShort {
		t.Error("expected Short in signal map for overbought RSI")
	}
}
