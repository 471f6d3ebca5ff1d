package strategy

import "tradecore/internal/event"

const (
	rsiOversold   = 40.0
	rsiOverbought = 60.0
)

// RSIStrategy is the illustrative SignalGenerator: a single-market
// Wilder-smoothed Relative Strength Index accumulator. It is
// deliberately stateful per instance — one RSIStrategy belongs to
// exactly one trader, matching the trader's one-goroutine-per-market
// ownership model, so no locking is needed here.
type RSIStrategy struct {
	period int

	lastClose float64
	avgGain   float64
	avgLoss   float64
	seen      int
	warm      bool
}

// NewRSIStrategy builds an RSI generator with the given lookback period
// (commonly 14).
func NewRSIStrategy(period int) *RSIStrategy {
	return &RSIStrategy{period: period}
}

func (s *RSIStrategy) GenerateSignal(market event.MarketEvent) (event.SignalEvent, bool, error) {
	close := market.Bar.Close

	if s.seen == 0 {
		s.lastClose = close
		s.seen++
		return event.SignalEvent{}, false, nil
	}

	delta := close - s.lastClose
	s.lastClose = close
	s.seen++

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	switch {
	case s.seen <= s.period+1:
		s.avgGain += gain
		s.avgLoss += loss
		if s.seen == s.period+1 {
			s.avgGain /= float64(s.period)
			s.avgLoss /= float64(s.period)
			s.warm = true
		}
	default:
		n := float64(s.period)
		s.avgGain = (s.avgGain*(n-1) + gain) / n
		s.avgLoss = (s.avgLoss*(n-1) + loss) / n
	}

	if !s.warm {
		return event.SignalEvent{}, false, nil
	}

	rsi := 100.0
	if s.avgLoss != 0 {
		rs := s.avgGain / s.avgLoss
		rsi = 100.0 - (100.0 / (1.0 + rs))
	}

	signals := map[event.Decision]float64{}
	switch {
	case rsi < rsiOversold:
		signals[event.Long] = 1
		signals[event.CloseShort] = 1
	case rsi > rsiOverbought:
		signals[event.CloseLong] = 1
		signals[event.Short] = 1
	default:
		return event.SignalEvent{}, false, nil
	}

	return event.SignalEvent{
		TraceID:    event.NewTraceID(),
		Timestamp:  market.Timestamp,
		Exchange:   market.Exchange,
		Symbol:     market.Symbol,
		MarketMeta: event.MarketMeta{ClosePrice: close, Timestamp: market.Timestamp},
		Signals:    signals,
	}, true, nil
}
