package data

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"tradecore/internal/event"
)

// restBar mirrors the wire shape returned by a REST OHLCV endpoint.
type restBar struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Time   int64   `json:"time"`
}

// RestPollSource polls a REST endpoint for the latest bar on a fixed
// interval, scanning immediately on construction and then on every tick
// thereafter.
type RestPollSource struct {
	client   *resty.Client
	endpoint string
	exchange string
	symbol   string
	logger   *slog.Logger

	bars   chan event.MarketEvent
	cancel context.CancelFunc
}

// NewRestPollSource builds a client against endpoint and starts polling
// immediately at the given interval.
func NewRestPollSource(ctx context.Context, endpoint, exchange, symbol string, interval time.Duration, logger *slog.Logger) *RestPollSource {
	ctx, cancel := context.WithCancel(ctx)
	s := &RestPollSource{
		client:   resty.New().SetTimeout(10 * time.Second),
		endpoint: endpoint,
		exchange: exchange,
		symbol:   symbol,
		logger:   logger.With("component", "rest_poll_source", "symbol", symbol),
		bars:     make(chan event.MarketEvent, wsBufferSize),
		cancel:   cancel,
	}
	go s.run(ctx, interval)
	return s
}

func (s *RestPollSource) ShouldContinue() bool { return true }

func (s *RestPollSource) GenerateMarket() (event.MarketEvent, bool) {
	select {
	case m := <-s.bars:
		return m, true
	default:
		return event.MarketEvent{}, false
	}
}

// Close stops polling.
func (s *RestPollSource) Close() { s.cancel() }

func (s *RestPollSource) run(ctx context.Context, interval time.Duration) {
	s.poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *RestPollSource) poll(ctx context.Context) {
	var bar restBar
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&bar).
		SetQueryParam("symbol", s.symbol).
		Get(s.endpoint)
	if err != nil {
		s.logger.Warn("rest poll failed", "error", err)
		return
	}
	if resp.IsError() {
		s.logger.Warn("rest poll returned error status", "status", resp.StatusCode())
		return
	}

	ts := time.Unix(bar.Time, 0)
	m := event.MarketEvent{
		TraceID:   event.NewTraceID(),
		Timestamp: ts,
		Exchange:  s.exchange,
		Symbol:    s.symbol,
		Bar: event.Bar{
			Open: bar.Open, High: bar.High, Low: bar.Low, Close: bar.Close,
			Volume: bar.Volume, Timestamp: ts,
		},
	}
	select {
	case s.bars <- m:
	default:
		s.logger.Warn("bar channel full, dropping bar")
	}
}
