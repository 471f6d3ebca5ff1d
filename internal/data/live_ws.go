package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tradecore/internal/event"
)

const (
	wsPingInterval     = 50 * time.Second
	wsReadTimeout      = 90 * time.Second
	wsMaxReconnectWait = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
	wsBufferSize       = 256
)

// wireBar is the on-the-wire bar shape a live feed emits; decoupled
// from event.Bar so a server-side rename doesn't ripple into the core
// event model.
type wireBar struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	Time     int64   `json:"time"` // unix seconds
}

// LiveWSSource streams bars over a WebSocket connection, auto-
// reconnecting with exponential backoff (1s → 30s). It satisfies the
// same Source interface a backtest's HistoricCSVSource does — the
// trader's pull loop is backend-agnostic.
type LiveWSSource struct {
	url    string
	logger *slog.Logger

	bars   chan event.MarketEvent
	done   atomic.Bool
	cancel context.CancelFunc
}

// NewLiveWSSource starts the background connection goroutine immediately
// and returns once dialing has been kicked off; run continues until ctx
// is cancelled or Close is called.
func NewLiveWSSource(ctx context.Context, url string, logger *slog.Logger) *LiveWSSource {
	ctx, cancel := context.WithCancel(ctx)
	s := &LiveWSSource{
		url:    url,
		logger: logger.With("component", "live_ws_source"),
		bars:   make(chan event.MarketEvent, wsBufferSize),
		cancel: cancel,
	}
	go s.run(ctx)
	return s
}

func (s *LiveWSSource) ShouldContinue() bool { return !s.done.Load() }

func (s *LiveWSSource) GenerateMarket() (event.MarketEvent, bool) {
	select {
	case m, ok := <-s.bars:
		if !ok {
			s.done.Store(true)
			return event.MarketEvent{}, false
		}
		return m, true
	default:
		return event.MarketEvent{}, false
	}
}

// Close stops the reconnect loop and releases the underlying connection.
func (s *LiveWSSource) Close() { s.cancel() }

func (s *LiveWSSource) run(ctx context.Context) {
	defer s.done.Store(true)
	defer close(s.bars)

	backoff := time.Second
	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > wsMaxReconnectWait {
			backoff = wsMaxReconnectWait
		}
	}
}

func (s *LiveWSSource) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.logger.Info("websocket connected", "url", s.url)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go s.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var bar wireBar
		if err := json.Unmarshal(msg, &bar); err != nil {
			s.logger.Debug("ignoring non-bar ws message", "data", string(msg))
			continue
		}

		m := event.MarketEvent{
			TraceID:   event.NewTraceID(),
			Timestamp: time.Unix(bar.Time, 0),
			Exchange:  bar.Exchange,
			Symbol:    bar.Symbol,
			Bar: event.Bar{
				Open: bar.Open, High: bar.High, Low: bar.Low, Close: bar.Close,
				Volume: bar.Volume, Timestamp: time.Unix(bar.Time, 0),
			},
		}
		select {
		case s.bars <- m:
		default:
			s.logger.Warn("bar channel full, dropping bar", "symbol", bar.Symbol)
		}
	}
}

func (s *LiveWSSource) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
