package engine

import (
	"context"
	"testing"
	"time"

	"tradecore/internal/control"
	"tradecore/internal/portfolio"
	"tradecore/internal/portfolio/repository"
	"tradecore/internal/statistic"
)

type stubTrader struct {
	ran  chan struct{}
	stop chan struct{}
}

func newStubTrader() *stubTrader {
	return &stubTrader{ran: make(chan struct{}), stop: make(chan struct{})}
}

func (s *stubTrader) Run(ctx context.Context) error {
	close(s.ran)
	select {
	case <-ctx.Done():
		return nil
	case <-s.stop:
		return nil
	}
}

type stubPrinter struct {
	called bool
}

func (p *stubPrinter) Print(markets []statistic.Snapshot) { p.called = true }

func testPortfolio(t *testing.T) *portfolio.Portfolio {
	t.Helper()
	p, err := portfolio.New("engine-1", repository.NewInMemoryRepository(), portfolio.DefaultAllocator{}, portfolio.DefaultRisk{}, 10000, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEngineBuilderRequiresFields(t *testing.T) {
	_, err := NewEngineBuilder().Build()
	if err == nil {
		t.Fatal("expected an error building with no fields set")
	}
}

func TestEngineRunsUntilContextCancelled(t *testing.T) {
	market := control.Market{Exchange: "binance", Symbol: "BTCUSDT"}
	tr := newStubTrader()
	printer := &stubPrinter{}

	e, err := NewEngineBuilder().
		EngineID("engine-1").
		Portfolio(testPortfolio(t)).
		Printer(printer).
		AddTrader(market, tr, NewCommandChannel()).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	<-tr.ran
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after context cancellation")
	}
	if !printer.called {
		t.Error("expected summary to be printed on shutdown")
	}
}

func TestEngineTerminateBroadcastsGracefully(t *testing.T) {
	market := control.Market{Exchange: "binance", Symbol: "BTCUSDT"}
	tr := newStubTrader()
	cmdCh := NewCommandChannel()

	e, err := NewEngineBuilder().
		EngineID("engine-1").
		Portfolio(testPortfolio(t)).
		AddTrader(market, tr, cmdCh).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	<-tr.ran
	e.Commands() <- control.Terminate{Message: "shutdown"}

	select {
	case <-done:
	case <-time.After(TerminateGracePeriod + 2*time.Second):
		t.Fatal("engine did not stop after Terminate")
	}

	// The stub trader never reads its channel, so both broadcasts are
	// still buffered in the order the engine sent them.
	for _, want := range []control.Kind{control.KindExitPosition, control.KindTerminate} {
		select {
		case cmd := <-cmdCh:
			if cmd.Kind() != want {
				t.Fatalf("trader command = %v, want %v", cmd.Kind(), want)
			}
		default:
			t.Fatalf("expected a %v command on the trader channel", want)
		}
	}
}

func TestEngineFetchOpenPositionsRepliesEmpty(t *testing.T) {
	market := control.Market{Exchange: "binance", Symbol: "BTCUSDT"}
	tr := newStubTrader()

	e, err := NewEngineBuilder().
		EngineID("engine-1").
		Portfolio(testPortfolio(t)).
		AddTrader(market, tr, NewCommandChannel()).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	<-tr.ran

	reply := make(chan control.FetchOpenPositionsResult, 1)
	e.Commands() <- control.FetchOpenPositions{Reply: reply}

	select {
	case res := <-reply:
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if len(res.Positions) != 0 {
			t.Fatalf("expected no open positions, got %d", len(res.Positions))
		}
	case <-time.After(time.Second):
		t.Fatal("no reply received")
	}

	cancel()
	<-done
}
