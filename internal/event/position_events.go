package event

import "time"

// PositionSnapshot is a point-in-time copy of a position's accounting
// fields, carried by PositionNew/PositionUpdate/PositionExit events. It
// duplicates internal/portfolio/position.Position's exported fields
// rather than importing that package, keeping event dependency-free of
// the portfolio layer it is consumed by.
type PositionSnapshot struct {
	PositionID            string
	Exchange              string
	Symbol                string
	Direction             string
	EntryTimestamp        time.Time
	EntryPrice            float64
	EntryFeesTotal        float64
	EnterValueGross       float64
	EnterAvgPriceGross    float64
	CurrentSymbolPrice    float64
	CurrentValueGross     float64
	ExitFeesTotal         float64
	Quantity              float64
	UnrealisedProfitTotal float64
	RealisedProfitTotal   float64
	ResultProfitPct       float64
}

// PositionNewEvent is emitted the moment a position is opened.
type PositionNewEvent struct {
	Position PositionSnapshot
}

func (PositionNewEvent) Kind() Kind { return KindPositionNew }

// PositionUpdateEvent is emitted on every MarketEvent that updates an
// open position's mark-to-market fields.
type PositionUpdateEvent struct {
	Position PositionSnapshot
}

func (PositionUpdateEvent) Kind() Kind { return KindPositionUpdate }

// PositionExitEvent is emitted once, the moment a position is closed.
type PositionExitEvent struct {
	Position PositionSnapshot
}

func (PositionExitEvent) Kind() Kind { return KindPositionExit }
