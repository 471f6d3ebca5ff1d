package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"tradecore/internal/event"
)

// HistoricCSVSource reads OHLCV bars from a CSV file with the columns
// timestamp,open,high,low,close,volume (RFC3339 timestamp), replaying
// them in file order. Intended for offline backtests.
type HistoricCSVSource struct {
	exchange string
	symbol   string
	rows     [][]string
	index    int
}

// NewHistoricCSVSource opens path and loads every row into memory; bar
// history for a single backtest run is expected to be bounded in size.
func NewHistoricCSVSource(exchange, symbol, path string) (*HistoricCSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: read %q: %w", path, err)
		}
		rows = append(rows, row)
	}

	return &HistoricCSVSource{exchange: exchange, symbol: symbol, rows: rows}, nil
}

func (s *HistoricCSVSource) ShouldContinue() bool {
	return s.index < len(s.rows)
}

func (s *HistoricCSVSource) GenerateMarket() (event.MarketEvent, bool) {
	if !s.ShouldContinue() {
		return event.MarketEvent{}, false
	}
	row := s.rows[s.index]
	s.index++

	if len(row) < 6 {
		return event.MarketEvent{}, false
	}

	ts, _ := time.Parse(time.RFC3339, row[0])
	open, _ := strconv.ParseFloat(row[1], 64)
	high, _ := strconv.ParseFloat(row[2], 64)
	low, _ := strconv.ParseFloat(row[3], 64)
	closePrice, _ := strconv.ParseFloat(row[4], 64)
	volume, _ := strconv.ParseFloat(row[5], 64)

	return event.MarketEvent{
		TraceID:   event.NewTraceID(),
		Timestamp: ts,
		Exchange:  s.exchange,
		Symbol:    s.symbol,
		Bar: event.Bar{
			Open: open, High: high, Low: low, Close: closePrice, Volume: volume,
			Timestamp: ts,
		},
	}, true
}
