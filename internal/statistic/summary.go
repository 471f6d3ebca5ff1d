package statistic

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// TablePrinter is implemented by anything the engine can hand its
// per-market statistics to for a final summary on termination.
type TablePrinter interface {
	Print(markets []Snapshot)
}

// TradingSummary renders per-market statistics as a console table,
// grounded on the same tablewriter.NewWriter/Header/Append/Render shape
// used for the secondary pack's opportunity and backtest tables.
type TradingSummary struct {
	out io.Writer
}

// NewTradingSummary returns a TradingSummary that writes to out.
func NewTradingSummary(out io.Writer) *TradingSummary {
	return &TradingSummary{out: out}
}

func (s *TradingSummary) Print(markets []Snapshot) {
	if len(markets) == 0 {
		fmt.Fprintln(s.out, "no markets traded")
		return
	}

	table := tablewriter.NewWriter(s.out)
	table.Header("Market", "Trades", "Mean Return %", "Std Dev", "Sharpe", "Sortino", "Max DD")

	for _, m := range markets {
		table.Append(
			fmt.Sprintf("%s_%s", m.Exchange, m.Symbol),
			fmt.Sprintf("%d", m.Count),
			meanReturnPct(m.Mean),
			fmt.Sprintf("%.4f", m.StdDev),
			fmt.Sprintf("%.4f", m.Sharpe),
			fmt.Sprintf("%.4f", m.Sortino),
			fmt.Sprintf("%.4f", m.MaxDrawdown),
		)
	}

	table.Render()
}

// meanReturnPct formats a fractional return as a percentage rounded to
// 2 decimal places. Display-only: the underlying accumulator keeps the
// full-precision float64 return, decimal is used purely to avoid
// floating-point artifacts (e.g. 12.340000000000002) reaching the table.
func meanReturnPct(mean float64) string {
	pct := decimal.NewFromFloat(mean).Mul(decimal.NewFromInt(100)).Round(2)
	return pct.String() + "%"
}
