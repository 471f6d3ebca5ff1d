package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")
	if err := os.WriteFile(path, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHistoricCSVSourceReplaysInOrder(t *testing.T) {
	path := writeCSV(t, ""+
		"2024-01-01T00:00:00Z,100,101,99,100.5,10\n"+
		"2024-01-01T00:01:00Z,100.5,102,100,101.5,12\n")

	src, err := NewHistoricCSVSource("binance", "BTCUSDT", path)
	if err != nil {
		t.Fatal(err)
	}

	var closes []float64
	for src.ShouldContinue() {
		bar, ok := src.GenerateMarket()
		if !ok {
			t.Fatal("expected a bar while ShouldContinue is true")
		}
		closes = append(closes, bar.Bar.Close)
		if bar.Exchange != "binance" || bar.Symbol != "BTCUSDT" {
			t.Errorf("market = %s/%s, want binance/BTCUSDT", bar.Exchange, bar.Symbol)
		}
	}

	want := []float64{100.5, 101.5}
	if len(closes) != len(want) {
		t.Fatalf("got %d bars, want %d", len(closes), len(want))
	}
	for i, c := range closes {
		if c != want[i] {
			t.Errorf("closes[%d] = %v, want %v", i, c, want[i])
		}
	}

	if src.ShouldContinue() {
		t.Error("expected ShouldContinue to be false once exhausted")
	}
	if _, ok := src.GenerateMarket(); ok {
		t.Error("expected GenerateMarket to report no data once exhausted")
	}
}

func TestNewHistoricCSVSourceMissingFile(t *testing.T) {
	if _, err := NewHistoricCSVSource("binance", "BTCUSDT", "/nonexistent/path.csv"); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}
