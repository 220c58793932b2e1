package model

import (
	"testing"
)

func TestJoinedRowColumns(t *testing.T) {
	t.Run("all fields present", func(t *testing.T) {
		row := JoinedRow{
			Symbol:     "SPX 240621C05000000",
			Delta:      Float64(25.0),
			Gamma:      Float64(1.234),
			Theta:      Float64(-4.5),
			Vega:       Float64(10.0),
			Rho:        Float64(0.5),
			Volatility: Float64(18.3),
			BidPrice:   Float64(12.5),
			AskPrice:   Float64(13.1),
			Time:       "2023-11-14T22:13:20Z",
		}

		cols := row.Columns()
		if len(cols) != 9 {
			t.Fatalf("Columns() returned %d columns, want 9", len(cols))
		}

		want := []string{
			"SPX 240621C05000000",
			"25.00", "1.23", "-4.50", "18.30", "10.00", "0.50",
			"12.5", "13.1",
		}
		for i, w := range want {
			if cols[i] != w {
				t.Errorf("Columns()[%d] = %q, want %q", i, cols[i], w)
			}
		}
	})

	t.Run("missing fields render as unavailable", func(t *testing.T) {
		row := JoinedRow{Symbol: "SPX 240621P04000000"}

		cols := row.Columns()
		for i := 1; i < len(cols); i++ {
			if cols[i] != Unavailable {
				t.Errorf("Columns()[%d] = %q, want %q", i, cols[i], Unavailable)
			}
		}
	})
}

func TestOptionTypeConstants(t *testing.T) {
	if Call != "C" || Put != "P" {
		t.Errorf("option type constants = %q/%q, want C/P", Call, Put)
	}
	if Buy != "buy" || Sell != "sell" {
		t.Errorf("order side constants = %q/%q, want buy/sell", Buy, Sell)
	}
}
