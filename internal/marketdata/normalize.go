package marketdata

import (
	"time"

	"optionflow/internal/model"
)

// normalizeRow builds the display row for one instrument. Greeks and implied
// volatility arrive as raw ratios and are scaled to percentages; the event
// timestamp arrives as epoch milliseconds and is rendered RFC 3339 UTC.
// Missing fields stay nil and render as the unavailable marker later.
func normalizeRow(inst model.Instrument, g *model.GreeksEvent, q *model.QuoteEvent) model.JoinedRow {
	return model.JoinedRow{
		Symbol:     inst.Symbol,
		Delta:      scalePercent(g.Delta),
		Gamma:      scalePercent(g.Gamma),
		Theta:      scalePercent(g.Theta),
		Vega:       scalePercent(g.Vega),
		Rho:        scalePercent(g.Rho),
		Volatility: scalePercent(g.Volatility),
		BidPrice:   q.BidPrice,
		AskPrice:   q.AskPrice,
		Time:       formatEventTime(g.Time),
	}
}

// scalePercent converts a raw ratio to a percentage. Nil passes through.
func scalePercent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v * 100
	return &scaled
}

// formatEventTime converts epoch milliseconds to an RFC 3339 UTC string.
// A zero timestamp means the feed gave none and renders empty.
func formatEventTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
