package model

import (
	"strconv"
)

// OptionType identifies a contract as a call or a put.
type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// Unavailable is the display marker for a missing numeric field.
const Unavailable = "N/A"

// Instrument identifies one option contract from a chain snapshot.
// Immutable once obtained.
type Instrument struct {
	Symbol         string     // Contract symbol (e.g., "SPX 240621C05000000")
	Underlying     string     // Underlying symbol (e.g., "SPX")
	Expiration     string     // Expiration date, "2006-01-02"
	Strike         float64    // Strike price
	Type           OptionType // Call or put
	StreamerSymbol string     // Subscription key for the market-data feed
}

// GreeksEvent is one greeks update from the streaming feed.
// Numeric fields may be absent (nil).
type GreeksEvent struct {
	Symbol     string   // Streamer symbol
	Delta      *float64
	Gamma      *float64
	Theta      *float64
	Vega       *float64
	Rho        *float64
	Volatility *float64 // Implied volatility
	Time       int64    // Event time (ms since epoch), 0 if absent
}

// QuoteEvent is one top-of-book update from the streaming feed.
type QuoteEvent struct {
	Symbol   string // Streamer symbol
	BidPrice *float64
	AskPrice *float64
}

// JoinedRow combines an instrument with its normalized greeks and quote.
// Greeks are percentage-scaled (raw ratio * 100); Time is RFC 3339 UTC.
type JoinedRow struct {
	Symbol     string // Contract symbol from the chain
	Delta      *float64
	Gamma      *float64
	Theta      *float64
	Vega       *float64
	Rho        *float64
	Volatility *float64
	BidPrice   *float64
	AskPrice   *float64
	Time       string // RFC 3339 UTC, empty if the feed gave no timestamp
}

// Columns returns the row's display columns in table order:
// symbol, delta, gamma, theta, implied volatility, vega, rho, bid, ask.
// Greeks are rounded to two decimals; missing fields render as Unavailable.
func (r JoinedRow) Columns() []string {
	return []string{
		r.Symbol,
		formatField(r.Delta, 2),
		formatField(r.Gamma, 2),
		formatField(r.Theta, 2),
		formatField(r.Volatility, 2),
		formatField(r.Vega, 2),
		formatField(r.Rho, 2),
		formatField(r.BidPrice, -1),
		formatField(r.AskPrice, -1),
	}
}

func formatField(v *float64, prec int) string {
	if v == nil {
		return Unavailable
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// Float64 returns a pointer to v. Helper for optional numeric fields.
func Float64(v float64) *float64 {
	return &v
}
