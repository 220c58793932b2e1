package api

import (
	"optionflow/internal/model"
)

// OptionChainResponse from GET /v1/marketdata/option-chains/{symbol}/options
type OptionChainResponse struct {
	Data struct {
		Items []ChainItem `json:"items"`
	} `json:"data"`
}

// ChainItem represents one option contract in a chain snapshot.
type ChainItem struct {
	Symbol         string  `json:"symbol"`
	ExpirationDate string  `json:"expiration-date"` // "2006-01-02"
	StrikePrice    float64 `json:"strike-price"`
	OptionType     string  `json:"option-type"` // "C" or "P"
	BidPrice       float64 `json:"bid-price"`
	AskPrice       float64 `json:"ask-price"`
	StreamerSymbol string  `json:"streamer-symbol"`
	DaysToExpire   int     `json:"days-to-expiration"`
}

// OrderRequest is the body for POST /v1/orders.
// Price is nil for market orders. Immutable once sent.
type OrderRequest struct {
	Symbol      string   `json:"symbol"`
	Quantity    int      `json:"quantity"`
	Side        string   `json:"side"` // "buy" or "sell"
	Price       *float64 `json:"price,omitempty"`
	Expiration  string   `json:"expiration"`
	Strike      float64  `json:"strike"`
	OptionType  string   `json:"option_type"`
	OrderType   string   `json:"order_type"`    // "LIMIT" or "MARKET"
	TimeInForce string   `json:"time_in_force"` // "DAY"
}

// Order type and time-in-force values.
const (
	OrderTypeLimit  = "LIMIT"
	OrderTypeMarket = "MARKET"
	TimeInForceDay  = "DAY"
)

// Order status values reported by the brokerage.
const (
	StatusPending   = "PENDING"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
	StatusRejected  = "REJECTED"
)

// OrderRecord is the server's view of an order. Each status poll returns a
// fresh snapshot; records are never mutated locally.
type OrderRecord struct {
	ID       string   `json:"id"`
	Symbol   string   `json:"symbol"`
	Quantity int      `json:"quantity"`
	Side     string   `json:"side"`
	Price    *float64 `json:"price,omitempty"`
	Type     string   `json:"order_type"`
	Status   string   `json:"status"`
}

// IsTerminal reports whether the order can no longer fill.
func (o *OrderRecord) IsTerminal() bool {
	switch o.Status {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// ToInstrument converts a ChainItem to a model.Instrument.
func (i *ChainItem) ToInstrument(underlying string) model.Instrument {
	return model.Instrument{
		Symbol:         i.Symbol,
		Underlying:     underlying,
		Expiration:     i.ExpirationDate,
		Strike:         i.StrikePrice,
		Type:           model.OptionType(i.OptionType),
		StreamerSymbol: i.StreamerSymbol,
	}
}
