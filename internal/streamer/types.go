package streamer

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrCommandFailed = errors.New("feed command rejected")
)

// EventKind identifies a feed event stream.
type EventKind string

const (
	KindGreeks EventKind = "Greeks"
	KindQuote  EventKind = "Quote"
)

// Command is a feed command sent to the server.
type Command struct {
	ID     int64           `json:"id"`
	Cmd    string          `json:"cmd"` // "subscribe" or "unsubscribe"
	Params SubscribeParams `json:"params"`
}

// SubscribeParams are parameters for subscribe/unsubscribe commands.
type SubscribeParams struct {
	EventType string   `json:"event_type"`
	Symbols   []string `json:"symbols"`
}

// inbound is the envelope for all messages from the server.
type inbound struct {
	Type      string          `json:"type"` // "subscribed", "unsubscribed", "error", "event"
	ID        int64           `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// greeksPayload is the wire form of a greeks event.
type greeksPayload struct {
	EventSymbol string   `json:"eventSymbol"`
	Delta       *float64 `json:"delta"`
	Gamma       *float64 `json:"gamma"`
	Theta       *float64 `json:"theta"`
	Vega        *float64 `json:"vega"`
	Rho         *float64 `json:"rho"`
	Volatility  *float64 `json:"volatility"`
	Time        int64    `json:"time"` // ms since epoch
}

// quotePayload is the wire form of a quote event.
type quotePayload struct {
	EventSymbol string   `json:"eventSymbol"`
	BidPrice    *float64 `json:"bidPrice"`
	AskPrice    *float64 `json:"askPrice"`
}

// Config configures a feed connection.
type Config struct {
	URL              string        // Websocket URL
	Token            string        // Session token for the Authorization header
	HandshakeTimeout time.Duration // Dial handshake deadline
	WriteTimeout     time.Duration // Write deadline for sends
	CommandTimeout   time.Duration // Max wait for a command acknowledgement
	PingInterval     time.Duration // Keepalive ping cadence
	PingTimeout      time.Duration // Max time without ping before the connection is closed as stale
	BufferSize       int           // Per-kind delivery buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		CommandTimeout:   10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		BufferSize:       1000,
	}
}
