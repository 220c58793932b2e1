package streamer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"optionflow/internal/model"
)

// Event is one demultiplexed feed event. Exactly one of Greeks/Quote is set,
// matching Kind.
type Event struct {
	Kind   EventKind
	Greeks *model.GreeksEvent
	Quote  *model.QuoteEvent
}

// Streamer is a single websocket connection to the market-data feed.
type Streamer struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Per-kind event delivery
	greeks chan Event
	quotes chan Event

	// Command/response correlation
	pendingMu sync.Mutex
	pending   map[int64]chan inbound
	cmdID     int64

	// Write serialization
	writeMu sync.Mutex

	done chan struct{}

	mu         sync.RWMutex
	connected  bool
	closed     bool
	lastPingAt time.Time
}

// Dial opens the feed connection and starts the read and heartbeat loops.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Streamer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if cfg.Token != "" {
		header.Set("Authorization", cfg.Token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	s := &Streamer{
		cfg:        cfg,
		logger:     logger,
		conn:       conn,
		greeks:     make(chan Event, cfg.BufferSize),
		quotes:     make(chan Event, cfg.BufferSize),
		pending:    make(map[int64]chan inbound),
		done:       make(chan struct{}),
		connected:  true,
		lastPingAt: time.Now(),
	}

	conn.SetPingHandler(func(data string) error {
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()
		return nil
	})

	go s.readLoop()
	go s.heartbeatLoop()

	logger.Debug("feed connected", "url", cfg.URL)

	return s, nil
}

// Subscribe subscribes the connection to one event kind for the given
// streamer symbols and waits for the acknowledgement.
func (s *Streamer) Subscribe(ctx context.Context, kind EventKind, symbols []string) error {
	resp, err := s.command(ctx, "subscribe", kind, symbols)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", kind, err)
	}
	if resp.Type != "subscribed" {
		return fmt.Errorf("subscribe %s: %w: %s", kind, ErrCommandFailed, resp.Message)
	}
	return nil
}

// Unsubscribe removes the subscription for one event kind.
func (s *Streamer) Unsubscribe(ctx context.Context, kind EventKind, symbols []string) error {
	resp, err := s.command(ctx, "unsubscribe", kind, symbols)
	if err != nil {
		return fmt.Errorf("unsubscribe %s: %w", kind, err)
	}
	if resp.Type != "unsubscribed" {
		return fmt.Errorf("unsubscribe %s: %w: %s", kind, ErrCommandFailed, resp.Message)
	}
	return nil
}

// NextEvent returns the next pending event of the given kind. Must be called
// after Subscribe. Blocks until an event arrives, the context is done, or the
// connection closes.
func (s *Streamer) NextEvent(ctx context.Context, kind EventKind) (Event, error) {
	var ch chan Event
	switch kind {
	case KindGreeks:
		ch = s.greeks
	case KindQuote:
		ch = s.quotes
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}

	select {
	case ev := <-ch:
		return ev, nil
	case <-s.done:
		return Event{}, ErrNotConnected
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close gracefully closes the connection. Safe to call more than once.
func (s *Streamer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	s.mu.Unlock()

	close(s.done)

	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}

// IsConnected returns current connection state.
func (s *Streamer) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// command sends one command and waits for its correlated response.
func (s *Streamer) command(ctx context.Context, cmd string, kind EventKind, symbols []string) (*inbound, error) {
	s.mu.RLock()
	if !s.connected {
		s.mu.RUnlock()
		return nil, ErrNotConnected
	}
	s.mu.RUnlock()

	s.pendingMu.Lock()
	s.cmdID++
	id := s.cmdID
	respCh := make(chan inbound, 1)
	s.pending[id] = respCh
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	data, err := json.Marshal(Command{
		ID:  id,
		Cmd: cmd,
		Params: SubscribeParams{
			EventType: string(kind),
			Symbols:   symbols,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if err := s.send(data); err != nil {
		return nil, err
	}

	timeout := s.cfg.CommandTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	select {
	case resp := <-respCh:
		return &resp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%s %s: command timeout", cmd, kind)
	case <-s.done:
		return nil, ErrNotConnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// send writes raw bytes to the connection.
func (s *Streamer) send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads messages and routes them to pending commands or the
// per-kind event channels.
func (s *Streamer) readLoop() {
	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-s.done:
			default:
				s.logger.Debug("feed read error", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("undecodable feed message", "error", err)
			continue
		}

		switch msg.Type {
		case "event":
			s.routeEvent(msg)
		default:
			s.routeResponse(msg)
		}
	}
}

// routeResponse delivers a command acknowledgement to its waiter.
func (s *Streamer) routeResponse(msg inbound) {
	s.pendingMu.Lock()
	ch, ok := s.pending[msg.ID]
	s.pendingMu.Unlock()

	if !ok {
		s.logger.Warn("response for unknown command", "id", msg.ID, "type", msg.Type)
		return
	}

	select {
	case ch <- msg:
	default:
	}
}

// routeEvent decodes an event payload and delivers it to its kind channel.
func (s *Streamer) routeEvent(msg inbound) {
	switch EventKind(msg.EventType) {
	case KindGreeks:
		var p greeksPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			s.logger.Warn("undecodable greeks event", "error", err)
			return
		}
		s.deliver(s.greeks, Event{
			Kind: KindGreeks,
			Greeks: &model.GreeksEvent{
				Symbol:     p.EventSymbol,
				Delta:      p.Delta,
				Gamma:      p.Gamma,
				Theta:      p.Theta,
				Vega:       p.Vega,
				Rho:        p.Rho,
				Volatility: p.Volatility,
				Time:       p.Time,
			},
		})
	case KindQuote:
		var p quotePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			s.logger.Warn("undecodable quote event", "error", err)
			return
		}
		s.deliver(s.quotes, Event{
			Kind: KindQuote,
			Quote: &model.QuoteEvent{
				Symbol:   p.EventSymbol,
				BidPrice: p.BidPrice,
				AskPrice: p.AskPrice,
			},
		})
	default:
		s.logger.Warn("event of unknown kind", "event_type", msg.EventType)
	}
}

func (s *Streamer) deliver(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	case <-s.done:
	default:
		s.logger.Warn("event buffer full, dropping event", "kind", ev.Kind)
	}
}

// heartbeatLoop monitors for stale connections and closes them, unblocking
// any NextEvent waiters.
func (s *Streamer) heartbeatLoop() {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.RLock()
			lastPing := s.lastPingAt
			s.mu.RUnlock()

			if s.cfg.PingTimeout > 0 && time.Since(lastPing) > s.cfg.PingTimeout {
				s.logger.Warn("no ping received, closing stale connection",
					"last_ping", lastPing,
					"timeout", s.cfg.PingTimeout,
				)
				s.Close()
				return
			}

			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}
