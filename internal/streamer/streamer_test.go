package streamer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// fakeFeed upgrades connections, acknowledges commands, and emits one event
// per subscribed symbol.
func fakeFeed(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var cmd Command
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}

			switch cmd.Cmd {
			case "subscribe":
				conn.WriteJSON(map[string]any{"type": "subscribed", "id": cmd.ID})
				for _, sym := range cmd.Params.Symbols {
					var payload []byte
					switch EventKind(cmd.Params.EventType) {
					case KindGreeks:
						payload, _ = json.Marshal(greeksPayload{
							EventSymbol: sym,
							Delta:       ptr(0.25),
							Volatility:  ptr(0.183),
							Time:        1700000000000,
						})
					case KindQuote:
						payload, _ = json.Marshal(quotePayload{
							EventSymbol: sym,
							BidPrice:    ptr(1.5),
							AskPrice:    ptr(1.7),
						})
					}
					conn.WriteJSON(map[string]any{
						"type":       "event",
						"event_type": cmd.Params.EventType,
						"data":       json.RawMessage(payload),
					})
				}
			case "unsubscribe":
				conn.WriteJSON(map[string]any{"type": "unsubscribed", "id": cmd.ID})
			}
		}
	}))
}

func ptr(v float64) *float64 { return &v }

func dialFake(t *testing.T, server *httptest.Server) *Streamer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(server.URL, "http")
	cfg.CommandTimeout = 2 * time.Second

	s, err := Dial(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	return s
}

func TestSubscribeAndNextEvent(t *testing.T) {
	server := fakeFeed(t)
	defer server.Close()

	s := dialFake(t, server)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	symbols := []string{".SPX240621C5000", ".SPX240621C5100"}
	if err := s.Subscribe(ctx, KindGreeks, symbols); err != nil {
		t.Fatalf("Subscribe greeks failed: %v", err)
	}

	seen := make(map[string]bool)
	for range symbols {
		ev, err := s.NextEvent(ctx, KindGreeks)
		if err != nil {
			t.Fatalf("NextEvent failed: %v", err)
		}
		if ev.Kind != KindGreeks || ev.Greeks == nil {
			t.Fatalf("event = %+v, want greeks event", ev)
		}
		if ev.Greeks.Delta == nil || *ev.Greeks.Delta != 0.25 {
			t.Errorf("Delta = %v, want 0.25", ev.Greeks.Delta)
		}
		seen[ev.Greeks.Symbol] = true
	}
	for _, sym := range symbols {
		if !seen[sym] {
			t.Errorf("no greeks event for %s", sym)
		}
	}

	if err := s.Subscribe(ctx, KindQuote, symbols); err != nil {
		t.Fatalf("Subscribe quotes failed: %v", err)
	}
	ev, err := s.NextEvent(ctx, KindQuote)
	if err != nil {
		t.Fatalf("NextEvent quote failed: %v", err)
	}
	if ev.Quote == nil || ev.Quote.BidPrice == nil || *ev.Quote.BidPrice != 1.5 {
		t.Errorf("quote event = %+v, want bid 1.5", ev)
	}

	if err := s.Unsubscribe(ctx, KindGreeks, symbols); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
}

func TestNextEventContextCancel(t *testing.T) {
	server := fakeFeed(t)
	defer server.Close()

	s := dialFake(t, server)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// No subscription: no events will arrive.
	if _, err := s.NextEvent(ctx, KindQuote); err != context.DeadlineExceeded {
		t.Errorf("NextEvent error = %v, want context.DeadlineExceeded", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server := fakeFeed(t)
	defer server.Close()

	s := dialFake(t, server)

	if err := s.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if s.IsConnected() {
		t.Error("IsConnected() = true after Close, want false")
	}

	if err := s.Subscribe(context.Background(), KindGreeks, nil); err == nil {
		t.Error("Subscribe after Close = nil error, want ErrNotConnected")
	}
}

func TestStaleConnectionCloses(t *testing.T) {
	server := fakeFeed(t)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(server.URL, "http")
	cfg.PingInterval = 10 * time.Millisecond
	cfg.PingTimeout = time.Millisecond

	s, err := Dial(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer s.Close()

	// The heartbeat declares the connection stale on its first tick and
	// closes it, so a blocked NextEvent unblocks without a caller timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.NextEvent(ctx, KindQuote); err != ErrNotConnected {
		t.Errorf("NextEvent error = %v, want ErrNotConnected", err)
	}
	if s.IsConnected() {
		t.Error("IsConnected() = true after stale close, want false")
	}
}

func TestUnknownEventKind(t *testing.T) {
	server := fakeFeed(t)
	defer server.Close()

	s := dialFake(t, server)
	defer s.Close()

	if _, err := s.NextEvent(context.Background(), EventKind("Trade")); err == nil {
		t.Error("NextEvent for unknown kind = nil error, want error")
	}
}
