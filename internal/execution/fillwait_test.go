package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"optionflow/internal/api"
)

// pollBroker serves a scripted status sequence, repeating the last entry.
type pollBroker struct {
	fakeBroker
	statuses []string
	polls    int
}

func (b *pollBroker) GetOrder(ctx context.Context, orderID string) (*api.OrderRecord, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	idx := b.polls
	if idx >= len(b.statuses) {
		idx = len(b.statuses) - 1
	}
	b.polls++
	return &api.OrderRecord{ID: orderID, Status: b.statuses[idx]}, nil
}

func TestWaitForFill(t *testing.T) {
	t.Run("fills after a few polls", func(t *testing.T) {
		broker := &pollBroker{statuses: []string{api.StatusPending, api.StatusPending, api.StatusFilled}}
		filled, err := WaitForFill(context.Background(), broker, "ord-1", time.Second, time.Millisecond)
		if err != nil {
			t.Fatalf("WaitForFill failed: %v", err)
		}
		if !filled {
			t.Error("filled = false, want true")
		}
		if broker.polls != 3 {
			t.Errorf("polls = %d, want 3", broker.polls)
		}
	})

	t.Run("times out unfilled", func(t *testing.T) {
		broker := &pollBroker{statuses: []string{api.StatusPending}}
		start := time.Now()
		filled, err := WaitForFill(context.Background(), broker, "ord-1", 20*time.Millisecond, time.Millisecond)
		if err != nil {
			t.Fatalf("WaitForFill failed: %v", err)
		}
		if filled {
			t.Error("filled = true for never-filled order, want false")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("WaitForFill ran %v, want bounded by the timeout", elapsed)
		}
	})

	t.Run("cancelled order stops immediately", func(t *testing.T) {
		broker := &pollBroker{statuses: []string{api.StatusCancelled}}
		filled, err := WaitForFill(context.Background(), broker, "ord-1", time.Hour, time.Millisecond)
		if err != nil {
			t.Fatalf("WaitForFill failed: %v", err)
		}
		if filled {
			t.Error("filled = true for cancelled order, want false")
		}
		if broker.polls != 1 {
			t.Errorf("polls = %d, want 1", broker.polls)
		}
	})

	t.Run("poll failure aborts", func(t *testing.T) {
		broker := &pollBroker{statuses: []string{api.StatusPending}}
		broker.getErr = &api.APIError{StatusCode: 500, Endpoint: "/v1/orders/ord-1"}
		_, err := WaitForFill(context.Background(), broker, "ord-1", time.Second, time.Millisecond)
		var apiErr *api.APIError
		if !errors.As(err, &apiErr) {
			t.Errorf("error = %v, want *APIError", err)
		}
	})

	t.Run("context cancellation aborts", func(t *testing.T) {
		broker := &pollBroker{statuses: []string{api.StatusPending}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := WaitForFill(ctx, broker, "ord-1", time.Hour, time.Hour); err == nil {
			t.Error("WaitForFill = nil error with cancelled context, want error")
		}
	})
}
