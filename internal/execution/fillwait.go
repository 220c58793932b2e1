package execution

import (
	"context"
	"time"

	"optionflow/internal/api"
)

// WaitForFill polls the order status until it fills or the timeout elapses.
// Returns true only for FILLED. A cancelled or rejected order returns false
// immediately. Status poll failures abort the wait.
func WaitForFill(ctx context.Context, broker Broker, orderID string, timeout, interval time.Duration) (bool, error) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		record, err := broker.GetOrder(ctx, orderID)
		if err != nil {
			return false, err
		}
		if record.Status == api.StatusFilled {
			return true, nil
		}
		if record.IsTerminal() {
			return false, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}
