package api

import (
	"context"
	"fmt"
	"net/http"
)

// PlaceOrder submits an order. The brokerage must answer 201 Created;
// anything else is an *APIError. Never retried: a repeated POST could
// double-place the order.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (*OrderRecord, error) {
	var record OrderRecord
	if err := c.post(ctx, "/v1/orders", order, &record, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	return &record, nil
}

// GetOrder fetches the current status snapshot of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderRecord, error) {
	var record OrderRecord
	if err := c.get(ctx, "/v1/orders/"+orderID, nil, &record); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &record, nil
}

// CancelOrder requests cancellation of a resting order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.del(ctx, "/v1/orders/"+orderID); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}
