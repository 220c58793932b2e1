package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"optionflow/internal/model"
)

func TestPlaceOrder(t *testing.T) {
	t.Run("created order is decoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var req OrderRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.OrderType != OrderTypeLimit || req.Price == nil {
				t.Errorf("request = %+v, want limit order with price", req)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(OrderRecord{
				ID:     "ord-1",
				Symbol: req.Symbol,
				Status: StatusPending,
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		price := 5.0
		record, err := c.PlaceOrder(context.Background(), OrderRequest{
			Symbol:      "AAPL",
			Quantity:    1,
			Side:        string(model.Buy),
			Price:       &price,
			Expiration:  "2024-06-21",
			Strike:      150,
			OptionType:  string(model.Call),
			OrderType:   OrderTypeLimit,
			TimeInForce: TimeInForceDay,
		})
		if err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		if record.ID != "ord-1" || record.Status != StatusPending {
			t.Errorf("record = %+v, want id ord-1 pending", record)
		}
	})

	t.Run("non-201 is APIError and never retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		_, err := c.PlaceOrder(context.Background(), OrderRequest{Symbol: "AAPL"})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if calls.Load() != 1 {
			t.Errorf("server called %d times, want 1 (no retry on POST)", calls.Load())
		}
	})

	t.Run("200 is not created", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id": "ord-2"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		if _, err := c.PlaceOrder(context.Background(), OrderRequest{Symbol: "AAPL"}); err == nil {
			t.Error("PlaceOrder = nil error for 200 response, want APIError (expects 201)")
		}
	})
}

func TestGetOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders/ord-9" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(OrderRecord{ID: "ord-9", Status: StatusFilled})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	record, err := c.GetOrder(context.Background(), "ord-9")
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if record.Status != StatusFilled {
		t.Errorf("Status = %q, want FILLED", record.Status)
	}
	if !record.IsTerminal() {
		t.Error("IsTerminal() = false for FILLED, want true")
	}
}

func TestCancelOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/orders/ord-3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	if err := c.CancelOrder(context.Background(), "ord-3"); err != nil {
		t.Errorf("CancelOrder failed: %v", err)
	}
	if err := c.CancelOrder(context.Background(), "missing"); err == nil {
		t.Error("CancelOrder = nil error for unknown order, want error")
	}
}

func TestOrderRecordIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusFilled, true},
		{StatusCancelled, true},
		{StatusRejected, true},
		{StatusPending, false},
		{"LIVE", false},
	}
	for _, tt := range tests {
		record := OrderRecord{Status: tt.status}
		if got := record.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal() for %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
