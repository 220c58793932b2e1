// Package api provides the brokerage REST API client.
//
// Endpoints consumed:
//   - GET  /v1/marketdata/option-chains/{symbol}/options (option chain snapshot)
//   - POST /v1/orders (order placement, limit and market)
//   - GET  /v1/orders/{id} (order status)
//   - DELETE /v1/orders/{id} (order cancellation)
//
// GETs retry on 5xx/429 with jittered exponential backoff. Order placement is
// never retried automatically; repricing is the execution engine's job.
package api
