package execution

import (
	"context"

	"optionflow/internal/api"
	"optionflow/internal/model"
)

// Broker is the brokerage surface the engine needs. *api.Client satisfies it.
type Broker interface {
	LookupQuote(ctx context.Context, symbol, expiration string, strike float64, optionType model.OptionType) (*api.ChainItem, error)
	PlaceOrder(ctx context.Context, req api.OrderRequest) (*api.OrderRecord, error)
	GetOrder(ctx context.Context, orderID string) (*api.OrderRecord, error)
	CancelOrder(ctx context.Context, orderID string) error
}
