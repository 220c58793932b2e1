package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"optionflow/internal/api"
	"optionflow/internal/model"
)

// Outcome classifies how an execution run ended.
type Outcome string

const (
	// OutcomeFilled means a limit order filled.
	OutcomeFilled Outcome = "filled"
	// OutcomeFilledMarket means the market fallback filled.
	OutcomeFilledMarket Outcome = "filled_market"
	// OutcomeUnfilled means every attempt went unfilled.
	OutcomeUnfilled Outcome = "unfilled"
	// OutcomeFailed means a brokerage request failed mid-run.
	OutcomeFailed Outcome = "failed"
)

// OrderSpec describes the contract and direction to execute.
type OrderSpec struct {
	Symbol     string
	Expiration string // "2006-01-02"
	Strike     float64
	Type       model.OptionType
	Side       model.OrderSide
	Quantity   int
}

// Attempt records one order placed during a run.
type Attempt struct {
	Seq       int
	OrderID   string
	OrderType string // LIMIT or MARKET
	Price     *float64
	Filled    bool
	PlacedAt  time.Time
}

// Result is the full trace of one execution run.
type Result struct {
	RunID    uuid.UUID
	Spec     OrderSpec
	Outcome  Outcome
	Attempts []Attempt
	Order    *api.OrderRecord // final order when the run filled
}

// Config tunes the engine.
type Config struct {
	MaxAttempts    int           // Limit order attempts before the fallback
	AttemptTimeout time.Duration // Per-attempt fill wait
	PollInterval   time.Duration // Status poll cadence
	CancelUnfilled bool          // Cancel resting limit orders between attempts
	MarketFallback bool          // Place a market order after exhaustion
}

// Engine runs adaptive order execution against a broker.
type Engine struct {
	broker Broker
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger falls back to slog.Default().
func NewEngine(broker Broker, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 2 * time.Second
	}
	return &Engine{broker: broker, cfg: cfg, logger: logger}
}

// limitPrice walks from the mid toward the far side of the spread. Attempt 0
// is the exact mid; each later attempt moves attempt/maxAttempts of the
// spread in the aggressive direction for the side.
func limitPrice(side model.OrderSide, bid, ask float64, attempt, maxAttempts int) float64 {
	mid := (bid + ask) / 2
	adjustment := float64(attempt) / float64(maxAttempts) * (ask - bid)
	if side == model.Buy {
		return mid + adjustment
	}
	return mid - adjustment
}

// Execute runs the adaptive sequence for one order spec. Exhausting every
// attempt is reported in the result, not as an error; errors mean a
// brokerage request failed and the run stopped.
func (e *Engine) Execute(ctx context.Context, spec OrderSpec) (*Result, error) {
	res := &Result{
		RunID: uuid.New(),
		Spec:  spec,
	}
	logger := e.logger.With("run_id", res.RunID, "symbol", spec.Symbol, "side", spec.Side)

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		quote, err := e.broker.LookupQuote(ctx, spec.Symbol, spec.Expiration, spec.Strike, spec.Type)
		if err != nil {
			res.Outcome = OutcomeFailed
			return res, fmt.Errorf("lookup quote: %w", err)
		}

		price := limitPrice(spec.Side, quote.BidPrice, quote.AskPrice, attempt, e.cfg.MaxAttempts)
		logger.Info("placing limit order",
			"attempt", attempt,
			"price", price,
			"bid", quote.BidPrice,
			"ask", quote.AskPrice,
		)

		order, err := e.broker.PlaceOrder(ctx, api.OrderRequest{
			Symbol:      spec.Symbol,
			Quantity:    spec.Quantity,
			Side:        string(spec.Side),
			Price:       &price,
			Expiration:  spec.Expiration,
			Strike:      spec.Strike,
			OptionType:  string(spec.Type),
			OrderType:   api.OrderTypeLimit,
			TimeInForce: api.TimeInForceDay,
		})
		if err != nil {
			res.Outcome = OutcomeFailed
			return res, fmt.Errorf("place limit order: %w", err)
		}

		att := Attempt{
			Seq:       attempt,
			OrderID:   order.ID,
			OrderType: api.OrderTypeLimit,
			Price:     &price,
			PlacedAt:  time.Now().UTC(),
		}

		filled, err := WaitForFill(ctx, e.broker, order.ID, e.cfg.AttemptTimeout, e.cfg.PollInterval)
		if err != nil {
			res.Attempts = append(res.Attempts, att)
			res.Outcome = OutcomeFailed
			return res, fmt.Errorf("wait for fill: %w", err)
		}
		if filled {
			att.Filled = true
			res.Attempts = append(res.Attempts, att)
			res.Outcome = OutcomeFilled
			res.Order = order
			logger.Info("limit order filled", "attempt", attempt, "order_id", order.ID)
			return res, nil
		}

		if e.cfg.CancelUnfilled {
			filledInstead, err := e.cancelAndConfirm(ctx, logger, order.ID)
			if err != nil {
				res.Attempts = append(res.Attempts, att)
				res.Outcome = OutcomeFailed
				return res, err
			}
			if filledInstead != nil {
				att.Filled = true
				res.Attempts = append(res.Attempts, att)
				res.Outcome = OutcomeFilled
				res.Order = filledInstead
				logger.Info("limit order filled during cancel", "attempt", attempt, "order_id", order.ID)
				return res, nil
			}
		}

		res.Attempts = append(res.Attempts, att)
	}

	if !e.cfg.MarketFallback {
		res.Outcome = OutcomeUnfilled
		logger.Warn("order unfilled after all attempts", "attempts", len(res.Attempts))
		return res, nil
	}

	logger.Info("placing market fallback order")
	order, err := e.broker.PlaceOrder(ctx, api.OrderRequest{
		Symbol:      spec.Symbol,
		Quantity:    spec.Quantity,
		Side:        string(spec.Side),
		Expiration:  spec.Expiration,
		Strike:      spec.Strike,
		OptionType:  string(spec.Type),
		OrderType:   api.OrderTypeMarket,
		TimeInForce: api.TimeInForceDay,
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("place market order: %w", err)
	}

	att := Attempt{
		Seq:       len(res.Attempts),
		OrderID:   order.ID,
		OrderType: api.OrderTypeMarket,
		PlacedAt:  time.Now().UTC(),
	}

	filled, err := WaitForFill(ctx, e.broker, order.ID, e.cfg.AttemptTimeout, e.cfg.PollInterval)
	if err != nil {
		res.Attempts = append(res.Attempts, att)
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("wait for market fill: %w", err)
	}
	att.Filled = filled
	res.Attempts = append(res.Attempts, att)

	if filled {
		res.Outcome = OutcomeFilledMarket
		res.Order = order
		logger.Info("market fallback filled", "order_id", order.ID)
	} else {
		res.Outcome = OutcomeUnfilled
		logger.Warn("market fallback unfilled", "order_id", order.ID)
	}
	return res, nil
}

// cancelAndConfirm cancels a resting order and confirms its final status.
// Returns the order record when the cancel raced a fill.
func (e *Engine) cancelAndConfirm(ctx context.Context, logger *slog.Logger, orderID string) (*api.OrderRecord, error) {
	if err := e.broker.CancelOrder(ctx, orderID); err != nil {
		// The cancel may have raced a fill; the status check below decides.
		logger.Debug("cancel rejected", "order_id", orderID, "error", err)
	}

	record, err := e.broker.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("confirm cancel: %w", err)
	}
	if record.Status == api.StatusFilled {
		return record, nil
	}
	return nil, nil
}
