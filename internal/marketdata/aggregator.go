package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"optionflow/internal/model"
	"optionflow/internal/streamer"
)

// ErrNoData means no instrument received both a greeks and a quote event.
var ErrNoData = errors.New("no market data collected")

// feed is the slice of streamer.Streamer the aggregator uses.
type feed interface {
	Subscribe(ctx context.Context, kind streamer.EventKind, symbols []string) error
	Unsubscribe(ctx context.Context, kind streamer.EventKind, symbols []string) error
	NextEvent(ctx context.Context, kind streamer.EventKind) (streamer.Event, error)
	Close() error
}

// dialFunc opens a feed connection. Swappable in tests.
type dialFunc func(ctx context.Context, cfg streamer.Config, logger *slog.Logger) (feed, error)

// Config configures an aggregation run.
type Config struct {
	StreamURL        string
	Token            string        // Session token for the feed
	SubscribeTimeout time.Duration // Max wait for subscribe acknowledgements
	EventTimeout     time.Duration // Max wait for each kind's event batch
	BufferSize       int           // Feed delivery buffer
}

// Aggregator collects one snapshot of greeks and quotes per call.
type Aggregator struct {
	cfg    Config
	logger *slog.Logger
	dial   dialFunc
}

// NewAggregator creates an aggregator. A nil logger falls back to
// slog.Default().
func NewAggregator(cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SubscribeTimeout == 0 {
		cfg.SubscribeTimeout = 10 * time.Second
	}
	if cfg.EventTimeout == 0 {
		cfg.EventTimeout = 30 * time.Second
	}
	return &Aggregator{
		cfg:    cfg,
		logger: logger,
		dial: func(ctx context.Context, sc streamer.Config, l *slog.Logger) (feed, error) {
			return streamer.Dial(ctx, sc, l)
		},
	}
}

// Collect opens a feed connection, gathers one greeks and one quote event per
// instrument, and returns the joined, normalized rows. The connection is
// unsubscribed and closed before returning, on every path.
func (a *Aggregator) Collect(ctx context.Context, instruments []model.Instrument) ([]model.JoinedRow, error) {
	if len(instruments) == 0 {
		return nil, ErrNoData
	}

	keys := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		if inst.StreamerSymbol != "" {
			keys = append(keys, inst.StreamerSymbol)
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoData
	}

	sc := streamer.DefaultConfig()
	sc.URL = a.cfg.StreamURL
	sc.Token = a.cfg.Token
	sc.CommandTimeout = a.cfg.SubscribeTimeout
	if a.cfg.BufferSize > 0 {
		sc.BufferSize = a.cfg.BufferSize
	}

	conn, err := a.dial(ctx, sc, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer a.teardown(conn, keys)

	greeks, err := a.gather(ctx, conn, streamer.KindGreeks, keys)
	if err != nil {
		return nil, err
	}

	quotes, err := a.gather(ctx, conn, streamer.KindQuote, keys)
	if err != nil {
		return nil, err
	}

	rows := a.join(instruments, greeks, quotes)
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}

// gather subscribes to one event kind and awaits one event per symbol: a
// fan-out of len(keys) concurrent receives joined all-or-nothing, so one
// failed receive cancels the rest via the group context. Events are keyed by
// streamer symbol; a duplicate overwrites the earlier event and its symbol's
// slot is spent, leaving the unreported symbol to drop at the join.
func (a *Aggregator) gather(ctx context.Context, conn feed, kind streamer.EventKind, keys []string) (map[string]streamer.Event, error) {
	subCtx, cancel := context.WithTimeout(ctx, a.cfg.SubscribeTimeout)
	defer cancel()
	if err := conn.Subscribe(subCtx, kind, keys); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	var mu sync.Mutex
	events := make(map[string]streamer.Event, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	gctx, gcancel := context.WithTimeout(gctx, a.cfg.EventTimeout)
	defer gcancel()

	for range keys {
		g.Go(func() error {
			ev, err := conn.NextEvent(gctx, kind)
			if err != nil {
				return fmt.Errorf("gather %s events: %w", kind, err)
			}
			key := eventKey(ev)
			if !wanted[key] {
				a.logger.Warn("event for unsubscribed symbol", "kind", kind, "symbol", key)
			}
			mu.Lock()
			events[key] = ev
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return events, nil
}

func eventKey(ev streamer.Event) string {
	switch {
	case ev.Greeks != nil:
		return ev.Greeks.Symbol
	case ev.Quote != nil:
		return ev.Quote.Symbol
	}
	return ""
}

// join pairs greeks with quotes by streamer symbol and normalizes each row.
// Instruments missing either side are dropped.
func (a *Aggregator) join(instruments []model.Instrument, greeks, quotes map[string]streamer.Event) []model.JoinedRow {
	rows := make([]model.JoinedRow, 0, len(instruments))
	for _, inst := range instruments {
		gev, gok := greeks[inst.StreamerSymbol]
		qev, qok := quotes[inst.StreamerSymbol]
		if !gok || !qok || gev.Greeks == nil || qev.Quote == nil {
			a.logger.Debug("dropping unpaired instrument", "symbol", inst.Symbol)
			continue
		}
		rows = append(rows, normalizeRow(inst, gev.Greeks, qev.Quote))
	}
	return rows
}

// teardown unsubscribes both kinds and closes the connection, best effort.
func (a *Aggregator) teardown(conn feed, keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Unsubscribe(ctx, streamer.KindGreeks, keys); err != nil {
		a.logger.Debug("unsubscribe greeks failed", "error", err)
	}
	if err := conn.Unsubscribe(ctx, streamer.KindQuote, keys); err != nil {
		a.logger.Debug("unsubscribe quotes failed", "error", err)
	}
	if err := conn.Close(); err != nil {
		a.logger.Debug("feed close failed", "error", err)
	}
}
