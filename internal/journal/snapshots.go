package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"optionflow/internal/model"
)

// SnapshotEntry is one joined market-data row queued for persistence.
type SnapshotEntry struct {
	CapturedAt time.Time
	Row        model.JoinedRow
}

// snapshotRow is the database form of a joined row.
type snapshotRow struct {
	Symbol     string
	CapturedAt int64 // micros since epoch
	Delta      *float64
	Gamma      *float64
	Theta      *float64
	Vega       *float64
	Rho        *float64
	Volatility *float64
	BidPrice   *float64
	AskPrice   *float64
	EventTime  string
}

// SnapshotWriter batches joined rows into the market_snapshots table.
type SnapshotWriter struct {
	cfg    Config
	logger *slog.Logger

	input chan SnapshotEntry
	db    *pgxpool.Pool

	batch       []snapshotRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewSnapshotWriter creates a new SnapshotWriter.
func NewSnapshotWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &SnapshotWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan SnapshotEntry, cfg.BufferSize),
		batch:  make([]snapshotRow, 0, cfg.BatchSize),
	}
}

// Enqueue queues a row for persistence. Never blocks; returns false when the
// buffer is full and the entry was dropped.
func (w *SnapshotWriter) Enqueue(entry SnapshotEntry) bool {
	select {
	case w.input <- entry:
		return true
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("snapshot journal buffer full, dropping row", "symbol", entry.Row.Symbol)
		return false
	}
}

// EnqueueAll queues a full snapshot captured at one instant.
func (w *SnapshotWriter) EnqueueAll(capturedAt time.Time, rows []model.JoinedRow) {
	for _, row := range rows {
		w.Enqueue(SnapshotEntry{CapturedAt: capturedAt, Row: row})
	}
}

// Start begins consuming entries and writing to the database.
func (w *SnapshotWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("snapshot writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes the remaining batch.
func (w *SnapshotWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping snapshot writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("snapshot writer stopped")
	case <-ctx.Done():
		w.logger.Warn("snapshot writer stop timed out")
	}

	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *SnapshotWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *SnapshotWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case entry := <-w.input:
			w.handleEntry(entry)
		}
	}
}

func (w *SnapshotWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *SnapshotWriter) handleEntry(entry SnapshotEntry) {
	row := transformSnapshot(entry)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transformSnapshot converts a SnapshotEntry to its database row.
func transformSnapshot(entry SnapshotEntry) snapshotRow {
	return snapshotRow{
		Symbol:     entry.Row.Symbol,
		CapturedAt: entry.CapturedAt.UnixMicro(),
		Delta:      entry.Row.Delta,
		Gamma:      entry.Row.Gamma,
		Theta:      entry.Row.Theta,
		Vega:       entry.Row.Vega,
		Rho:        entry.Row.Rho,
		Volatility: entry.Row.Volatility,
		BidPrice:   entry.Row.BidPrice,
		AskPrice:   entry.Row.AskPrice,
		EventTime:  entry.Row.Time,
	}
}

// flush writes the current batch to the database.
func (w *SnapshotWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]snapshotRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("snapshot batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed snapshots",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *SnapshotWriter) batchInsert(ctx context.Context, rows []snapshotRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO market_snapshots (symbol, captured_at, delta, gamma, theta, vega, rho, volatility, bid_price, ask_price, event_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (symbol, captured_at) DO NOTHING
		`, r.Symbol, r.CapturedAt, r.Delta, r.Gamma, r.Theta, r.Vega, r.Rho, r.Volatility, r.BidPrice, r.AskPrice, r.EventTime)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
