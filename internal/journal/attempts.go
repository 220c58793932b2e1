package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"optionflow/internal/execution"
)

// AttemptEntry is one order attempt queued for persistence.
type AttemptEntry struct {
	RunID   uuid.UUID
	Symbol  string
	Side    string
	Attempt execution.Attempt
}

// attemptRow is the database form of an attempt.
type attemptRow struct {
	RunID     string
	Seq       int
	Symbol    string
	Side      string
	OrderID   string
	OrderType string
	Price     *float64
	Filled    bool
	PlacedAt  int64 // micros since epoch
}

// AttemptWriter batches execution attempts into the execution_attempts table.
type AttemptWriter struct {
	cfg    Config
	logger *slog.Logger

	input chan AttemptEntry
	db    *pgxpool.Pool

	batch       []attemptRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewAttemptWriter creates a new AttemptWriter.
func NewAttemptWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *AttemptWriter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &AttemptWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan AttemptEntry, cfg.BufferSize),
		batch:  make([]attemptRow, 0, cfg.BatchSize),
	}
}

// Enqueue queues an attempt for persistence. Never blocks; returns false
// when the buffer is full and the entry was dropped.
func (w *AttemptWriter) Enqueue(entry AttemptEntry) bool {
	select {
	case w.input <- entry:
		return true
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("attempt journal buffer full, dropping entry", "run_id", entry.RunID)
		return false
	}
}

// Start begins consuming entries and writing to the database.
func (w *AttemptWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("attempt writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes the remaining batch.
func (w *AttemptWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping attempt writer")

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
		w.logger.Info("attempt writer stopped")
	case <-ctx.Done():
		w.logger.Warn("attempt writer stop timed out")
	}

	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *AttemptWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *AttemptWriter) consumeLoop() {
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

func (w *AttemptWriter) flushLoop() {
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

func (w *AttemptWriter) handleEntry(entry AttemptEntry) {
	row := transformAttempt(entry)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transformAttempt converts an AttemptEntry to its database row.
func transformAttempt(entry AttemptEntry) attemptRow {
	return attemptRow{
		RunID:     entry.RunID.String(),
		Seq:       entry.Attempt.Seq,
		Symbol:    entry.Symbol,
		Side:      entry.Side,
		OrderID:   entry.Attempt.OrderID,
		OrderType: entry.Attempt.OrderType,
		Price:     entry.Attempt.Price,
		Filled:    entry.Attempt.Filled,
		PlacedAt:  entry.Attempt.PlacedAt.UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (w *AttemptWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]attemptRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("attempt batch insert failed", "error", err, "count", len(batch))
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

	w.logger.Debug("flushed attempts",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *AttemptWriter) batchInsert(ctx context.Context, rows []attemptRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO execution_attempts (run_id, seq, symbol, side, order_id, order_type, price, filled, placed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (run_id, seq) DO NOTHING
		`, r.RunID, r.Seq, r.Symbol, r.Side, r.OrderID, r.OrderType, r.Price, r.Filled, r.PlacedAt)
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

// RecordRun enqueues every attempt of a finished execution run.
func (w *AttemptWriter) RecordRun(res *execution.Result) {
	for _, att := range res.Attempts {
		w.Enqueue(AttemptEntry{
			RunID:   res.RunID,
			Symbol:  res.Spec.Symbol,
			Side:    string(res.Spec.Side),
			Attempt: att,
		})
	}
}
