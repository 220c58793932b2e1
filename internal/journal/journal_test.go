package journal

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"optionflow/internal/execution"
	"optionflow/internal/model"
)

func TestTransformAttempt(t *testing.T) {
	runID := uuid.New()
	placedAt := time.Date(2024, 6, 21, 14, 30, 0, 0, time.UTC)
	price := 2.5

	row := transformAttempt(AttemptEntry{
		RunID:  runID,
		Symbol: "SPX",
		Side:   "buy",
		Attempt: execution.Attempt{
			Seq:       2,
			OrderID:   "ord-3",
			OrderType: "LIMIT",
			Price:     &price,
			Filled:    true,
			PlacedAt:  placedAt,
		},
	})

	if row.RunID != runID.String() {
		t.Errorf("RunID = %q, want %q", row.RunID, runID.String())
	}
	if row.Seq != 2 || row.OrderID != "ord-3" || row.OrderType != "LIMIT" {
		t.Errorf("row = %+v, want seq 2 ord-3 LIMIT", row)
	}
	if row.Price == nil || *row.Price != 2.5 {
		t.Errorf("Price = %v, want 2.5", row.Price)
	}
	if !row.Filled {
		t.Error("Filled = false, want true")
	}
	if row.PlacedAt != placedAt.UnixMicro() {
		t.Errorf("PlacedAt = %d, want %d", row.PlacedAt, placedAt.UnixMicro())
	}
}

func TestTransformAttemptMarketOrder(t *testing.T) {
	row := transformAttempt(AttemptEntry{
		RunID: uuid.New(),
		Attempt: execution.Attempt{
			Seq:       3,
			OrderID:   "ord-4",
			OrderType: "MARKET",
		},
	})
	if row.Price != nil {
		t.Errorf("Price = %v, want nil for market order", row.Price)
	}
}

func TestTransformSnapshot(t *testing.T) {
	capturedAt := time.Date(2024, 6, 21, 15, 0, 0, 0, time.UTC)

	row := transformSnapshot(SnapshotEntry{
		CapturedAt: capturedAt,
		Row: model.JoinedRow{
			Symbol:     "SPX 240621C05000000",
			Delta:      model.Float64(25.0),
			Volatility: model.Float64(18.5),
			BidPrice:   model.Float64(1.5),
			Time:       "2024-06-21T14:59:58Z",
		},
	})

	if row.Symbol != "SPX 240621C05000000" {
		t.Errorf("Symbol = %q", row.Symbol)
	}
	if row.CapturedAt != capturedAt.UnixMicro() {
		t.Errorf("CapturedAt = %d, want %d", row.CapturedAt, capturedAt.UnixMicro())
	}
	if row.Delta == nil || *row.Delta != 25.0 {
		t.Errorf("Delta = %v, want 25.0", row.Delta)
	}
	if row.Gamma != nil || row.AskPrice != nil {
		t.Error("missing fields should stay nil")
	}
	if row.EventTime != "2024-06-21T14:59:58Z" {
		t.Errorf("EventTime = %q", row.EventTime)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	// Writer never started: the channel fills and later entries drop.
	w := NewSnapshotWriter(Config{BufferSize: 1}, nil, nil)

	if !w.Enqueue(SnapshotEntry{Row: model.JoinedRow{Symbol: "A"}}) {
		t.Fatal("first Enqueue = false, want true")
	}
	if w.Enqueue(SnapshotEntry{Row: model.JoinedRow{Symbol: "B"}}) {
		t.Error("second Enqueue = true with full buffer, want false")
	}
	if w.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", w.Stats().Dropped)
	}
}

func TestAttemptEnqueueDropsWhenFull(t *testing.T) {
	w := NewAttemptWriter(Config{BufferSize: 1}, nil, nil)

	if !w.Enqueue(AttemptEntry{RunID: uuid.New()}) {
		t.Fatal("first Enqueue = false, want true")
	}
	if w.Enqueue(AttemptEntry{RunID: uuid.New()}) {
		t.Error("second Enqueue = true with full buffer, want false")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.BatchSize != 100 || cfg.FlushInterval != 5*time.Second || cfg.BufferSize != 1000 {
		t.Errorf("defaults = %+v", cfg)
	}

	custom := Config{BatchSize: 10, FlushInterval: time.Second, BufferSize: 5}.withDefaults()
	if custom.BatchSize != 10 || custom.FlushInterval != time.Second || custom.BufferSize != 5 {
		t.Errorf("custom config overridden: %+v", custom)
	}
}
