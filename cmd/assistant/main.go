// assistant runs the market-data snapshot daemon: it authenticates, resolves
// today's option chain for the configured symbol, and collects a greeks/quote
// snapshot every interval. Snapshots are optionally journaled to PostgreSQL.
//
// Required environment variables:
//
//	TASTY_USERNAME - brokerage login
//	TASTY_PASSWORD - brokerage password
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"optionflow/internal/api"
	"optionflow/internal/auth"
	"optionflow/internal/calendar"
	"optionflow/internal/config"
	"optionflow/internal/database"
	"optionflow/internal/journal"
	"optionflow/internal/marketdata"
	"optionflow/internal/version"
)

// snapshotState tracks the last collection for the health endpoint.
type snapshotState struct {
	mu       sync.Mutex
	lastAt   time.Time
	lastRows int
	failures int64
}

func (s *snapshotState) record(rows int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures++
		return
	}
	s.lastAt = time.Now().UTC()
	s.lastRows = rows
}

func (s *snapshotState) snapshot() (time.Time, int, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAt, s.lastRows, s.failures
}

func main() {
	configPath := flag.String("config", "configs/assistant.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting assistant",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"symbol", cfg.Symbol,
		"api_url", cfg.API.RestURL,
		"snapshot_interval", cfg.Snapshot.Interval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Authenticate
	creds, err := auth.LoadCredentials()
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	session, err := auth.Login(ctx, cfg.API.RestURL, creds)
	if err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		destroyCtx, destroyCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer destroyCancel()
		if err := session.Destroy(destroyCtx); err != nil {
			logger.Warn("session destroy failed", "error", err)
		}
	}()

	logger.Info("session established", "username", session.Username)

	if !calendar.MarketIsOpen(time.Now()) {
		logger.Warn("market is closed, feed data may be stale")
	}

	apiClient := api.NewClient(
		cfg.API.RestURL,
		session,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithRateLimit(cfg.API.RateLimit),
	)

	// Resolve today's 0DTE chain
	instruments, err := apiClient.TodaysChain(ctx, cfg.Symbol)
	if err != nil {
		logger.Error("failed to resolve today's chain", "symbol", cfg.Symbol, "error", err)
		os.Exit(1)
	}
	logger.Info("chain resolved", "symbol", cfg.Symbol, "contracts", len(instruments))

	// Optional journal
	var writer *journal.SnapshotWriter
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writer = journal.NewSnapshotWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)

		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start snapshot writer", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			writer.Stop(stopCtx)
		}()

		logger.Info("database connected, journaling snapshots")
	}

	aggregator := marketdata.NewAggregator(marketdata.Config{
		StreamURL:        cfg.API.StreamURL,
		Token:            session.Token,
		SubscribeTimeout: cfg.Feed.SubscribeTimeout,
		EventTimeout:     cfg.Feed.EventTimeout,
		BufferSize:       cfg.Feed.BufferSize,
	}, logger)

	// Health server
	state := &snapshotState{}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(state, len(instruments)),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("assistant running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Snapshot loop
	ticker := time.NewTicker(cfg.Snapshot.Interval)
	defer ticker.Stop()

	collect := func() {
		rows, err := aggregator.Collect(ctx, instruments)
		state.record(len(rows), err)
		if err != nil {
			logger.Error("snapshot collection failed", "error", err)
			return
		}
		logger.Info("snapshot collected", "rows", len(rows))

		if writer != nil {
			writer.EnqueueAll(time.Now().UTC(), rows)
		}
	}

	collect()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			healthServer.Shutdown(shutdownCtx)

			logger.Info("assistant stopped")
			return
		case <-ticker.C:
			collect()
		}
	}
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(state *snapshotState, contracts int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		lastAt, lastRows, failures := state.snapshot()

		health := struct {
			Status       string `json:"status"`
			Contracts    int    `json:"contracts"`
			LastSnapshot string `json:"last_snapshot,omitempty"`
			LastRows     int    `json:"last_rows"`
			Failures     int64  `json:"failures"`
			MarketOpen   bool   `json:"market_open"`
		}{
			Status:     "healthy",
			Contracts:  contracts,
			LastRows:   lastRows,
			Failures:   failures,
			MarketOpen: calendar.MarketIsOpen(time.Now()),
		}
		if !lastAt.IsZero() {
			health.LastSnapshot = lastAt.Format(time.RFC3339)
		} else {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
