// trade executes a single option order adaptively: limit orders walk from the
// mid toward the far side of the spread, with an optional market fallback.
//
// Usage:
//
//	trade -symbol SPX -expiration 2024-06-21 -strike 5000 -type C -side buy -quantity 1
//
// Required environment variables:
//
//	TASTY_USERNAME - brokerage login
//	TASTY_PASSWORD - brokerage password
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"optionflow/internal/api"
	"optionflow/internal/auth"
	"optionflow/internal/calendar"
	"optionflow/internal/config"
	"optionflow/internal/database"
	"optionflow/internal/execution"
	"optionflow/internal/journal"
	"optionflow/internal/model"
	"optionflow/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/assistant.yaml", "path to config file")
	symbol := flag.String("symbol", "", "underlying symbol (defaults to the configured symbol)")
	expiration := flag.String("expiration", "", "expiration date, YYYY-MM-DD (defaults to today's trading date)")
	strike := flag.Float64("strike", 0, "strike price")
	optionType := flag.String("type", "C", "option type: C or P")
	side := flag.String("side", "buy", "order side: buy or sell")
	quantity := flag.Int("quantity", 1, "contract quantity")
	force := flag.Bool("force", false, "trade even when the market is closed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting trade", "version", version.Version)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *symbol == "" {
		*symbol = cfg.Symbol
	}
	if *expiration == "" {
		*expiration = calendar.TodaysTradingDate().Format("2006-01-02")
	}
	if *strike <= 0 {
		logger.Error("a positive -strike is required")
		os.Exit(1)
	}
	if *optionType != string(model.Call) && *optionType != string(model.Put) {
		logger.Error("-type must be C or P", "type", *optionType)
		os.Exit(1)
	}
	if *side != string(model.Buy) && *side != string(model.Sell) {
		logger.Error("-side must be buy or sell", "side", *side)
		os.Exit(1)
	}

	if !calendar.MarketIsOpen(time.Now()) {
		if !*force {
			logger.Error("market is closed, pass -force to trade anyway")
			os.Exit(1)
		}
		logger.Warn("market is closed, trading anyway")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

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

	apiClient := api.NewClient(
		cfg.API.RestURL,
		session,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithRateLimit(cfg.API.RateLimit),
	)

	engine := execution.NewEngine(apiClient, execution.Config{
		MaxAttempts:    cfg.Execution.MaxAttempts,
		AttemptTimeout: cfg.Execution.AttemptTimeout,
		PollInterval:   cfg.Execution.PollInterval,
		CancelUnfilled: cfg.Execution.CancelUnfilledEnabled(),
		MarketFallback: cfg.Execution.MarketFallbackEnabled(),
	}, logger)

	spec := execution.OrderSpec{
		Symbol:     *symbol,
		Expiration: *expiration,
		Strike:     *strike,
		Type:       model.OptionType(*optionType),
		Side:       model.OrderSide(*side),
		Quantity:   *quantity,
	}

	logger.Info("executing order",
		"symbol", spec.Symbol,
		"expiration", spec.Expiration,
		"strike", spec.Strike,
		"type", spec.Type,
		"side", spec.Side,
		"quantity", spec.Quantity,
	)

	res, err := engine.Execute(ctx, spec)
	if res != nil {
		journalRun(ctx, cfg, res, logger)
		printResult(res)
	}
	if err != nil {
		logger.Error("execution failed", "error", err)
		os.Exit(1)
	}

	if res.Outcome == execution.OutcomeUnfilled {
		os.Exit(2)
	}
}

// journalRun persists the run's attempts when the database is enabled.
func journalRun(ctx context.Context, cfg *config.Config, res *execution.Result, logger *slog.Logger) {
	if !cfg.Database.Enabled || len(res.Attempts) == 0 {
		return
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Warn("skipping journal, database unavailable", "error", err)
		return
	}
	defer pool.Close()

	writer := journal.NewAttemptWriter(journal.Config{
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		BufferSize:    cfg.Journal.BufferSize,
	}, pool, logger)

	if err := writer.Start(ctx); err != nil {
		logger.Warn("skipping journal, writer failed to start", "error", err)
		return
	}
	writer.RecordRun(res)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	writer.Stop(stopCtx)
}

func printResult(res *execution.Result) {
	fmt.Printf("run %s: %s\n", res.RunID, res.Outcome)
	for _, att := range res.Attempts {
		price := "market"
		if att.Price != nil {
			price = fmt.Sprintf("%.2f", *att.Price)
		}
		status := "unfilled"
		if att.Filled {
			status = "filled"
		}
		fmt.Printf("  attempt %d: %s %s order %s %s\n",
			att.Seq, att.OrderType, price, att.OrderID, status)
	}
	if res.Order != nil {
		fmt.Printf("final order: %s status=%s\n", res.Order.ID, res.Order.Status)
	}
}
