// streamtest connects to the market-data feed and streams parsed events to
// console. Usage: go run ./cmd/streamtest --config configs/assistant.yaml
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
	"os"
	"os/signal"
	"syscall"
	"time"

	"optionflow/internal/api"
	"optionflow/internal/auth"
	"optionflow/internal/config"
	"optionflow/internal/streamer"
)

func main() {
	configPath := flag.String("config", "configs/assistant.yaml", "path to config file")
	limit := flag.Int("limit", 5, "number of contracts to subscribe")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
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
		session.Destroy(destroyCtx)
	}()

	apiClient := api.NewClient(cfg.API.RestURL, session, api.WithLogger(logger))

	instruments, err := apiClient.TodaysChain(ctx, cfg.Symbol)
	if err != nil {
		logger.Error("failed to resolve today's chain", "symbol", cfg.Symbol, "error", err)
		os.Exit(1)
	}
	if len(instruments) > *limit {
		instruments = instruments[:*limit]
	}

	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.StreamerSymbol)
	}
	logger.Info("subscribing", "symbols", symbols)

	sc := streamer.DefaultConfig()
	sc.URL = cfg.API.StreamURL
	sc.Token = session.Token
	sc.BufferSize = cfg.Feed.BufferSize

	conn, err := streamer.Dial(ctx, sc, logger)
	if err != nil {
		logger.Error("failed to dial feed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	for _, kind := range []streamer.EventKind{streamer.KindGreeks, streamer.KindQuote} {
		if err := conn.Subscribe(ctx, kind, symbols); err != nil {
			logger.Error("subscribe failed", "kind", kind, "error", err)
			os.Exit(1)
		}
		go printEvents(ctx, conn, kind, *verbose)
	}

	logger.Info("streaming started - press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("shutdown complete")
}

func printEvents(ctx context.Context, conn *streamer.Streamer, kind streamer.EventKind, verbose bool) {
	for {
		ev, err := conn.NextEvent(ctx, kind)
		if err != nil {
			return
		}

		if verbose {
			data, _ := json.MarshalIndent(ev, "", "  ")
			fmt.Printf("[%s] %s\n", kind, data)
			continue
		}

		switch {
		case ev.Greeks != nil:
			fmt.Printf("[GREEKS] symbol=%s delta=%s vol=%s\n",
				ev.Greeks.Symbol, fmtPtr(ev.Greeks.Delta), fmtPtr(ev.Greeks.Volatility))
		case ev.Quote != nil:
			fmt.Printf("[QUOTE] symbol=%s bid=%s ask=%s\n",
				ev.Quote.Symbol, fmtPtr(ev.Quote.BidPrice), fmtPtr(ev.Quote.AskPrice))
		}
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
