// Triangular arbitrage bot for centralized spot exchanges.
//
// Architecture:
//
//	main.go              — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	engine/engine.go     — orchestrator: assets → cycles → ingest ‖ calculators → executor
//	market/chains.go     — enumerates closed three-leg cycles from the symbol catalog
//	market/assets.go     — scales per-asset limits by a reference price snapshot
//	market/store.go      — monotonic per-symbol top-of-book store
//	market/broadcast.go  — per-symbol single-slot latest-value fan-out
//	strategy/profit.go   — rebuilds a three-order plan on every price change,
//	                       gated by a fee-adjusted minimum profit
//	executor/executor.go — sequences the three market orders, re-sizing each
//	                       leg from the previous leg's realized fill
//	exchange/            — venue adapter: REST catalog/stats, public ticker
//	                       feed, private order channel, request-weight limiter
//
// How it makes money:
//
//	The bot watches every tradeable pair's top-of-book and looks for
//	closed three-leg cycles (e.g. BTC → USDT → ETH → BTC) whose round
//	trip returns more of the starting asset than it consumes, after
//	three taker fees. When one appears it fires three market orders in
//	sequence, each sized from the realized fill of the one before.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"triarb-bot/internal/api"
	"triarb-bot/internal/config"
	"triarb-bot/internal/engine"
	"triarb-bot/internal/exchange"
	"triarb-bot/internal/metrics"
)

func main() {
	cfgPath := "configs/config.toml"
	if p := os.Getenv("ARB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	weight := exchange.NewRequestWeight(cfg.APIWeightLimit)
	venue := exchange.NewClient(
		cfg.Venue.APIURL,
		cfg.Venue.WSPublicURL,
		cfg.Venue.WSPrivateURL,
		exchange.Credentials{
			Key:        cfg.Venue.APIKey,
			Secret:     cfg.Venue.APISecret,
			Passphrase: cfg.Venue.APIPassphrase,
		},
		weight,
		logger,
	)

	var apiServer *api.Server
	if cfg.Monitoring.Enabled {
		apiServer = api.NewServer(cfg.Monitoring.Port, registry, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("monitoring server failed", "error", err)
			}
		}()
	}

	if !cfg.SendOrders {
		logger.Warn("send_orders disabled — plans will be logged, not executed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(*cfg, venue, weight, m, logger)
	runErr := eng.Run(ctx)

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop monitoring server", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("engine stopped with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
