// Package engine is the central orchestrator of the arbitrage bot.
//
// It wires together all subsystems:
//
//  1. AssetBuilder resolves the configured assets' limits into native units.
//  2. ChainBuilder derives the triangular cycles from the symbol catalog.
//  3. The ticker ingest streams top-of-book updates into the broadcast,
//     chunked across WebSocket connections.
//  4. One Calculator per cycle re-evaluates profitability on every price
//     change and publishes plans to the orders channel.
//  5. The Executor drives the newest plan through the venue's private
//     order channel.
//
// Everything runs under one errgroup-derived context: the first task to
// fail cancels the rest, and Run returns that first error.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"triarb-bot/internal/config"
	"triarb-bot/internal/exchange"
	"triarb-bot/internal/executor"
	"triarb-bot/internal/market"
	"triarb-bot/internal/metrics"
	"triarb-bot/internal/strategy"
	"triarb-bot/pkg/types"
)

// Engine owns the lifecycle of all bot tasks.
type Engine struct {
	cfg     config.Config
	venue   exchange.Venue
	weight  *exchange.RequestWeight
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an engine over the given venue adapter.
func New(cfg config.Config, venue exchange.Venue, weight *exchange.RequestWeight, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		venue:   venue,
		weight:  weight,
		metrics: m,
		logger:  logger.With("component", "engine"),
	}
}

// Run builds the cycle set and supervises all tasks until ctx is
// cancelled or a task fails. Returns nil on clean cancellation.
func (e *Engine) Run(ctx context.Context) error {
	assetCfgs := make([]market.AssetConfig, 0, len(e.cfg.BaseAssets))
	for _, a := range e.cfg.BaseAssets {
		assetCfgs = append(assetCfgs, market.AssetConfig{
			Asset:     a.Asset,
			Precision: a.Precision,
			RefSymbol: a.RefSymbol,
		})
	}

	assetBuilder := market.NewAssetBuilder(
		e.venue.RefPriceSnapshot,
		assetCfgs,
		e.cfg.ReferenceAsset,
		e.cfg.Limits.DefaultMinProfitQty,
		e.cfg.Limits.DefaultMaxOrderQty,
		e.cfg.Limits.MinRefVolume24h,
		e.logger,
	)
	assets, err := assetBuilder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build assets: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("build assets: no configured asset has a usable reference price")
	}

	catalog, err := e.venue.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	chainBuilder := market.NewChainBuilder(e.cfg.SkipAssets, e.cfg.SkipSymbols, e.logger)
	chains := chainBuilder.Build(catalog, assets)
	if len(chains) == 0 {
		e.logger.Warn("no triangular cycles over the configured assets, nothing to do")
		return nil
	}

	symbols := market.UniqueSymbols(chains)
	store := market.NewStore()
	broadcast := market.NewBroadcast(symbols)
	ordersCh := strategy.NewOrdersChannel()
	updates := make(chan types.OrderUpdate, 64)

	g, ctx := errgroup.WithContext(ctx)

	// Ticker ingest, one connection per symbol chunk.
	publish := func(t types.BookTicker) {
		e.metrics.BookTickerEvent(t.Symbol)
		if !store.Update(t) {
			return // stale by sequence, broadcast only moves forward
		}
		if err := broadcast.Publish(t.Symbol, t); err != nil {
			e.logger.Warn("dropping ticker for unknown symbol", "symbol", t.Symbol)
		}
	}
	for _, chunk := range chunkSymbols(symbols, e.cfg.WSMaxConnections) {
		chunk := chunk
		g.Go(func() error {
			return e.venue.SubscribeBookTickers(ctx, chunk, publish)
		})
	}

	// One calculator per cycle.
	started := 0
	for _, chain := range chains {
		asset, ok := market.FindAsset(assets, chain[0])
		if !ok {
			// The first leg's asset was dropped by the builder; its
			// cycles go with it.
			continue
		}
		calc := strategy.NewCalculator(
			chain,
			asset,
			e.cfg.MarketDepthLimit,
			e.cfg.Limits.FeePercent,
			broadcast,
			ordersCh,
			e.metrics,
			e.logger,
		)
		g.Go(func() error { return calc.Run(ctx) })
		started++
	}
	if started == 0 {
		return fmt.Errorf("no cycle has a configured first-leg asset")
	}

	// Private order-update stream, only needed when orders go out.
	if e.cfg.SendOrders {
		g.Go(func() error {
			return e.venue.OrderUpdates(ctx, updates)
		})
	}

	exec := executor.New(
		e.venue,
		e.weight,
		ordersCh,
		updates,
		e.cfg.SendOrders,
		time.Duration(e.cfg.ProcessChainIntervalMS)*time.Millisecond,
		time.Duration(e.cfg.OrderPollTimeoutMS)*time.Millisecond,
		e.metrics,
		e.logger,
	)
	g.Go(func() error { return exec.Run(ctx) })

	e.logger.Info("engine started",
		"cycles", started,
		"symbols", len(symbols),
		"send_orders", e.cfg.SendOrders,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// chunkSymbols splits symbols into groups sized for one WebSocket
// connection each.
func chunkSymbols(symbols []string, perConn int) [][]string {
	if perConn < 1 {
		perConn = 1
	}
	var chunks [][]string
	for len(symbols) > perConn {
		chunks = append(chunks, symbols[:perConn])
		symbols = symbols[perConn:]
	}
	if len(symbols) > 0 {
		chunks = append(chunks, symbols)
	}
	return chunks
}
