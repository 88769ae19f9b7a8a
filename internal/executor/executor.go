// Package executor drives accepted plans through the venue.
//
// The executor is strictly serial: one plan at a time, one leg at a
// time. Each leg after the first is re-sized from the realized fill of
// the previous leg minus the taker fee, snapped down to the leg's
// increment, because the plan's theoretical quantities are stale the
// moment the first order trades.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"triarb-bot/internal/exchange"
	"triarb-bot/internal/metrics"
	"triarb-bot/internal/numeric"
	"triarb-bot/internal/strategy"
	"triarb-bot/pkg/types"
)

// ErrOrderTimedOut reports that a leg's fills did not complete within
// the configured poll timeout. The run is cancelled: re-submitting a
// market order with unknown fill state risks double execution.
var ErrOrderTimedOut = errors.New("executor: timed out waiting for fills")

// percentFactor converts a percentage into a rate.
var percentFactor = decimal.New(1, -2)

// Executor consumes plans from the orders channel and sequences their
// three market orders.
type Executor struct {
	venue   exchange.Venue
	weight  *exchange.RequestWeight
	orders  *strategy.OrdersChannel
	updates <-chan types.OrderUpdate

	sendOrders  bool
	dwell       time.Duration // minimum gap between consecutive executions
	pollTimeout time.Duration // bound on waiting for one leg's fills

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an executor.
func New(
	venue exchange.Venue,
	weight *exchange.RequestWeight,
	orders *strategy.OrdersChannel,
	updates <-chan types.OrderUpdate,
	sendOrders bool,
	dwell, pollTimeout time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		venue:       venue,
		weight:      weight,
		orders:      orders,
		updates:     updates,
		sendOrders:  sendOrders,
		dwell:       dwell,
		pollTimeout: pollTimeout,
		metrics:     m,
		logger:      logger.With("component", "executor"),
	}
}

// Run blocks until ctx is cancelled or a plan fails. The orders channel
// delivers only the newest plan, so anything arriving while a plan is
// executing is seen once, already coalesced, on the next wake-up.
func (e *Executor) Run(ctx context.Context) error {
	var lastExec time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.orders.Changes():
		}

		plan, ok := e.orders.Latest()
		if !ok {
			continue
		}

		if !e.sendOrders {
			e.logPlan(plan)
			continue
		}

		if !lastExec.IsZero() && time.Since(lastExec) < e.dwell {
			e.logger.Debug("dropping plan inside dwell interval", "chain_id", plan.ChainID)
			continue
		}

		e.logPlan(plan)
		e.metrics.ChainStatus(plan.Symbols(), metrics.StatusNew)

		if err := e.processPlan(ctx, plan); err != nil {
			e.metrics.ChainStatus(plan.Symbols(), metrics.StatusCancelled)
			return fmt.Errorf("process chain %s: %w", plan.ChainID, err)
		}

		lastExec = time.Now()
		e.metrics.ChainStatus(plan.Symbols(), metrics.StatusFilled)
	}
}

func (e *Executor) logPlan(plan types.ChainOrders) {
	e.logger.Info("chain plan",
		"chain_id", plan.ChainID,
		"send_orders", e.sendOrders,
		"symbols", plan.Symbols(),
		"first_base_qty", plan.Orders[0].BaseQty,
		"last_quote_qty", plan.Orders[2].QuoteQty,
	)
}

func (e *Executor) processPlan(ctx context.Context, plan types.ChainOrders) error {
	feeRate := plan.FeePercent.Mul(percentFactor)

	var stats [3]decimal.Decimal
	var lastFilled decimal.Decimal
	haveFilled := false

	for i, order := range plan.Orders {
		qty := order.BaseQty
		if haveFilled {
			qty = nextLegQty(order, lastFilled, feeRate)
			if !qty.IsPositive() {
				return fmt.Errorf("leg %d %s: previous fill too small to continue", i+1, order.Symbol)
			}
		}

		req := types.OrderRequest{
			ClientID: uuid.NewString(),
			Symbol:   order.Symbol,
			Side:     order.Order.Side(),
		}
		if order.Order == types.Asc {
			req.Size = qty.String()
		} else {
			req.Funds = qty.String()
		}

		if err := e.weight.WaitAcquire(ctx, 1); err != nil {
			return err
		}

		ack, err := e.venue.SubmitMarketOrder(ctx, req)
		if err != nil {
			return fmt.Errorf("leg %d %s: %w", i+1, order.Symbol, err)
		}

		filled, legStats, err := e.awaitFills(ctx, req.ClientID, order, i)
		if err != nil {
			return fmt.Errorf("leg %d %s: %w", i+1, order.Symbol, err)
		}

		e.logger.Info("order filled",
			"chain_id", plan.ChainID,
			"leg", i+1,
			"symbol", order.Symbol,
			"order_id", ack.OrderID,
			"client_id", req.ClientID,
			"side", req.Side,
			"filled_qty", filled,
			"stats_qty", legStats,
		)

		lastFilled = filled
		haveFilled = true
		stats[i] = legStats
	}

	profit := stats[2].Sub(stats[0])
	e.logger.Info("chain completed",
		"chain_id", plan.ChainID,
		"first_qty", stats[0],
		"last_qty", stats[2],
		"profit", profit,
	)
	return nil
}

// nextLegQty sizes a leg from the previous leg's realized output: fee
// comes off first, then the quantity is snapped down to the increment
// the venue accepts on the relevant side.
func nextLegQty(order types.ChainOrder, filled, feeRate decimal.Decimal) decimal.Decimal {
	increment := order.BaseIncrement
	if order.Order == types.Desc {
		increment = order.QuoteIncrement
	}

	net := filled.Mul(decimal.New(1, 0).Sub(feeRate))
	steps := numeric.DivTrunc(net, increment, 0)
	return steps.Mul(increment)
}

// awaitFills consumes order updates for one leg until the venue reports
// the order done. Returns the accumulated funding output (what the next
// leg can spend) and the stats output (for profit reporting).
func (e *Executor) awaitFills(ctx context.Context, clientID string, order types.ChainOrder, legIdx int) (decimal.Decimal, decimal.Decimal, error) {
	timer := time.NewTimer(e.pollTimeout)
	defer timer.Stop()

	filled := decimal.Zero
	stats := decimal.Zero

	for {
		select {
		case <-ctx.Done():
			return filled, stats, ctx.Err()

		case <-timer.C:
			return filled, stats, fmt.Errorf("%w after %s", ErrOrderTimedOut, e.pollTimeout)

		case update, open := <-e.updates:
			if !open {
				return filled, stats, fmt.Errorf("order update stream closed")
			}
			if update.ClientID != clientID {
				e.logger.Debug("ignoring update for unrelated order", "client_id", update.ClientID)
				continue
			}

			switch update.Status {
			case types.StatusMatch:
				if update.MatchQty == nil || update.MatchPrice == nil {
					e.logger.Warn("incomplete match data, skipping event",
						"symbol", order.Symbol,
						"has_qty", update.MatchQty != nil,
						"has_price", update.MatchPrice != nil,
					)
					continue
				}

				if order.Order == types.Asc {
					filled = filled.Add(update.MatchQty.Mul(*update.MatchPrice))
				} else {
					filled = filled.Add(*update.MatchQty)
				}

				if legIdx == 0 && order.Order == types.Asc {
					stats = stats.Add(*update.MatchQty)
				} else {
					stats = stats.Add(update.MatchQty.Mul(*update.MatchPrice))
				}

				e.logger.Debug("order match",
					"symbol", order.Symbol,
					"filled_qty", filled,
					"stats_qty", stats,
				)

			case types.StatusDone:
				return filled, stats, nil

			case types.StatusCancelled:
				return filled, stats, fmt.Errorf("order cancelled by venue")

			default:
				e.logger.Debug("ignoring order update", "status", update.Status)
			}
		}
	}
}
