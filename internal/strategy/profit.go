// Package strategy implements the arbitrage core: the per-cycle profit
// calculator that turns top-of-book updates into executable three-order
// plans, and the single-slot channel that hands the newest plan to the
// executor.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"triarb-bot/internal/market"
	"triarb-bot/internal/metrics"
	"triarb-bot/internal/numeric"
	"triarb-bot/pkg/types"
)

// feeFactor is 3/100: three taker fills, fee expressed as a percentage.
var feeFactor = decimal.New(3, -2)

// Level is one price level on the relevant side of a leg's book.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// OrderSymbol is the per-leg input to CalculateChainProfit. Levels holds
// the top levels of the side the cycle trades against (bids for Asc,
// asks for Desc), best first. MinProfitQty and MaxOrderQty are set on
// the first leg only.
type OrderSymbol struct {
	Symbol         string
	Order          types.SymbolOrder
	BasePrecision  int32
	QuotePrecision int32
	Filter         types.SymbolFilter
	Levels         []Level

	MinProfitQty decimal.Decimal
	MaxOrderQty  decimal.Decimal
}

// preOrder is the intermediate per-leg state of the size propagation.
type preOrder struct {
	order          types.SymbolOrder
	price          decimal.Decimal
	baseQty        decimal.Decimal
	quoteQty       decimal.Decimal
	basePrecision  int32
	quotePrecision int32
}

// legPrecision is the scale of the quantity a leg consumes: base units
// for Asc (a sell), quote units for Desc (a buy).
func legPrecision(leg OrderSymbol) int32 {
	if leg.Order == types.Desc {
		return leg.QuotePrecision
	}
	return leg.BasePrecision
}

// CalculateChainProfit builds a candidate three-order plan for the cycle
// and admits it through the fee-adjusted profit gate.
//
// Phase 1 propagates the first leg's capped size along the cycle,
// walking up to depthLimit levels per leg; when a later leg cannot
// absorb its predecessor's output, the shortfall is propagated back to
// shrink the earlier legs. Phase 2 snaps prices and quantities to the
// venue grid, discarding the whole cycle if any leg falls under its lot
// minimum. Phase 3 keeps a triple only if its edge clears a flat fee
// budget for three taker fills by at least the running minimum profit,
// raising that minimum to the admitted edge so a later triple replaces
// it only if its edge is at least as large.
//
// Returns the last admitted triple (the most profitable one), or nil.
func CalculateChainProfit(legs [3]OrderSymbol, depthLimit int, feePercent decimal.Decimal) []types.ChainOrder {
	for _, leg := range legs {
		if len(leg.Levels) == 0 || !leg.Levels[0].Price.IsPositive() {
			return nil
		}
	}

	maxOrderQty := numeric.TruncWithScale(legs[0].MaxOrderQty, legPrecision(legs[0]))
	minProfit := numeric.TruncWithScale(legs[0].MinProfitQty, legPrecision(legs[0]))
	if !maxOrderQty.IsPositive() {
		return nil
	}

	// Phase 1 — raw size propagation.
	var pre []preOrder
	for depth := 0; depth < depthLimit; depth++ {
		for i, leg := range legs {
			capQty := maxOrderQty
			if i != 0 {
				capQty = pre[len(pre)-1].quoteQty
			}

			levels := leg.Levels
			if len(levels) > depth+1 {
				levels = levels[:depth+1]
			}

			// Sum quantity across the walked levels; the last walked
			// price prices the whole leg.
			price := decimal.Zero
			baseQty := decimal.Zero
			for _, lvl := range levels {
				qty := lvl.Qty
				if leg.Order == types.Desc {
					qty = numeric.TruncWithScale(lvl.Qty.Mul(lvl.Price), leg.QuotePrecision)
				}
				price = lvl.Price
				baseQty = baseQty.Add(qty)
				if baseQty.GreaterThanOrEqual(capQty) {
					baseQty = capQty
					break
				}
			}

			var quoteQty decimal.Decimal
			if leg.Order == types.Asc {
				quoteQty = numeric.TruncWithScale(baseQty.Mul(price), leg.QuotePrecision)
			} else {
				quoteQty = numeric.DivTrunc(baseQty, price, leg.BasePrecision)
			}

			pre = append(pre, preOrder{
				order:          leg.Order,
				price:          price,
				baseQty:        baseQty,
				quoteQty:       quoteQty,
				basePrecision:  leg.BasePrecision,
				quotePrecision: leg.QuotePrecision,
			})

			// A mid-cycle leg that could not absorb the previous leg's
			// output shrinks every leg before it.
			if i != 0 && baseQty.LessThan(capQty) {
				backPropagate(pre, i)
			}
		}

		// The first leg already reached its cap: deeper walks cannot
		// add size.
		if pre[len(pre)-3].baseQty.Equal(maxOrderQty) {
			break
		}
	}

	// Phase 2 — grid rounding; Phase 3 — profit gate.
	var accepted []types.ChainOrder
	currentMin := minProfit

outer:
	for i := 0; i+2 < len(pre); i += 3 {
		tmp := make([]types.ChainOrder, 0, 3)

		for count := 0; count < 3; count++ {
			po := pre[count]
			leg := legs[count]
			price := numeric.TruncWithScale(po.price, leg.Filter.PriceTick)
			if !price.IsPositive() {
				continue outer
			}

			baseIn := pre[i].baseQty
			if count != 0 {
				baseIn = tmp[count-1].QuoteQty
			}

			var roundedBase, roundedQuote decimal.Decimal
			if po.order == types.Asc {
				roundedBase = numeric.TruncWithScale(baseIn, leg.Filter.LotStep)
				if roundedBase.LessThan(leg.Filter.LotMinQty) {
					continue outer
				}
				roundedQuote = roundedBase.Mul(price)
			} else {
				roundedQuote = numeric.DivTrunc(baseIn, price, leg.Filter.LotStep)
				if roundedQuote.LessThan(leg.Filter.LotMinQty) {
					continue outer
				}
				roundedBase = baseIn
			}

			tmp = append(tmp, types.ChainOrder{
				Symbol:         leg.Symbol,
				Order:          po.order,
				Price:          price,
				BaseQty:        roundedBase,
				QuoteQty:       roundedQuote,
				BaseIncrement:  leg.Filter.BaseIncrement(),
				QuoteIncrement: leg.Filter.QuoteIncrement(),
			})
		}

		// Edge of the round trip minus a flat fee budget for three
		// taker fills.
		fee := tmp[0].BaseQty.Mul(feePercent).Mul(feeFactor)
		diff := tmp[2].QuoteQty.Sub(tmp[0].BaseQty)
		net := diff.Sub(fee)

		if net.GreaterThanOrEqual(currentMin) {
			currentMin = net
			accepted = tmp
		}
	}

	return accepted
}

// backPropagate shrinks the legs before legIdx so that each leg's output
// exactly feeds the next leg's (reduced) input. The first leg is reached
// last; it sheds the size the rest of the cycle cannot carry.
func backPropagate(pre []preOrder, legIdx int) {
	n := len(pre)
	for count := 1; count <= legIdx; count++ {
		a := &pre[n-count-1]
		b := pre[n-count]

		if a.quoteQty.Equal(b.baseQty) {
			return
		}

		var baseQty decimal.Decimal
		if a.order == types.Asc {
			baseQty = numeric.DivTrunc(b.baseQty, a.price, a.basePrecision)
		} else {
			baseQty = numeric.TruncWithScale(b.baseQty.Mul(a.price), a.quotePrecision)
		}

		a.quoteQty = b.baseQty
		a.baseQty = baseQty
	}
}

// Calculator is the reactive loop of one cycle. It subscribes to the
// cycle's three symbols, keeps a local copy of their latest tickers and
// re-runs the profit calculation whenever an effective price changes.
type Calculator struct {
	chain      types.Chain
	asset      types.Asset // configured asset consumed by the first leg
	depthLimit int
	feePercent decimal.Decimal

	broadcast *market.Broadcast
	orders    *OrdersChannel
	metrics   *metrics.Metrics
	logger    *slog.Logger

	lastPrices [3]decimal.Decimal
	haveLast   bool
}

// NewCalculator creates the calculator for one cycle.
func NewCalculator(
	chain types.Chain,
	asset types.Asset,
	depthLimit int,
	feePercent decimal.Decimal,
	broadcast *market.Broadcast,
	orders *OrdersChannel,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Calculator {
	return &Calculator{
		chain:      chain,
		asset:      asset,
		depthLimit: depthLimit,
		feePercent: feePercent,
		broadcast:  broadcast,
		orders:     orders,
		metrics:    m,
		logger: logger.With(
			"component", "calculator",
			"chain", fmt.Sprintf("%s:%s:%s", chain[0].Symbol.Symbol, chain[1].Symbol.Symbol, chain[2].Symbol.Symbol),
		),
	}
}

// Run blocks until ctx is cancelled. Evaluations of one cycle are
// strictly serial; updates arriving during an evaluation coalesce into
// the next wake-up.
func (c *Calculator) Run(ctx context.Context) error {
	var subs [3]*market.Subscription
	for i, leg := range c.chain {
		sub, err := c.broadcast.Subscribe(leg.Symbol.Symbol)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", leg.Symbol.Symbol, err)
		}
		subs[i] = sub
	}

	local := market.NewStore()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-subs[0].Changes():
		case <-subs[1].Changes():
		case <-subs[2].Changes():
		}

		// Whichever slot fired, pull all three: extra reads are cheap
		// and keep the local store as fresh as possible.
		applied := false
		for _, sub := range subs {
			if t, ok := sub.Latest(); ok && local.Update(t) {
				applied = true
			}
		}
		if !applied {
			continue
		}

		c.evaluate(local)
	}
}

func (c *Calculator) evaluate(local *market.Store) {
	var tickers [3]types.BookTicker
	var prices [3]decimal.Decimal

	for i, leg := range c.chain {
		t, ok := local.Get(leg.Symbol.Symbol)
		if !ok {
			return
		}
		if leg.Order == types.Asc {
			if !t.HasBid() {
				return
			}
			prices[i] = t.BidPrice
		} else {
			if !t.HasAsk() {
				return
			}
			prices[i] = t.AskPrice
		}
		tickers[i] = t
	}

	// Identical effective prices cannot produce a different plan.
	if c.haveLast &&
		prices[0].Equal(c.lastPrices[0]) &&
		prices[1].Equal(c.lastPrices[1]) &&
		prices[2].Equal(c.lastPrices[2]) {
		return
	}
	c.lastPrices = prices
	c.haveLast = true

	var legs [3]OrderSymbol
	for i, leg := range c.chain {
		lvl := Level{Price: tickers[i].BidPrice, Qty: tickers[i].BidQty}
		if leg.Order == types.Desc {
			lvl = Level{Price: tickers[i].AskPrice, Qty: tickers[i].AskQty}
		}
		legs[i] = OrderSymbol{
			Symbol:         leg.Symbol.Symbol,
			Order:          leg.Order,
			BasePrecision:  leg.Symbol.BasePrecision,
			QuotePrecision: leg.Symbol.QuotePrecision,
			Filter:         leg.Symbol.Filter,
			Levels:         []Level{lvl},
		}
	}
	legs[0].MinProfitQty = c.asset.MinProfitQty
	legs[0].MaxOrderQty = c.asset.MaxOrderQty

	c.metrics.ProcessedChain(c.chain.Symbols())

	orders := CalculateChainProfit(legs, c.depthLimit, c.feePercent)
	if len(orders) != 3 {
		return
	}

	plan := types.ChainOrders{
		TS:         time.Now().UnixMilli(),
		ChainID:    uuid.New(),
		FeePercent: c.feePercent,
		Orders:     [3]types.ChainOrder{orders[0], orders[1], orders[2]},
	}
	c.orders.Publish(plan)

	c.logger.Info("profitable chain found",
		"chain_id", plan.ChainID,
		"first_base_qty", plan.Orders[0].BaseQty,
		"last_quote_qty", plan.Orders[2].QuoteQty,
	)
}
