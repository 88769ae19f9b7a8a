// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot — symbols, cycle legs,
// top-of-book tickers, and the order plans exchanged between the profit
// calculator and the executor. It has no dependencies on internal packages,
// so it can be imported by any layer.
package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: buy or sell.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// SymbolOrder tells how a cycle traverses a symbol.
//
// Asc means the cycle consumes the symbol's base asset and produces its
// quote asset (a sell of base at the bid). Desc means the reverse: the
// cycle spends quote to obtain base (a buy at the ask).
type SymbolOrder string

const (
	Asc  SymbolOrder = "asc"
	Desc SymbolOrder = "desc"
)

// Side maps the traversal direction to the venue order side.
func (o SymbolOrder) Side() Side {
	if o == Desc {
		return Buy
	}
	return Sell
}

// OrderStatus enumerates the states reported on the private order stream.
type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusMatch     OrderStatus = "match"
	StatusDone      OrderStatus = "done"
	StatusCancelled OrderStatus = "cancelled"
)

// ————————————————————————————————————————————————————————————————————————
// Exchange catalog
// ————————————————————————————————————————————————————————————————————————

// SymbolFilter holds the venue's discrete-grid rules for one symbol.
// PriceTick, LotStep and QuoteStep are scales: the number of fractional
// digits the venue admits for the price, the base quantity and the quote
// quantity. The corresponding increments are 10^(-scale).
type SymbolFilter struct {
	PriceTick int32
	LotStep   int32
	QuoteStep int32
	LotMinQty decimal.Decimal
}

// BaseIncrement returns the smallest admissible base-quantity step.
func (f SymbolFilter) BaseIncrement() decimal.Decimal {
	return decimal.New(1, -f.LotStep)
}

// QuoteIncrement returns the smallest admissible quote-quantity step.
func (f SymbolFilter) QuoteIncrement() decimal.Decimal {
	return decimal.New(1, -f.QuoteStep)
}

// Symbol is one entry of the exchange catalog. Immutable after load.
type Symbol struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	BasePrecision  int32
	QuotePrecision int32
	Filter         SymbolFilter

	Trading      bool // symbol is in a trading state
	MarketOrders bool // venue admits market orders
	LimitOrders  bool // venue admits limit orders
}

// Tradeable reports whether the symbol can participate in a cycle.
func (s Symbol) Tradeable() bool {
	return s.Trading && s.MarketOrders && s.LimitOrders
}

// ChainSymbol is one leg of a cycle: a symbol plus the direction in which
// the cycle traverses it.
type ChainSymbol struct {
	Symbol Symbol
	Order  SymbolOrder
}

// InputAsset is the asset the leg consumes.
func (c ChainSymbol) InputAsset() string {
	if c.Order == Desc {
		return c.Symbol.QuoteAsset
	}
	return c.Symbol.BaseAsset
}

// OutputAsset is the asset the leg produces.
func (c ChainSymbol) OutputAsset() string {
	if c.Order == Desc {
		return c.Symbol.BaseAsset
	}
	return c.Symbol.QuoteAsset
}

// Chain is a closed three-leg cycle: the output asset of each leg equals
// the input asset of the next, and leg 3 closes back into leg 1.
type Chain [3]ChainSymbol

// Symbols returns the three venue symbol ids in leg order.
func (c Chain) Symbols() [3]string {
	return [3]string{c[0].Symbol.Symbol, c[1].Symbol.Symbol, c[2].Symbol.Symbol}
}

// ————————————————————————————————————————————————————————————————————————
// Assets
// ————————————————————————————————————————————————————————————————————————

// Asset is a configured base asset after the builder has resolved its
// limits into native units.
type Asset struct {
	Asset     string
	Precision int32
	RefSymbol string // symbol quoting the asset against the reference asset

	MinProfitQty decimal.Decimal
	MaxOrderQty  decimal.Decimal
}

// TickerStat is one row of the venue's 24h ticker snapshot, used by the
// asset builder to scale configured limits into native units.
type TickerStat struct {
	Symbol      string
	LastPrice   decimal.Decimal
	QuoteVolume decimal.Decimal
	Trading     bool
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// BookTicker is the latest top-of-book for one symbol.
//
// Some venues deliver bids and asks in separate messages; such messages
// carry a zero quantity on the missing side and a per-side sequence. For
// venues publishing both sides at once, BidSeq and AskSeq may be left
// zero and UpdateID governs both sides.
type BookTicker struct {
	Symbol   string
	UpdateID int64
	BidSeq   int64
	AskSeq   int64

	BidPrice decimal.Decimal
	BidQty   decimal.Decimal
	AskPrice decimal.Decimal
	AskQty   decimal.Decimal
}

// HasBid reports whether the message carries a bid side.
func (t BookTicker) HasBid() bool { return t.BidQty.IsPositive() }

// HasAsk reports whether the message carries an ask side.
func (t BookTicker) HasAsk() bool { return t.AskQty.IsPositive() }

// ————————————————————————————————————————————————————————————————————————
// Order plans
// ————————————————————————————————————————————————————————————————————————

// ChainOrder is one finalized leg of an executable plan. BaseQty and
// QuoteQty are already snapped to the venue's lot/tick grid.
type ChainOrder struct {
	Symbol         string
	Order          SymbolOrder
	Price          decimal.Decimal
	BaseQty        decimal.Decimal
	QuoteQty       decimal.Decimal
	BaseIncrement  decimal.Decimal
	QuoteIncrement decimal.Decimal
}

// ChainOrders is a complete three-order plan. Produced by the profit
// calculator, consumed at most once by the executor; a newer plan
// overwrites an unconsumed older one.
type ChainOrders struct {
	TS         int64 // unix millis at plan construction
	ChainID    uuid.UUID
	FeePercent decimal.Decimal
	Orders     [3]ChainOrder
}

// Symbols returns the three venue symbol ids in leg order.
func (c ChainOrders) Symbols() [3]string {
	return [3]string{c.Orders[0].Symbol, c.Orders[1].Symbol, c.Orders[2].Symbol}
}

// ————————————————————————————————————————————————————————————————————————
// Private order channel
// ————————————————————————————————————————————————————————————————————————

// OrderRequest is an authenticated market-order submission. Exactly one
// of Size (base units, for sells) or Funds (quote units, for buys) is set.
type OrderRequest struct {
	ClientID string
	Symbol   string
	Side     Side
	Size     string
	Funds    string
}

// OrderAck correlates a submission response with its request.
type OrderAck struct {
	OrderID  string
	ClientID string
}

// OrderUpdate is one event from the venue's order-change push stream.
// MatchQty and MatchPrice are only present on match events, and some
// venues omit them even then; consumers must treat them as optional.
type OrderUpdate struct {
	ClientID   string
	Symbol     string
	Status     OrderStatus
	MatchQty   *decimal.Decimal
	MatchPrice *decimal.Decimal
}
