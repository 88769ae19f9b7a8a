// Package exchange contains the venue adapters: the capability set the
// arbitrage core depends on, and the REST/WebSocket implementation for
// the production spot venue.
//
// The core never talks to the network directly. It sees only the Venue
// interface, so a second exchange (or a test fake) plugs in without
// touching the engine, the calculators or the executor.
package exchange

import (
	"context"
	"errors"

	"triarb-bot/pkg/types"
)

// Venue is the capability set an exchange adapter must expose.
//
// SubscribeBookTickers and OrderUpdates block until the stream fails or
// ctx is cancelled; reconnect policy is internal to the adapter, and an
// error returned from either is considered unrecoverable by the caller.
type Venue interface {
	// Catalog fetches the symbol catalog.
	Catalog(ctx context.Context) ([]types.Symbol, error)

	// RefPriceSnapshot fetches the 24h ticker snapshot for the given
	// symbols, keyed by symbol id.
	RefPriceSnapshot(ctx context.Context, symbols []string) (map[string]types.TickerStat, error)

	// SubscribeBookTickers opens one connection streaming top-of-book
	// updates for the given symbols and invokes publish per update.
	SubscribeBookTickers(ctx context.Context, symbols []string, publish func(types.BookTicker)) error

	// SubmitMarketOrder places an authenticated market order.
	SubmitMarketOrder(ctx context.Context, req types.OrderRequest) (types.OrderAck, error)

	// OrderUpdates streams private order-change events into ch.
	OrderUpdates(ctx context.Context, ch chan<- types.OrderUpdate) error
}

// Errors shared by venue adapters.
var (
	// ErrCatalogInvalid reports a fetched catalog that cannot be used
	// (missing fields, empty payload). Fatal at startup.
	ErrCatalogInvalid = errors.New("exchange: invalid symbol catalog")

	// ErrOrderRejected reports a venue-side rejection of an order.
	ErrOrderRejected = errors.New("exchange: order rejected")
)
