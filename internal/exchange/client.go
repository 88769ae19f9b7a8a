// client.go implements the REST half of the venue adapter:
//   - Catalog:          GET /api/v2/symbols      — full symbol catalog
//   - RefPriceSnapshot: GET /api/v1/market/stats — 24h ticker snapshot
//
// Every request passes the shared request-weight limiter before it goes
// out and is retried on 5xx by resty.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"triarb-bot/internal/numeric"
	"triarb-bot/pkg/types"
)

// Request weights per the venue's published schedule.
const (
	weightCatalog  = 10
	weightSnapshot = 2
	weightOrder    = 1
)

// Client is the production venue adapter. It implements Venue with a
// resty REST client plus the WebSocket feeds in ws.go and orders.go.
type Client struct {
	http   *resty.Client
	weight *RequestWeight
	creds  Credentials

	wsPublicURL  string
	wsPrivateURL string

	ordersOnce  sync.Once
	ordersState *ordersConn

	logger *slog.Logger
}

// NewClient creates a venue adapter.
func NewClient(apiURL, wsPublicURL, wsPrivateURL string, creds Credentials, weight *RequestWeight, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:         httpClient,
		weight:       weight,
		creds:        creds,
		wsPublicURL:  wsPublicURL,
		wsPrivateURL: wsPrivateURL,
		logger:       logger.With("component", "exchange"),
	}
}

// symbolRow is the venue's catalog wire format.
type symbolRow struct {
	Symbol          string `json:"symbol"`
	BaseCurrency    string `json:"baseCurrency"`
	QuoteCurrency   string `json:"quoteCurrency"`
	BaseIncrement   string `json:"baseIncrement"`
	QuoteIncrement  string `json:"quoteIncrement"`
	PriceIncrement  string `json:"priceIncrement"`
	BaseMinSize     string `json:"baseMinSize"`
	EnableTrading   bool   `json:"enableTrading"`
	MarketOrderable bool   `json:"enableMarketOrders"`
	LimitOrderable  bool   `json:"enableLimitOrders"`
}

type catalogResponse struct {
	Data []symbolRow `json:"data"`
}

// Catalog fetches and normalizes the symbol catalog.
func (c *Client) Catalog(ctx context.Context) ([]types.Symbol, error) {
	if err := c.weight.WaitAcquire(ctx, weightCatalog); err != nil {
		return nil, err
	}

	var result catalogResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/v2/symbols")
	if err != nil {
		return nil, fmt.Errorf("get symbols: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get symbols: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("get symbols: %w: empty catalog", ErrCatalogInvalid)
	}

	symbols := make([]types.Symbol, 0, len(result.Data))
	for _, row := range result.Data {
		s, err := normalizeSymbol(row)
		if err != nil {
			return nil, fmt.Errorf("get symbols: %w: %v", ErrCatalogInvalid, err)
		}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

func normalizeSymbol(row symbolRow) (types.Symbol, error) {
	if row.Symbol == "" || row.BaseCurrency == "" || row.QuoteCurrency == "" {
		return types.Symbol{}, fmt.Errorf("symbol %q: missing identity fields", row.Symbol)
	}

	baseInc, err := decimal.NewFromString(row.BaseIncrement)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("symbol %s: baseIncrement: %v", row.Symbol, err)
	}
	quoteInc, err := decimal.NewFromString(row.QuoteIncrement)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("symbol %s: quoteIncrement: %v", row.Symbol, err)
	}
	priceInc, err := decimal.NewFromString(row.PriceIncrement)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("symbol %s: priceIncrement: %v", row.Symbol, err)
	}
	minQty, err := decimal.NewFromString(row.BaseMinSize)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("symbol %s: baseMinSize: %v", row.Symbol, err)
	}

	lotStep := numeric.ScaleOf(baseInc)
	quoteStep := numeric.ScaleOf(quoteInc)

	return types.Symbol{
		Symbol:         row.Symbol,
		BaseAsset:      row.BaseCurrency,
		QuoteAsset:     row.QuoteCurrency,
		BasePrecision:  lotStep,
		QuotePrecision: quoteStep,
		Filter: types.SymbolFilter{
			PriceTick: numeric.ScaleOf(priceInc),
			LotStep:   lotStep,
			QuoteStep: quoteStep,
			LotMinQty: minQty,
		},
		Trading:      row.EnableTrading,
		MarketOrders: row.MarketOrderable,
		LimitOrders:  row.LimitOrderable,
	}, nil
}

// statsRow is the venue's 24h ticker wire format.
type statsRow struct {
	Symbol      string `json:"symbol"`
	Last        string `json:"last"`
	VolValue    string `json:"volValue"` // 24h volume in quote units
	TradingMode string `json:"tradingMode"`
}

type statsResponse struct {
	Data []statsRow `json:"data"`
}

// RefPriceSnapshot fetches the 24h ticker snapshot for the given symbols.
// Symbols absent from the venue response are simply missing from the map.
func (c *Client) RefPriceSnapshot(ctx context.Context, symbols []string) (map[string]types.TickerStat, error) {
	if err := c.weight.WaitAcquire(ctx, weightSnapshot); err != nil {
		return nil, err
	}

	var result statsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		SetResult(&result).
		Get("/api/v1/market/stats")
	if err != nil {
		return nil, fmt.Errorf("get market stats: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get market stats: status %d: %s", resp.StatusCode(), resp.String())
	}

	stats := make(map[string]types.TickerStat, len(result.Data))
	for _, row := range result.Data {
		last, err := decimal.NewFromString(row.Last)
		if err != nil {
			c.logger.Warn("skipping stats row with bad last price", "symbol", row.Symbol, "last", row.Last)
			continue
		}
		vol := decimal.Zero
		if row.VolValue != "" {
			if v, err := decimal.NewFromString(row.VolValue); err == nil {
				vol = v
			}
		}
		stats[row.Symbol] = types.TickerStat{
			Symbol:      row.Symbol,
			LastPrice:   last,
			QuoteVolume: vol,
			Trading:     row.TradingMode == "" || row.TradingMode == "TRADING",
		}
	}
	return stats, nil
}
