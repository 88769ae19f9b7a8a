// assets.go resolves the configured base assets into native units.
//
// Limits in config are denominated in the pricing-reference asset
// (typically USDT) so one number works for every asset. The builder
// divides them by each asset's reference price and truncates to the
// asset precision. Assets whose reference symbol is missing, halted or
// too illiquid are dropped with a warning rather than failing startup.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"triarb-bot/internal/numeric"
	"triarb-bot/pkg/types"
)

// ErrReferencePriceUnavailable reports that an asset's reference symbol
// is missing from the snapshot or not trading.
var ErrReferencePriceUnavailable = errors.New("market: reference price unavailable")

// SnapshotFunc fetches the 24h ticker snapshot for the given symbols.
type SnapshotFunc func(ctx context.Context, symbols []string) (map[string]types.TickerStat, error)

// AssetConfig is one configured base asset before resolution.
type AssetConfig struct {
	Asset     string
	Precision int32
	RefSymbol string // symbol quoting the asset against the reference asset
}

// AssetBuilder computes per-asset min-profit and max-order quantities.
type AssetBuilder struct {
	snapshot SnapshotFunc
	assets   []AssetConfig

	referenceAsset      string
	defaultMinProfitQty decimal.Decimal
	defaultMaxOrderQty  decimal.Decimal
	minRefVolume24h     decimal.Decimal // zero disables the volume floor

	logger *slog.Logger
}

// NewAssetBuilder creates a builder over the given snapshot source.
func NewAssetBuilder(
	snapshot SnapshotFunc,
	assets []AssetConfig,
	referenceAsset string,
	defaultMinProfitQty, defaultMaxOrderQty, minRefVolume24h decimal.Decimal,
	logger *slog.Logger,
) *AssetBuilder {
	return &AssetBuilder{
		snapshot:            snapshot,
		assets:              assets,
		referenceAsset:      referenceAsset,
		defaultMinProfitQty: defaultMinProfitQty,
		defaultMaxOrderQty:  defaultMaxOrderQty,
		minRefVolume24h:     minRefVolume24h,
		logger:              logger.With("component", "assets"),
	}
}

// Build resolves every configured asset. The returned slice contains
// only assets with a usable reference price; dropped assets are logged.
func (b *AssetBuilder) Build(ctx context.Context) ([]types.Asset, error) {
	symbols := make([]string, 0, len(b.assets))
	for _, a := range b.assets {
		if a.Asset != b.referenceAsset {
			symbols = append(symbols, a.RefSymbol)
		}
	}

	var stats map[string]types.TickerStat
	if len(symbols) > 0 {
		var err error
		stats, err = b.snapshot(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("fetch reference snapshot: %w", err)
		}
	}

	out := make([]types.Asset, 0, len(b.assets))
	for _, cfg := range b.assets {
		asset, err := b.resolve(cfg, stats)
		if err != nil {
			b.logger.Warn("dropping asset", "asset", cfg.Asset, "error", err)
			continue
		}
		out = append(out, asset)
		b.logger.Info("asset resolved",
			"asset", asset.Asset,
			"min_profit_qty", asset.MinProfitQty,
			"max_order_qty", asset.MaxOrderQty,
		)
	}
	return out, nil
}

func (b *AssetBuilder) resolve(cfg AssetConfig, stats map[string]types.TickerStat) (types.Asset, error) {
	asset := types.Asset{
		Asset:     cfg.Asset,
		Precision: cfg.Precision,
		RefSymbol: cfg.RefSymbol,
	}

	// The reference asset prices itself: defaults apply unscaled.
	if cfg.Asset == b.referenceAsset {
		asset.MinProfitQty = numeric.TruncWithScale(b.defaultMinProfitQty, cfg.Precision)
		asset.MaxOrderQty = numeric.TruncWithScale(b.defaultMaxOrderQty, cfg.Precision)
		return asset, nil
	}

	stat, ok := stats[cfg.RefSymbol]
	if !ok || !stat.Trading || !stat.LastPrice.IsPositive() {
		return types.Asset{}, fmt.Errorf("%w: %s", ErrReferencePriceUnavailable, cfg.RefSymbol)
	}
	if b.minRefVolume24h.IsPositive() && stat.QuoteVolume.LessThan(b.minRefVolume24h) {
		return types.Asset{}, fmt.Errorf("24h volume %s below floor %s", stat.QuoteVolume, b.minRefVolume24h)
	}

	asset.MinProfitQty = numeric.DivTrunc(b.defaultMinProfitQty, stat.LastPrice, cfg.Precision)
	asset.MaxOrderQty = numeric.DivTrunc(b.defaultMaxOrderQty, stat.LastPrice, cfg.Precision)
	return asset, nil
}
