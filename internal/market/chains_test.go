package market

import (
	"fmt"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"triarb-bot/pkg/types"
)

func sym(name, base, quote string) types.Symbol {
	return types.Symbol{
		Symbol:         name,
		BaseAsset:      base,
		QuoteAsset:     quote,
		BasePrecision:  8,
		QuotePrecision: 8,
		Filter: types.SymbolFilter{
			PriceTick: 2,
			LotStep:   5,
			QuoteStep: 8,
			LotMinQty: decimal.RequireFromString("0.00001"),
		},
		Trading:      true,
		MarketOrders: true,
		LimitOrders:  true,
	}
}

func asset(name string) types.Asset {
	return types.Asset{
		Asset:        name,
		Precision:    8,
		MinProfitQty: decimal.RequireFromString("0.0001"),
		MaxOrderQty:  decimal.RequireFromString("1"),
	}
}

func triangleCatalog() []types.Symbol {
	return []types.Symbol{
		sym("BTC-USDT", "BTC", "USDT"),
		sym("ETH-USDT", "ETH", "USDT"),
		sym("ETH-BTC", "ETH", "BTC"),
	}
}

func newChainBuilder(skipAssets, skipSymbols []string) *ChainBuilder {
	return NewChainBuilder(skipAssets, skipSymbols, slog.Default())
}

func assertClosed(t *testing.T, chains []types.Chain) {
	t.Helper()
	for _, c := range chains {
		for i := 0; i < 3; i++ {
			next := (i + 1) % 3
			if c[i].OutputAsset() != c[next].InputAsset() {
				t.Errorf("chain %v: leg %d output %s != leg %d input %s",
					c.Symbols(), i, c[i].OutputAsset(), next, c[next].InputAsset())
			}
		}
	}
}

func assertUnique(t *testing.T, chains []types.Chain) {
	t.Helper()
	seen := make(map[string]struct{})
	for _, c := range chains {
		key := canonicalKey(c)
		if _, ok := seen[key]; ok {
			t.Errorf("duplicate canonical key %s", key)
		}
		seen[key] = struct{}{}
	}
}

func TestBuildSingleBaseAsset(t *testing.T) {
	t.Parallel()
	b := newChainBuilder(nil, nil)

	chains := b.Build(triangleCatalog(), []types.Asset{asset("USDT")})

	// USDT→BTC→ETH→USDT and USDT→ETH→BTC→USDT.
	if len(chains) != 2 {
		t.Fatalf("len(chains) = %d, want 2", len(chains))
	}
	assertClosed(t, chains)
	assertUnique(t, chains)

	for _, c := range chains {
		if c[0].InputAsset() != "USDT" {
			t.Errorf("chain %v starts in %s, want USDT", c.Symbols(), c[0].InputAsset())
		}
	}
}

func TestBuildAllAssetsConfigured(t *testing.T) {
	t.Parallel()
	b := newChainBuilder(nil, nil)

	assets := []types.Asset{asset("USDT"), asset("BTC"), asset("ETH")}
	chains := b.Build(triangleCatalog(), assets)

	// Both traversal directions from each of the three starting assets.
	if len(chains) != 6 {
		t.Fatalf("len(chains) = %d, want 6", len(chains))
	}
	assertClosed(t, chains)
	assertUnique(t, chains)
}

// A symbol holding two configured assets is enumerated under both
// traversal directions.
func TestBuildDualAssetSymbol(t *testing.T) {
	t.Parallel()
	b := newChainBuilder(nil, nil)

	assets := []types.Asset{asset("BTC"), asset("ETH")}
	chains := b.Build(triangleCatalog(), assets)

	if len(chains) != 4 {
		t.Fatalf("len(chains) = %d, want 4", len(chains))
	}
	assertClosed(t, chains)
	assertUnique(t, chains)

	var ethBTCAsc, ethBTCDesc bool
	for _, c := range chains {
		if c[0].Symbol.Symbol == "ETH-BTC" {
			switch c[0].Order {
			case types.Asc:
				ethBTCAsc = true
			case types.Desc:
				ethBTCDesc = true
			}
		}
	}
	if !ethBTCAsc || !ethBTCDesc {
		t.Errorf("dual-asset symbol not enumerated in both directions: asc=%v desc=%v", ethBTCAsc, ethBTCDesc)
	}
}

func TestBuildSkipSets(t *testing.T) {
	t.Parallel()

	assets := []types.Asset{asset("USDT")}

	b := newChainBuilder(nil, []string{"ETH-BTC"})
	if chains := b.Build(triangleCatalog(), assets); len(chains) != 0 {
		t.Errorf("skip_symbols: len(chains) = %d, want 0", len(chains))
	}

	b = newChainBuilder([]string{"ETH"}, nil)
	if chains := b.Build(triangleCatalog(), assets); len(chains) != 0 {
		t.Errorf("skip_assets: len(chains) = %d, want 0", len(chains))
	}
}

func TestBuildNonTradeableExcluded(t *testing.T) {
	t.Parallel()
	b := newChainBuilder(nil, nil)

	catalog := triangleCatalog()
	catalog[2].Trading = false

	if chains := b.Build(catalog, []types.Asset{asset("USDT")}); len(chains) != 0 {
		t.Errorf("halted symbol still enumerated: %d chains", len(chains))
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	t.Parallel()
	b := newChainBuilder(nil, nil)

	if chains := b.Build(nil, []types.Asset{asset("USDT")}); len(chains) != 0 {
		t.Errorf("empty catalog: len(chains) = %d, want 0", len(chains))
	}
	if chains := b.Build(triangleCatalog(), nil); len(chains) != 0 {
		t.Errorf("empty assets: len(chains) = %d, want 0", len(chains))
	}
}

// Random catalogs: every produced cycle is closed, unique, and starts in
// a configured asset.
func TestBuildRandomCatalogProperties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	assetNames := []string{"USDT", "BTC", "ETH", "SOL", "TRX", "ADA"}

	for round := 0; round < 25; round++ {
		var catalog []types.Symbol
		seen := make(map[string]struct{})
		for i := 0; i < 12; i++ {
			a := assetNames[rng.Intn(len(assetNames))]
			b := assetNames[rng.Intn(len(assetNames))]
			if a == b {
				continue
			}
			name := fmt.Sprintf("%s-%s", a, b)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			catalog = append(catalog, sym(name, a, b))
		}

		var assets []types.Asset
		for _, n := range assetNames[:1+rng.Intn(3)] {
			assets = append(assets, asset(n))
		}

		chains := newChainBuilder(nil, nil).Build(catalog, assets)
		assertClosed(t, chains)
		assertUnique(t, chains)

		for _, c := range chains {
			found := false
			for _, a := range assets {
				if a.Asset == c[0].InputAsset() {
					found = true
				}
			}
			if !found {
				t.Errorf("chain %v starts in unconfigured asset %s", c.Symbols(), c[0].InputAsset())
			}
		}
	}
}
