// chains.go enumerates the triangular cycles over the configured base
// assets.
//
// A leg is a (symbol, order) pair whose input asset is configured; a
// cycle is three legs where each leg's output feeds the next and the
// last leg closes back into the first. The search runs twice — once
// seeding symbols that hold two configured assets with Asc, once with
// Desc — because such symbols admit both traversals. Duplicates are
// removed by a canonical key that renders every leg under its own order.
package market

import (
	"log/slog"

	"triarb-bot/pkg/types"
)

// ChainBuilder derives the cycle list from a symbol catalog.
type ChainBuilder struct {
	skipAssets  map[string]struct{}
	skipSymbols map[string]struct{}
	logger      *slog.Logger
}

// NewChainBuilder creates a builder with the given exclusion sets.
func NewChainBuilder(skipAssets, skipSymbols []string, logger *slog.Logger) *ChainBuilder {
	sa := make(map[string]struct{}, len(skipAssets))
	for _, a := range skipAssets {
		sa[a] = struct{}{}
	}
	ss := make(map[string]struct{}, len(skipSymbols))
	for _, s := range skipSymbols {
		ss[s] = struct{}{}
	}
	return &ChainBuilder{
		skipAssets:  sa,
		skipSymbols: ss,
		logger:      logger.With("component", "chains"),
	}
}

// Build enumerates all unique cycles over catalog whose first leg
// consumes one of the configured assets. An empty catalog or asset set
// yields an empty list, not an error.
func (b *ChainBuilder) Build(catalog []types.Symbol, assets []types.Asset) []types.Chain {
	symbols := b.eligible(catalog)

	var chains []types.Chain
	for _, seed := range []types.SymbolOrder{types.Asc, types.Desc} {
		chains = append(chains, b.search(symbols, seed, assets)...)
	}

	unique := deduplicate(chains)
	b.logger.Info("chains built",
		"eligible_symbols", len(symbols),
		"candidates", len(chains),
		"unique", len(unique),
	)
	return unique
}

// eligible filters the catalog down to tradeable, non-skipped symbols.
func (b *ChainBuilder) eligible(catalog []types.Symbol) []types.Symbol {
	out := make([]types.Symbol, 0, len(catalog))
	for _, s := range catalog {
		if !s.Tradeable() {
			continue
		}
		if _, ok := b.skipSymbols[s.Symbol]; ok {
			continue
		}
		if _, ok := b.skipAssets[s.BaseAsset]; ok {
			continue
		}
		if _, ok := b.skipAssets[s.QuoteAsset]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (b *ChainBuilder) search(symbols []types.Symbol, seed types.SymbolOrder, assets []types.Asset) []types.Chain {
	var chains []types.Chain

	for _, aSym := range symbols {
		a := types.ChainSymbol{Symbol: aSym, Order: types.Asc}
		baseAsset, ok := defineBaseAsset(&a, seed, assets)
		if !ok {
			continue
		}

		for _, bSym := range symbols {
			bLeg := types.ChainSymbol{Symbol: bSym, Order: types.Asc}
			if !linkLegs(a, &bLeg) {
				continue
			}

			for _, cSym := range symbols {
				cLeg := types.ChainSymbol{Symbol: cSym, Order: types.Asc}
				if !linkLegs(bLeg, &cLeg) {
					continue
				}

				// The last leg must close back into the first leg's
				// input asset.
				if cLeg.OutputAsset() != baseAsset {
					continue
				}

				chains = append(chains, types.Chain{a, bLeg, cLeg})
			}
		}
	}
	return chains
}

// defineBaseAsset decides the first leg's traversal direction and
// returns the cycle's starting asset. Symbols holding two configured
// assets take the seed order; otherwise the direction follows which
// side of the symbol is configured.
func defineBaseAsset(leg *types.ChainSymbol, seed types.SymbolOrder, assets []types.Asset) (string, bool) {
	baseConfigured := hasAsset(assets, leg.Symbol.BaseAsset)
	quoteConfigured := hasAsset(assets, leg.Symbol.QuoteAsset)

	switch {
	case baseConfigured && quoteConfigured:
		leg.Order = seed
	case baseConfigured:
		leg.Order = types.Asc
	case quoteConfigured:
		leg.Order = types.Desc
	default:
		return "", false
	}
	return leg.InputAsset(), true
}

// linkLegs reports whether next can follow prev, fixing next's order so
// that prev's output asset is next's input asset.
func linkLegs(prev types.ChainSymbol, next *types.ChainSymbol) bool {
	if prev.Symbol.Symbol == next.Symbol.Symbol {
		return false
	}

	out := prev.OutputAsset()
	switch out {
	case next.Symbol.BaseAsset:
		next.Order = types.Asc
		return true
	case next.Symbol.QuoteAsset:
		next.Order = types.Desc
		return true
	}
	return false
}

// canonicalKey renders the cycle so equivalent traversals collide. Each
// leg is rendered in traversal direction and tagged with its own order.
func canonicalKey(c types.Chain) string {
	render := func(leg types.ChainSymbol) string {
		if leg.Order == types.Desc {
			return leg.Symbol.QuoteAsset + leg.Symbol.BaseAsset
		}
		return leg.Symbol.Symbol
	}

	key := ""
	for i, leg := range c {
		if i > 0 {
			key += ":"
		}
		key += render(leg) + "(" + string(leg.Order) + ")"
	}
	return key
}

func deduplicate(chains []types.Chain) []types.Chain {
	seen := make(map[string]struct{}, len(chains))
	unique := make([]types.Chain, 0, len(chains))
	for _, c := range chains {
		key := canonicalKey(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

func hasAsset(assets []types.Asset, name string) bool {
	for _, a := range assets {
		if a.Asset == name {
			return true
		}
	}
	return false
}

// FindAsset resolves the configured asset consumed by a cycle's first
// leg. ok is false when the input asset is not configured.
func FindAsset(assets []types.Asset, leg types.ChainSymbol) (types.Asset, bool) {
	name := leg.InputAsset()
	for _, a := range assets {
		if a.Asset == name {
			return a, true
		}
	}
	return types.Asset{}, false
}

// UniqueSymbols returns the distinct venue symbol ids across all cycles.
func UniqueSymbols(chains []types.Chain) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range chains {
		for _, leg := range c {
			if _, ok := seen[leg.Symbol.Symbol]; !ok {
				seen[leg.Symbol.Symbol] = struct{}{}
				out = append(out, leg.Symbol.Symbol)
			}
		}
	}
	return out
}
