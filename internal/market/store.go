// Package market provides the market-data plumbing of the bot: the
// monotonic top-of-book store, the per-symbol latest-value broadcast,
// the asset builder and the cycle enumerator.
package market

import (
	"sync"

	"triarb-bot/pkg/types"
)

// Store keeps the latest top-of-book per symbol under a monotonic
// replacement rule: a side is replaced only by a strictly newer
// sequence, and the stored UpdateID is the highest ever observed for
// the symbol. Safe for many readers and many writers.
//
// Venues that publish bids and asks in separate messages are handled by
// the per-side sequences; a message missing one side leaves the stored
// side untouched.
type Store struct {
	mu sync.RWMutex
	m  map[string]types.BookTicker
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{m: make(map[string]types.BookTicker)}
}

// Update merges t into the store. Returns true when at least one side
// was applied; false means the message was entirely stale.
func (s *Store) Update(t types.BookTicker) bool {
	bidSeq, askSeq := t.BidSeq, t.AskSeq
	if bidSeq == 0 {
		bidSeq = t.UpdateID
	}
	if askSeq == 0 {
		askSeq = t.UpdateID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.m[t.Symbol]
	if !ok {
		t.BidSeq, t.AskSeq = bidSeq, askSeq
		s.m[t.Symbol] = t
		return true
	}

	applied := false
	if t.HasBid() && bidSeq > cur.BidSeq {
		cur.BidPrice, cur.BidQty, cur.BidSeq = t.BidPrice, t.BidQty, bidSeq
		applied = true
	}
	if t.HasAsk() && askSeq > cur.AskSeq {
		cur.AskPrice, cur.AskQty, cur.AskSeq = t.AskPrice, t.AskQty, askSeq
		applied = true
	}
	if t.UpdateID > cur.UpdateID {
		cur.UpdateID = t.UpdateID
	}

	s.m[t.Symbol] = cur
	return applied
}

// Get returns the latest ticker for symbol by value.
func (s *Store) Get(symbol string) (types.BookTicker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.m[symbol]
	return t, ok
}
