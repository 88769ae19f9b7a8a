// broadcast.go implements the per-symbol latest-value fan-out between
// the ticker ingest and the per-cycle calculators.
//
// Each symbol owns a single slot. Publishing overwrites the slot and
// pokes every subscriber through a capacity-1 notification channel, so a
// subscriber that is slow sees coalesced updates: it wakes once and
// reads only the newest value. No per-subscriber queue can grow.
package market

import (
	"errors"
	"sync"

	"triarb-bot/pkg/types"
)

// ErrNoSuchSymbol is returned by Subscribe and Publish for symbols the
// broadcast was not built with.
var ErrNoSuchSymbol = errors.New("market: no such symbol")

// Broadcast is a keyed family of single-slot latest-value channels. The
// symbol set is fixed at construction; subscriptions may be taken at any
// time.
type Broadcast struct {
	slots map[string]*slot
}

type slot struct {
	mu   sync.Mutex
	val  types.BookTicker
	has  bool
	subs []chan struct{}
}

// NewBroadcast creates a broadcast with one slot per symbol.
func NewBroadcast(symbols []string) *Broadcast {
	slots := make(map[string]*slot, len(symbols))
	for _, s := range symbols {
		slots[s] = &slot{}
	}
	return &Broadcast{slots: slots}
}

// Publish overwrites the symbol's slot with t and wakes all subscribers.
func (b *Broadcast) Publish(symbol string, t types.BookTicker) error {
	sl, ok := b.slots[symbol]
	if !ok {
		return ErrNoSuchSymbol
	}

	sl.mu.Lock()
	sl.val = t
	sl.has = true
	for _, ch := range sl.subs {
		select {
		case ch <- struct{}{}:
		default: // subscriber already has a pending wake-up; coalesce
		}
	}
	sl.mu.Unlock()
	return nil
}

// Subscribe registers an observer for the symbol's slot. If the slot
// already holds a value, the new subscriber starts with one pending
// wake-up so it reads that value without waiting for the next publish.
func (b *Broadcast) Subscribe(symbol string) (*Subscription, error) {
	sl, ok := b.slots[symbol]
	if !ok {
		return nil, ErrNoSuchSymbol
	}

	ch := make(chan struct{}, 1)
	sl.mu.Lock()
	sl.subs = append(sl.subs, ch)
	if sl.has {
		ch <- struct{}{}
	}
	sl.mu.Unlock()

	return &Subscription{slot: sl, ch: ch}, nil
}

// Subscription observes one symbol's slot. Await Changes, then read the
// newest value with Latest.
type Subscription struct {
	slot *slot
	ch   chan struct{}
}

// Changes signals after each publish, and once at subscription time when
// the slot already held a value. Signals are coalesced: several
// publishes between two reads produce a single wake-up.
func (s *Subscription) Changes() <-chan struct{} {
	return s.ch
}

// Latest returns the slot's current value by copy. ok is false until the
// first publish.
func (s *Subscription) Latest() (types.BookTicker, bool) {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()
	return s.slot.val, s.slot.has
}
