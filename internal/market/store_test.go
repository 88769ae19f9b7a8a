package market

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"triarb-bot/pkg/types"
)

func ticker(symbol string, id int64, bid, ask string) types.BookTicker {
	return types.BookTicker{
		Symbol:   symbol,
		UpdateID: id,
		BidPrice: decimal.RequireFromString(bid),
		BidQty:   decimal.RequireFromString("1"),
		AskPrice: decimal.RequireFromString(ask),
		AskQty:   decimal.RequireFromString("1"),
	}
}

func TestStoreInsertAndGet(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if _, ok := s.Get("BTC-USDT"); ok {
		t.Fatal("Get on empty store returned ok")
	}

	in := ticker("BTC-USDT", 10, "109615.46", "109615.47")
	if !s.Update(in) {
		t.Fatal("first Update rejected")
	}

	got, ok := s.Get("BTC-USDT")
	if !ok {
		t.Fatal("Get after Update returned !ok")
	}
	if got.UpdateID != 10 || !got.BidPrice.Equal(in.BidPrice) {
		t.Errorf("Get = %+v, want inserted ticker", got)
	}
}

func TestStoreMonotonicReplacement(t *testing.T) {
	t.Parallel()
	s := NewStore()

	s.Update(ticker("ETH-USDT", 5, "2585.70", "2585.71"))

	// Stale update must be ignored entirely.
	if s.Update(ticker("ETH-USDT", 4, "1.00", "2.00")) {
		t.Error("stale update reported as applied")
	}
	got, _ := s.Get("ETH-USDT")
	if !got.BidPrice.Equal(decimal.RequireFromString("2585.70")) {
		t.Errorf("stale update overwrote bid: %s", got.BidPrice)
	}

	// Newer update replaces.
	if !s.Update(ticker("ETH-USDT", 6, "2585.80", "2585.81")) {
		t.Error("newer update reported as not applied")
	}
	got, _ = s.Get("ETH-USDT")
	if got.UpdateID != 6 || !got.AskPrice.Equal(decimal.RequireFromString("2585.81")) {
		t.Errorf("newer update not applied: %+v", got)
	}
}

// After any sequence of updates the stored UpdateID is the maximum seen
// for the symbol.
func TestStoreUpdateIDIsMax(t *testing.T) {
	t.Parallel()
	s := NewStore()
	rng := rand.New(rand.NewSource(7))

	var max int64
	for i := 0; i < 500; i++ {
		id := int64(rng.Intn(1000)) + 1
		if id > max {
			max = id
		}
		s.Update(ticker("BTC-USDT", id, "100.0", "100.1"))
	}

	got, _ := s.Get("BTC-USDT")
	if got.UpdateID != max {
		t.Errorf("UpdateID = %d, want max observed %d", got.UpdateID, max)
	}
}

func TestStoreSideWiseMerge(t *testing.T) {
	t.Parallel()
	s := NewStore()

	// Bid-only message.
	s.Update(types.BookTicker{
		Symbol:   "ETH-BTC",
		BidSeq:   3,
		BidPrice: decimal.RequireFromString("0.02858"),
		BidQty:   decimal.RequireFromString("105.7455"),
	})
	// Ask-only message with its own sequence.
	if !s.Update(types.BookTicker{
		Symbol:   "ETH-BTC",
		AskSeq:   2,
		AskPrice: decimal.RequireFromString("0.02859"),
		AskQty:   decimal.RequireFromString("25.634"),
	}) {
		t.Fatal("ask-only update rejected")
	}

	got, _ := s.Get("ETH-BTC")
	if !got.BidPrice.Equal(decimal.RequireFromString("0.02858")) {
		t.Errorf("bid lost in merge: %s", got.BidPrice)
	}
	if !got.AskPrice.Equal(decimal.RequireFromString("0.02859")) {
		t.Errorf("ask missing after merge: %s", got.AskPrice)
	}

	// Stale bid must not clobber the newer one; a fresh ask in the same
	// message still applies.
	s.Update(types.BookTicker{
		Symbol:   "ETH-BTC",
		BidSeq:   1,
		BidPrice: decimal.RequireFromString("0.01"),
		BidQty:   decimal.RequireFromString("1"),
		AskSeq:   4,
		AskPrice: decimal.RequireFromString("0.02860"),
		AskQty:   decimal.RequireFromString("1"),
	})
	got, _ = s.Get("ETH-BTC")
	if !got.BidPrice.Equal(decimal.RequireFromString("0.02858")) {
		t.Errorf("stale bid applied: %s", got.BidPrice)
	}
	if !got.AskPrice.Equal(decimal.RequireFromString("0.02860")) {
		t.Errorf("fresh ask dropped: %s", got.AskPrice)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := NewStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= 200; i++ {
				sym := fmt.Sprintf("SYM-%d", w%4)
				s.Update(ticker(sym, int64(i), "1.0", "1.1"))
				s.Get(sym)
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		got, ok := s.Get(fmt.Sprintf("SYM-%d", i))
		if !ok || got.UpdateID != 200 {
			t.Errorf("SYM-%d: UpdateID = %d, want 200", i, got.UpdateID)
		}
	}
}
