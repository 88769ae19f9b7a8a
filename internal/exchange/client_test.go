package exchange

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeSymbol(t *testing.T) {
	t.Parallel()

	row := symbolRow{
		Symbol:          "BTC-USDT",
		BaseCurrency:    "BTC",
		QuoteCurrency:   "USDT",
		BaseIncrement:   "0.00001",
		QuoteIncrement:  "0.000001",
		PriceIncrement:  "0.01",
		BaseMinSize:     "0.00001",
		EnableTrading:   true,
		MarketOrderable: true,
		LimitOrderable:  true,
	}

	s, err := normalizeSymbol(row)
	if err != nil {
		t.Fatalf("normalizeSymbol: %v", err)
	}

	if s.Filter.LotStep != 5 {
		t.Errorf("LotStep = %d, want 5", s.Filter.LotStep)
	}
	if s.Filter.QuoteStep != 6 {
		t.Errorf("QuoteStep = %d, want 6", s.Filter.QuoteStep)
	}
	if s.Filter.PriceTick != 2 {
		t.Errorf("PriceTick = %d, want 2", s.Filter.PriceTick)
	}
	if !s.Filter.LotMinQty.Equal(decimal.RequireFromString("0.00001")) {
		t.Errorf("LotMinQty = %s", s.Filter.LotMinQty)
	}
	if !s.Tradeable() {
		t.Error("Tradeable() = false for a fully enabled symbol")
	}
	if !s.Filter.BaseIncrement().Equal(decimal.RequireFromString("0.00001")) {
		t.Errorf("BaseIncrement = %s", s.Filter.BaseIncrement())
	}
}

func TestNormalizeSymbolRejectsBadRows(t *testing.T) {
	t.Parallel()

	row := symbolRow{BaseCurrency: "BTC", QuoteCurrency: "USDT"}
	if _, err := normalizeSymbol(row); err == nil {
		t.Error("normalizeSymbol accepted a row without a symbol id")
	}

	row = symbolRow{
		Symbol:        "BTC-USDT",
		BaseCurrency:  "BTC",
		QuoteCurrency: "USDT",
		BaseIncrement: "garbage",
	}
	if _, err := normalizeSymbol(row); err == nil {
		t.Error("normalizeSymbol accepted a malformed increment")
	}
}

func TestDecodeTicker(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"symbol": "ETH-BTC",
		"sequence": 8215337504,
		"bestBid": "0.02858",
		"bestBidSize": "105.7455",
		"bestAsk": "0.02859",
		"bestAskSize": "25.634"
	}`)

	ticker, err := decodeTicker(raw)
	if err != nil {
		t.Fatalf("decodeTicker: %v", err)
	}

	if ticker.Symbol != "ETH-BTC" || ticker.UpdateID != 8215337504 {
		t.Errorf("identity = %s/%d", ticker.Symbol, ticker.UpdateID)
	}
	if ticker.BidSeq != ticker.UpdateID || ticker.AskSeq != ticker.UpdateID {
		t.Errorf("per-side sequences not derived from the update id")
	}
	if !ticker.BidPrice.Equal(decimal.RequireFromString("0.02858")) {
		t.Errorf("BidPrice = %s", ticker.BidPrice)
	}
	if !ticker.HasAsk() {
		t.Error("HasAsk() = false")
	}
}

func TestDecodeTickerOneSided(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"symbol": "ETH-BTC",
		"sequence": 9,
		"bestBid": "0.02858",
		"bestBidSize": "105.7455"
	}`)

	ticker, err := decodeTicker(raw)
	if err != nil {
		t.Fatalf("decodeTicker: %v", err)
	}
	if !ticker.HasBid() || ticker.HasAsk() {
		t.Errorf("sides = bid:%v ask:%v, want bid only", ticker.HasBid(), ticker.HasAsk())
	}
}

func TestDecodeTickerRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := decodeTicker(json.RawMessage(`{"symbol":""}`)); err == nil {
		t.Error("decodeTicker accepted a ticker without a symbol")
	}
	if _, err := decodeTicker(json.RawMessage(`{"symbol":"X","bestBid":"abc"}`)); err == nil {
		t.Error("decodeTicker accepted a malformed price")
	}
}

func TestConnectAuthShape(t *testing.T) {
	t.Parallel()

	creds := Credentials{Key: "key", Secret: "secret", Passphrase: "phrase"}
	auth := connectAuth(creds)

	if auth["key"] != "key" {
		t.Errorf("key = %q", auth["key"])
	}
	for _, field := range []string{"timestamp", "signature", "passphrase"} {
		if auth[field] == "" {
			t.Errorf("%s is empty", field)
		}
	}
	// The passphrase must never travel in the clear.
	if auth["passphrase"] == "phrase" {
		t.Error("passphrase sent unsigned")
	}
}
