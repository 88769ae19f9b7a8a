// ws.go implements the public book-ticker feed.
//
// Each SubscribeBookTickers call owns one WebSocket connection carrying
// the top-of-book stream for a fixed set of symbols (the caller does the
// chunking across connections). Transient failures reconnect with
// exponential backoff (1s → 30s); after maxConnectAttempts consecutive
// failures (no ticker received in between) the feed gives up and
// returns, which the caller treats as fatal.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"triarb-bot/pkg/types"
)

const (
	wsReadTimeout      = 90 * time.Second // ~2 missed server pings
	wsWriteTimeout     = 10 * time.Second
	wsMaxBackoff       = 30 * time.Second
	maxConnectAttempts = 5
)

// wsEnvelope is the common frame wrapper of the venue stream.
type wsEnvelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Subject string          `json:"subject,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// wsTicker is the venue's book-ticker payload.
type wsTicker struct {
	Symbol      string `json:"symbol"`
	Sequence    int64  `json:"sequence"`
	BestBid     string `json:"bestBid"`
	BestBidSize string `json:"bestBidSize"`
	BestAsk     string `json:"bestAsk"`
	BestAskSize string `json:"bestAskSize"`
}

// SubscribeBookTickers connects, subscribes to the book-ticker topic for
// symbols and publishes every decoded update. Blocks until the stream
// fails permanently or ctx is cancelled (returns ctx.Err() then).
func (c *Client) SubscribeBookTickers(ctx context.Context, symbols []string, publish func(types.BookTicker)) error {
	backoff := time.Second
	attempts := 0

	for {
		received := false
		err := c.streamTickers(ctx, symbols, func(t types.BookTicker) {
			received = true
			publish(t)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A stream that delivered data ends the run of failures.
		if received {
			attempts = 0
			backoff = time.Second
		}
		attempts++
		if attempts >= maxConnectAttempts {
			return fmt.Errorf("book ticker stream: giving up after %d attempts: %w", attempts, err)
		}

		c.logger.Warn("book ticker stream disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
			"attempt", attempts,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > wsMaxBackoff {
			backoff = wsMaxBackoff
		}
	}
}

func (c *Client) streamTickers(ctx context.Context, symbols []string, publish func(types.BookTicker)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsPublicURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sub := wsEnvelope{
		ID:    fmt.Sprintf("sub-%d", time.Now().UnixNano()),
		Type:  "subscribe",
		Topic: "/market/ticker:" + strings.Join(symbols, ","),
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.logger.Info("book ticker stream connected", "symbols", len(symbols))

	// Close the connection when ctx ends so the blocking read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var envelope wsEnvelope
		if err := json.Unmarshal(msg, &envelope); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}

		switch envelope.Type {
		case "ping":
			pong := wsEnvelope{ID: envelope.ID, Type: "pong"}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(pong); err != nil {
				return fmt.Errorf("pong: %w", err)
			}

		case "message":
			ticker, err := decodeTicker(envelope.Data)
			if err != nil {
				return fmt.Errorf("decode ticker: %w", err)
			}
			publish(ticker)

		case "welcome", "ack", "pong":
			// connection bookkeeping, nothing to do

		default:
			c.logger.Debug("ignoring ws frame", "type", envelope.Type)
		}
	}
}

func decodeTicker(data json.RawMessage) (types.BookTicker, error) {
	var raw wsTicker
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.BookTicker{}, err
	}
	if raw.Symbol == "" {
		return types.BookTicker{}, fmt.Errorf("ticker without symbol")
	}

	parse := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}

	bidPrice, err := parse(raw.BestBid)
	if err != nil {
		return types.BookTicker{}, fmt.Errorf("%s: bestBid: %w", raw.Symbol, err)
	}
	bidQty, err := parse(raw.BestBidSize)
	if err != nil {
		return types.BookTicker{}, fmt.Errorf("%s: bestBidSize: %w", raw.Symbol, err)
	}
	askPrice, err := parse(raw.BestAsk)
	if err != nil {
		return types.BookTicker{}, fmt.Errorf("%s: bestAsk: %w", raw.Symbol, err)
	}
	askQty, err := parse(raw.BestAskSize)
	if err != nil {
		return types.BookTicker{}, fmt.Errorf("%s: bestAskSize: %w", raw.Symbol, err)
	}

	return types.BookTicker{
		Symbol:   raw.Symbol,
		UpdateID: raw.Sequence,
		BidSeq:   raw.Sequence,
		AskSeq:   raw.Sequence,
		BidPrice: bidPrice,
		BidQty:   bidQty,
		AskPrice: askPrice,
		AskQty:   askQty,
	}, nil
}
