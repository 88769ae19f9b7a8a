// orders.go implements the private order channel: authenticated order
// submission over WebSocket with responses correlated by client id, plus
// the order-change push stream consumed by the executor.
//
// One connection serves both directions. OrderUpdates owns the read
// loop; SubmitMarketOrder writes requests and waits for the matching
// ack. The executor is the only submitter; its writes and the read
// loop's pong replies are serialized by the connection mutex.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"triarb-bot/pkg/types"
)

const submitAckTimeout = 10 * time.Second

// orderRequestFrame is the wire format of an order submission.
type orderRequestFrame struct {
	ID        string `json:"id"` // client order id, echoed in the ack
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	OrderType string `json:"orderType"`
	Size      string `json:"size,omitempty"`
	Funds     string `json:"funds,omitempty"`
}

// orderAckFrame is the correlated submission response.
type orderAckFrame struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error,omitempty"`
}

// orderChangeFrame is one push event from the order-change stream.
type orderChangeFrame struct {
	ClientOid  string `json:"clientOid"`
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	MatchSize  string `json:"matchSize,omitempty"`
	MatchPrice string `json:"matchPrice,omitempty"`
}

type pendingAck struct {
	ch chan orderAckFrame
}

// ordersConn is the shared private-channel state.
type ordersConn struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]*pendingAck
}

func (c *Client) orders() *ordersConn {
	c.ordersOnce.Do(func() {
		c.ordersState = &ordersConn{pending: make(map[string]*pendingAck)}
	})
	return c.ordersState
}

// OrderUpdates connects the authenticated private channel and forwards
// order-change events into ch. Blocks until the stream fails or ctx is
// cancelled. Unlike the public feed there is no reconnect: losing the
// private channel mid-plan leaves order state unknown, so the error
// surfaces immediately.
func (c *Client) OrderUpdates(ctx context.Context, ch chan<- types.OrderUpdate) error {
	if !c.creds.Configured() {
		return fmt.Errorf("order updates: missing api credentials")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsPrivateURL, nil)
	if err != nil {
		return fmt.Errorf("dial private: %w", err)
	}
	defer conn.Close()

	connect := struct {
		Type string            `json:"type"`
		Auth map[string]string `json:"auth"`
	}{Type: "connect", Auth: connectAuth(c.creds)}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(connect); err != nil {
		return fmt.Errorf("private auth: %w", err)
	}

	oc := c.orders()
	oc.mu.Lock()
	oc.conn = conn
	oc.mu.Unlock()
	defer func() {
		oc.mu.Lock()
		oc.conn = nil
		oc.mu.Unlock()
	}()

	c.logger.Info("private order channel connected")

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
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("private read: %w", err)
		}

		var envelope wsEnvelope
		if err := json.Unmarshal(msg, &envelope); err != nil {
			return fmt.Errorf("private decode: %w", err)
		}

		switch envelope.Type {
		case "ping":
			// Writes are shared with SubmitMarketOrder; serialize them.
			pong := wsEnvelope{ID: envelope.ID, Type: "pong"}
			oc.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			err := conn.WriteJSON(pong)
			oc.mu.Unlock()
			if err != nil {
				return fmt.Errorf("private pong: %w", err)
			}

		case "ack":
			var ack orderAckFrame
			if err := json.Unmarshal(envelope.Data, &ack); err != nil {
				return fmt.Errorf("decode ack: %w", err)
			}
			oc.mu.Lock()
			p := oc.pending[envelope.ID]
			delete(oc.pending, envelope.ID)
			oc.mu.Unlock()
			if p != nil {
				p.ch <- ack
			}

		case "message":
			if envelope.Subject != "orderChange" {
				c.logger.Debug("ignoring private frame", "subject", envelope.Subject)
				continue
			}
			update, err := decodeOrderChange(envelope.Data)
			if err != nil {
				return fmt.Errorf("decode order change: %w", err)
			}
			select {
			case ch <- update:
			case <-ctx.Done():
				return ctx.Err()
			}

		case "welcome", "pong":
			// connection bookkeeping

		default:
			c.logger.Debug("ignoring private frame", "type", envelope.Type)
		}
	}
}

// SubmitMarketOrder sends a market order over the private channel and
// waits for the correlated ack. Requires OrderUpdates to be running.
func (c *Client) SubmitMarketOrder(ctx context.Context, req types.OrderRequest) (types.OrderAck, error) {
	if err := c.weight.WaitAcquire(ctx, weightOrder); err != nil {
		return types.OrderAck{}, err
	}

	oc := c.orders()
	oc.mu.Lock()
	conn := oc.conn
	if conn == nil {
		oc.mu.Unlock()
		return types.OrderAck{}, fmt.Errorf("submit order: private channel not connected")
	}
	p := &pendingAck{ch: make(chan orderAckFrame, 1)}
	oc.pending[req.ClientID] = p

	frame := orderRequestFrame{
		ID:        req.ClientID,
		Type:      "order",
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		OrderType: "market",
		Size:      req.Size,
		Funds:     req.Funds,
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := conn.WriteJSON(frame)
	oc.mu.Unlock()
	if err != nil {
		c.dropPending(req.ClientID)
		return types.OrderAck{}, fmt.Errorf("submit order %s: %w", req.Symbol, err)
	}

	select {
	case ack := <-p.ch:
		if ack.Error != "" {
			return types.OrderAck{}, fmt.Errorf("submit order %s: %w: %s", req.Symbol, ErrOrderRejected, ack.Error)
		}
		return types.OrderAck{OrderID: ack.OrderID, ClientID: req.ClientID}, nil
	case <-time.After(submitAckTimeout):
		c.dropPending(req.ClientID)
		return types.OrderAck{}, fmt.Errorf("submit order %s: ack timeout", req.Symbol)
	case <-ctx.Done():
		c.dropPending(req.ClientID)
		return types.OrderAck{}, ctx.Err()
	}
}

func (c *Client) dropPending(clientID string) {
	oc := c.orders()
	oc.mu.Lock()
	delete(oc.pending, clientID)
	oc.mu.Unlock()
}

func decodeOrderChange(data json.RawMessage) (types.OrderUpdate, error) {
	var raw orderChangeFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.OrderUpdate{}, err
	}

	update := types.OrderUpdate{
		ClientID: raw.ClientOid,
		Symbol:   raw.Symbol,
		Status:   types.OrderStatus(raw.Status),
	}
	if raw.MatchSize != "" {
		qty, err := decimal.NewFromString(raw.MatchSize)
		if err != nil {
			return types.OrderUpdate{}, fmt.Errorf("matchSize: %w", err)
		}
		update.MatchQty = &qty
	}
	if raw.MatchPrice != "" {
		price, err := decimal.NewFromString(raw.MatchPrice)
		if err != nil {
			return types.OrderUpdate{}, fmt.Errorf("matchPrice: %w", err)
		}
		update.MatchPrice = &price
	}
	return update, nil
}
