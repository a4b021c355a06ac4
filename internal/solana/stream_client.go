package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Stream connection defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 10 * time.Second
	DefaultStreamReadLimit  = 16 << 20 // 16 MiB, transaction envelopes are large
	defaultWriteTimeout     = 10 * time.Second
	subscribeTimeout        = 30 * time.Second
)

// WSStreamConn implements StreamConn over gorilla/websocket using the
// provider transactionSubscribe method.
type WSStreamConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	requestID atomic.Uint64
	closed    atomic.Bool

	// notifications decoded by the read path but not yet consumed
	pending chan []byte

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	done     chan struct{}
	readErr  error
	readOnce sync.Once
	wg       sync.WaitGroup
}

// WSStreamDialer implements StreamDialer for WebSocket providers.
type WSStreamDialer struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

// Dial opens a WebSocket stream connection to the provider.
func (d *WSStreamDialer) Dial(ctx context.Context, url string) (StreamConn, error) {
	handshake := d.HandshakeTimeout
	if handshake == 0 {
		handshake = DefaultHandshakeTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshake}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetReadLimit(DefaultStreamReadLimit)

	c := &WSStreamConn{
		conn:        conn,
		pending:     make(chan []byte, 1024),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	// Server pings are answered by the library's default ping handler.
	// Pongs to our keepalive pings need no action beyond arriving.
	conn.SetPongHandler(func(string) error { return nil })

	pingInterval := d.PingInterval
	if pingInterval == 0 {
		pingInterval = DefaultPingInterval
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop(pingInterval)

	return c, nil
}

// SubscribeTransactions subscribes to transactions mentioning any of
// the given accounts.
func (c *WSStreamConn) SubscribeTransactions(ctx context.Context, mentions []string) (int64, error) {
	if c.closed.Load() {
		return 0, errors.New("connection closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "transactionSubscribe",
		Params: []interface{}{
			map[string]interface{}{
				"accountInclude": mentions,
				"failed":         false,
			},
			map[string]interface{}{
				"commitment":                     "processed",
				"encoding":                       "json",
				"transactionDetails":             "full",
				"maxSupportedTransactionVersion": 0,
			},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	if err := c.writeJSON(req); err != nil {
		c.dropPending(reqID)
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(subscribeTimeout):
		c.dropPending(reqID)
		return 0, fmt.Errorf("subscription timeout after %s", subscribeTimeout)
	case <-c.done:
		return 0, c.readErrOr(errors.New("connection closed"))
	case <-ctx.Done():
		c.dropPending(reqID)
		return 0, ctx.Err()
	}
}

// Next blocks until the next transaction notification arrives.
func (c *WSStreamConn) Next(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-c.pending:
		return payload, nil
	case <-c.done:
		// Drain anything decoded before the connection died.
		select {
		case payload := <-c.pending:
			return payload, nil
		default:
		}
		return nil, c.readErrOr(errors.New("connection closed"))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears the connection down.
func (c *WSStreamConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// readLoop decodes incoming frames until the connection dies.
func (c *WSStreamConn) readLoop() {
	defer c.wg.Done()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.readOnce.Do(func() {
				c.readErr = err
				close(c.done)
			})
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage routes one frame: subscription confirmation or
// transaction notification.
func (c *WSStreamConn) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 && resp.ID > 0 {
		c.pendingSubsMu.Lock()
		ch, ok := c.pendingSubs[resp.ID]
		if ok {
			delete(c.pendingSubs, resp.ID)
		}
		c.pendingSubsMu.Unlock()
		if ok {
			select {
			case ch <- resp.Result:
			default:
			}
		}
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil &&
		notif.Method == "transactionNotification" && notif.Params != nil {
		select {
		case c.pending <- notif.Params.Result:
		default:
			// The consumer is behind; dropping here keeps the read loop
			// alive. The ingress counts drops at its own sink.
		}
	}
}

// pingLoop sends keepalive pings until the connection dies.
func (c *WSStreamConn) pingLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *WSStreamConn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *WSStreamConn) dropPending(reqID uint64) {
	c.pendingSubsMu.Lock()
	delete(c.pendingSubs, reqID)
	c.pendingSubsMu.Unlock()
}

func (c *WSStreamConn) readErrOr(fallback error) error {
	if c.readErr != nil {
		return c.readErr
	}
	return fallback
}

// IsResetError classifies connection errors that warrant the fast
// 0.5 s reconnect path: abnormal closes and peer resets. Anything else
// gets exponential backoff.
func IsResetError(err error) bool {
	if err == nil {
		return false
	}
	if websocket.IsCloseError(err,
		websocket.CloseAbnormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseServiceRestart) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		msg := netErr.Error()
		return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
	}
	return strings.Contains(err.Error(), "connection reset")
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}
