package notify

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/warmline/warmline/types"
)

// writeTimeout bounds one websocket write so a stalled client cannot
// block the hub.
const writeTimeout = 5 * time.Second

// WSConn adapts a websocket connection to the hub's Conn interface.
// Writes are serialized; the websocket library forbids concurrent
// writers.
type WSConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

// NewWSConn wraps an accepted websocket connection.
func NewWSConn(c *websocket.Conn) *WSConn {
	return &WSConn{c: c}
}

// WriteEvent sends one event as a JSON text message.
func (w *WSConn) WriteEvent(ctx context.Context, event types.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, w.c, event)
}

// Close closes the underlying websocket with a normal status.
func (w *WSConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "closing")
}
