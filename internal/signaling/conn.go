package signaling

import (
	"sync"
	"time"

	"github.com/dkeye/confcore/internal/core"
	"github.com/gorilla/websocket"
)

// errBackpressure is returned by TrySend when a socket's outbound buffer is
// full; the caller drops the frame rather than blocking the room lock.
var errBackpressure = errBackpressureType{}

type errBackpressureType struct{}

func (errBackpressureType) Error() string { return "signaling: send buffer full" }

// wsConn adapts a gorilla websocket connection to core.SignalConnection,
// grounded on dkeye-Voice's wsSignalConn (buffered send channel, once-guarded
// Close, deadline-bounded writes).
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame
	once sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{conn: c, send: make(chan core.Frame, 32)}
}

func (c *wsConn) TrySend(f core.Frame) error {
	select {
	case c.send <- f:
		return nil
	default:
		return errBackpressure
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

func (c *wsConn) writePump() {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
