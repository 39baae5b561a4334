package wsutils

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ThreadSafeWriter serializes writes to a websocket connection. Gorilla
// supports one concurrent writer only, and frames for a peer may be produced
// by the gateway dispatch loop and the lobby notifier at the same time.
type ThreadSafeWriter struct {
	*websocket.Conn
	sync.Mutex
}

func NewThreadSafeWriter(conn *websocket.Conn) *ThreadSafeWriter {
	return &ThreadSafeWriter{Conn: conn}
}

func (t *ThreadSafeWriter) WriteJSON(val any) error {
	t.Lock()
	defer t.Unlock()

	return t.Conn.WriteJSON(val)
}

func (t *ThreadSafeWriter) WriteMessage(messageType int, data []byte) error {
	t.Lock()
	defer t.Unlock()

	return t.Conn.WriteMessage(messageType, data)
}

func (t *ThreadSafeWriter) ReadJSON(val any) error {
	return t.Conn.ReadJSON(val)
}

func (t *ThreadSafeWriter) Close() error {
	return t.Conn.Close()
}
