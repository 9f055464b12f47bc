package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

// WebSocket adapts a gorilla websocket connection to the Channel interface.
// Reads are single-consumer as the underlying library requires; writes are
// serialized with a mutex so any goroutine may Send.
type WebSocket struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to a websocket endpoint (ws:// or wss://).
func Dial(ctx context.Context, url string) (*WebSocket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &WebSocket{conn: conn}, nil
}

// Accept upgrades an incoming HTTP request to a websocket channel. The agent
// server binds to loopback, so cross-origin checks are not enforced here.
func Accept(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	return &WebSocket{conn: conn}, nil
}

func (ws *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.conn.SetReadDeadline(deadline)
	} else {
		_ = ws.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		return nil, normalizeClose(err)
	}
	return data, nil
}

func (ws *WebSocket) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.conn.SetWriteDeadline(deadline)
	} else {
		_ = ws.conn.SetWriteDeadline(time.Time{})
	}
	if err := ws.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return normalizeClose(err)
	}
	return nil
}

// Close sends a best-effort close frame and tears the connection down.
func (ws *WebSocket) Close() error {
	ws.closeOnce.Do(func() {
		ws.writeMu.Lock()
		_ = ws.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		ws.writeMu.Unlock()
		ws.closeErr = ws.conn.Close()
	})
	return ws.closeErr
}

// normalizeClose folds the library's several shutdown signals into ErrClosed
// so callers have a single condition to test for.
func normalizeClose(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return ErrClosed
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return ErrClosed
	}
	return err
}
