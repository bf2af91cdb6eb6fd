package rpc

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeTimeout      = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var _ Transport = (*WebSocketTransport)(nil)

// WebSocketTransport carries one message per text frame.
type WebSocketTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  int32
}

func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

func (t *WebSocketTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				atomic.LoadInt32(&t.closed) == 1 {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "failed to read message")
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *WebSocketTransport) WriteMessage(data []byte) error {
	if atomic.LoadInt32(&t.closed) == 1 {
		return ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

func (t *WebSocketTransport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return t.conn.Close()
}

// Listen waits on addr for the host to open a websocket at path.
func Listen(ctx context.Context, addr, path string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create listener")
	}
	return Accept(ctx, ln, path)
}

// Accept serves ln until one host connects at path, then stops listening.
// Later connection attempts while waiting are refused.
func Accept(ctx context.Context, ln net.Listener, path string) (*WebSocketTransport, error) {
	connCh := make(chan *websocket.Conn, 1)
	var taken int32
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if !atomic.CompareAndSwapInt32(&taken, 0, 1) {
			http.Error(w, "host already connected", http.StatusConflict)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			atomic.StoreInt32(&taken, 0)
			return
		}
		connCh <- conn
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	defer srv.Close()

	select {
	case conn := <-connCh:
		return NewWebSocketTransport(conn), nil
	case err := <-serveErr:
		return nil, errors.Wrap(err, "failed to serve")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
