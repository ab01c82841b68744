package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

// WebSocketTransport exchanges one JSON-RPC message per text frame.
type WebSocketTransport struct {
	conn   *websocket.Conn
	logger middleware.Logger

	writeTimeout time.Duration
	writeMu      sync.Mutex
	pending      *pendingCalls

	closeOnce sync.Once
	readDone  chan struct{}
}

// WebSocketOption configures a WebSocketTransport.
type WebSocketOption func(*wsConfig)

type wsConfig struct {
	header           http.Header
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	logger           middleware.Logger
}

// WithWebSocketHeader adds a header to the opening handshake.
func WithWebSocketHeader(key, value string) WebSocketOption {
	return func(c *wsConfig) {
		c.header.Add(key, value)
	}
}

// WithWebSocketWriteTimeout bounds each frame write.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.writeTimeout = d
	}
}

// WithWebSocketLogger sets the logger for transport events.
func WithWebSocketLogger(l middleware.Logger) WebSocketOption {
	return func(c *wsConfig) {
		c.logger = l
	}
}

// DialWebSocket connects to a WebSocket MCP endpoint.
func DialWebSocket(ctx context.Context, url string, opts ...WebSocketOption) (*WebSocketTransport, error) {
	cfg := wsConfig{
		header:           make(http.Header),
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
		logger:           middleware.NopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.handshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.DialContext(ctx, url, cfg.header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	t := &WebSocketTransport{
		conn:         conn,
		logger:       cfg.logger,
		writeTimeout: cfg.writeTimeout,
		pending:      newPendingCalls(),
		readDone:     make(chan struct{}),
	}

	go t.readLoop()

	return t, nil
}

// Send sends a request and waits for a response.
func (t *WebSocketTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	respCh, err := t.pending.add(req.ID)
	if err != nil {
		return nil, err
	}
	defer t.pending.remove(req.ID)

	if err := t.write(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-respCh:
		return resp, nil
	}
}

// Notify sends a notification frame.
func (t *WebSocketTransport) Notify(_ context.Context, n *protocol.Notification) error {
	if err := t.write(n); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Close sends a close frame and tears down the connection.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.writeMu.Unlock()

		err = t.conn.Close()
		<-t.readDone
	})
	return err
}

func (t *WebSocketTransport) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WebSocketTransport) readLoop() {
	defer close(t.readDone)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.pending.failAll(protocol.NewConnectionClosed("websocket closed: " + err.Error()))
			return
		}

		if reply := route(data, t.pending, t.logger); reply != nil {
			if err := t.write(reply); err != nil {
				t.logger.Warn("failed to answer server request", middleware.F("error", err.Error()))
			}
		}
	}
}
