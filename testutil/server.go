// Package testutil provides a scripted MCP server for testing clients.
//
// The same Server answers in memory, over stdio, over streamable HTTP and
// over WebSocket, so client code can be exercised against every transport
// with one fixture:
//
//	srv := testutil.NewServer().
//	    Result(protocol.MethodToolsList, `{"tools":[{"name":"echo"}]}`)
//	c := client.New(srv)
//	tools, err := c.ListTools(ctx)
package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/felixgeelhaar/mcpsh/protocol"
)

// SessionID is the session the HTTP handler assigns on initialize.
const SessionID = "test-session"

const sessionHeader = "Mcp-Session-Id"

// PingID is the id of the ping the server sends before selected methods.
var PingID = json.RawMessage(`"server-ping"`)

var errServerClosed = errors.New("server closed")

// HandlerFunc answers one request. A *protocol.Error is sent as the
// JSON-RPC error, any other error as an internal error.
type HandlerFunc func(params json.RawMessage) (any, error)

// Server is a scripted MCP server that records everything it receives.
type Server struct {
	mu            sync.Mutex
	handlers      map[string]HandlerFunc
	pingBefore    map[string]bool
	requests      []protocol.Request
	notifications []string
	replies       []protocol.Response
	headers       http.Header
	endedSessions []string
	closed        bool
}

// NewServer returns a server that answers initialize, advertising tools,
// resources and prompts, and ping.
func NewServer() *Server {
	s := &Server{
		handlers:   make(map[string]HandlerFunc),
		pingBefore: make(map[string]bool),
	}
	s.Capabilities("tools", "resources", "prompts")
	s.Handle(protocol.MethodPing, func(json.RawMessage) (any, error) {
		return struct{}{}, nil
	})
	return s
}

// Capabilities makes initialize advertise exactly caps.
func (s *Server) Capabilities(caps ...string) *Server {
	advertised := make(map[string]any, len(caps))
	for _, c := range caps {
		advertised[c] = map[string]any{}
	}
	return s.Handle(protocol.MethodInitialize, func(json.RawMessage) (any, error) {
		return map[string]any{
			"protocolVersion": protocol.DefaultProtocolVersion,
			"serverInfo":      map[string]any{"name": "test-server", "version": "1.0.0"},
			"capabilities":    advertised,
		}, nil
	})
}

// Handle registers h for method, replacing any earlier handler.
func (s *Server) Handle(method string, h HandlerFunc) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
	return s
}

// Result answers method with a fixed raw JSON result.
func (s *Server) Result(method, raw string) *Server {
	return s.Handle(method, func(json.RawMessage) (any, error) {
		return json.RawMessage(raw), nil
	})
}

// Fail answers method with err.
func (s *Server) Fail(method string, err *protocol.Error) *Server {
	return s.Handle(method, func(json.RawMessage) (any, error) {
		return nil, err
	})
}

// PingBefore makes the stream transports send a ping request to the client
// before answering method.
func (s *Server) PingBefore(method string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingBefore[method] = true
	return s
}

// Dispatch records req and produces its response.
func (s *Server) Dispatch(req *protocol.Request) *protocol.Response {
	s.mu.Lock()
	s.requests = append(s.requests, *req)
	h, ok := s.handlers[req.Method]
	s.mu.Unlock()

	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.NewMethodNotFound(req.Method))
	}

	result, err := h(req.Params)
	if err != nil {
		var perr *protocol.Error
		if errors.As(err, &perr) {
			return protocol.NewErrorResponse(req.ID, perr)
		}
		return protocol.NewErrorResponse(req.ID, protocol.NewInternalError(err.Error()))
	}

	resp, err := protocol.NewResponse(req.ID, result)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.NewInternalError(err.Error()))
	}
	return resp
}

// Send lets the server act as an in-memory client transport.
func (s *Server) Send(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
	if s.Closed() {
		return nil, errServerClosed
	}
	return s.Dispatch(req), nil
}

// Notify records a notification sent through the in-memory transport.
func (s *Server) Notify(_ context.Context, n *protocol.Notification) error {
	if s.Closed() {
		return errServerClosed
	}
	s.recordNotification(n.Method)
	return nil
}

// Close marks the in-memory transport closed.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called or an HTTP session was ended.
func (s *Server) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Methods returns the methods of every request received, in order.
func (s *Server) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	methods := make([]string, len(s.requests))
	for i, r := range s.requests {
		methods[i] = r.Method
	}
	return methods
}

// Requests returns every request received, in order.
func (s *Server) Requests() []protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Request(nil), s.requests...)
}

// Notifications returns the methods of every notification received.
func (s *Server) Notifications() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notifications...)
}

// Replies returns the client's answers to server-initiated requests.
func (s *Server) Replies() []protocol.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Response(nil), s.replies...)
}

// Header returns a header of the most recent HTTP or WebSocket request.
func (s *Server) Header(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers.Get(key)
}

// EndedSessions returns the session ids the client deleted over HTTP.
func (s *Server) EndedSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.endedSessions...)
}

func (s *Server) recordNotification(method string) {
	s.mu.Lock()
	s.notifications = append(s.notifications, method)
	s.mu.Unlock()
}

func (s *Server) recordReply(resp *protocol.Response) {
	s.mu.Lock()
	s.replies = append(s.replies, *resp)
	s.mu.Unlock()
}

func (s *Server) recordHeaders(h http.Header) {
	s.mu.Lock()
	s.headers = h.Clone()
	s.mu.Unlock()
}

func (s *Server) pings(method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingBefore[method]
}

func pingRequest() *protocol.Request {
	return &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      PingID,
		Method:  protocol.MethodPing,
	}
}

// ServeStdio answers newline-delimited JSON-RPC read from r until r is
// exhausted.
func (s *Server) ServeStdio(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	enc := json.NewEncoder(w)

	next := func() ([]byte, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return append([]byte(nil), scanner.Bytes()...), nil
	}
	return s.serveFrames(next, enc.Encode)
}

// WebSocketHandler upgrades the connection and answers one message per
// text frame.
func (s *Server) WebSocketHandler() http.Handler {
	var upgrader websocket.Upgrader
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.recordHeaders(r.Header)

		next := func() ([]byte, error) {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil, io.EOF
				}
				return nil, err
			}
			return data, nil
		}
		_ = s.serveFrames(next, conn.WriteJSON)
	})
}

func (s *Server) serveFrames(next func() ([]byte, error), write func(any) error) error {
	for {
		frame, err := next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var msg protocol.Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			continue
		}

		switch {
		case msg.IsNotification():
			s.recordNotification(msg.Method)
		case msg.IsResponse():
			s.recordReply(msg.Response())
		case msg.IsRequest():
			if s.pings(msg.Method) {
				if err := write(pingRequest()); err != nil {
					return err
				}
				reply, err := next()
				if err != nil {
					return fmt.Errorf("await ping reply: %w", err)
				}
				var answer protocol.Message
				if err := json.Unmarshal(reply, &answer); err == nil {
					s.recordReply(answer.Response())
				}
			}
			if err := write(s.Dispatch(requestOf(&msg))); err != nil {
				return err
			}
		}
	}
}

// HTTPHandler serves the streamable HTTP transport. With stream set every
// response is sent as an event stream preceded by a log notification.
func (s *Server) HTTPHandler(stream bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.recordHeaders(r.Header)

		switch r.Method {
		case http.MethodPost:
		case http.MethodDelete:
			s.mu.Lock()
			s.endedSessions = append(s.endedSessions, r.Header.Get(sessionHeader))
			s.closed = true
			s.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var msg protocol.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "malformed message", http.StatusBadRequest)
			return
		}

		switch {
		case msg.IsNotification():
			s.recordNotification(msg.Method)
			w.WriteHeader(http.StatusAccepted)
			return
		case msg.IsResponse():
			s.recordReply(msg.Response())
			w.WriteHeader(http.StatusAccepted)
			return
		}

		if msg.Method == protocol.MethodInitialize {
			w.Header().Set(sessionHeader, SessionID)
		}

		resp := s.Dispatch(requestOf(&msg))
		if !stream {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if s.pings(msg.Method) {
			writeEvent(w, pingRequest())
		}
		note, _ := protocol.NewNotification(protocol.MethodMessage, map[string]any{"level": "info", "data": "working"})
		writeEvent(w, note)
		writeEvent(w, resp)
	})
}

func writeEvent(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func requestOf(msg *protocol.Message) *protocol.Request {
	return &protocol.Request{
		JSONRPC: msg.JSONRPC,
		ID:      msg.ID,
		Method:  msg.Method,
		Params:  msg.Params,
	}
}
