package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/elnormous/contenttype"
	"github.com/tmaxmax/go-sse"

	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

// SessionHeader carries the session assigned by a streamable HTTP server.
const SessionHeader = "Mcp-Session-Id"

// HTTPTransport speaks the streamable HTTP transport: every message is a
// POST and the answer is either a JSON body or an event stream.
type HTTPTransport struct {
	url     string
	client  *http.Client
	headers http.Header
	logger  middleware.Logger

	mu        sync.Mutex
	sessionID string
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.headers.Add(key, value)
	}
}

// WithHTTPLogger sets the logger for transport events.
func WithHTTPLogger(l middleware.Logger) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.logger = l
	}
}

// NewHTTPTransport creates a transport posting to url.
func NewHTTPTransport(url string, opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		url:     url,
		client:  http.DefaultClient,
		headers: make(http.Header),
		logger:  middleware.NopLogger{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SessionID returns the session assigned by the server, if any.
func (t *HTTPTransport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Send posts a request and waits for the matching response.
func (t *HTTPTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	resp, err := t.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	mediaType := contenttype.NewMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType.Type == "text" && mediaType.Subtype == "event-stream":
		return t.readEventStream(ctx, resp.Body, req.ID)
	case mediaType.Type == "application" && mediaType.Subtype == "json":
		var msg protocol.Message
		if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return msg.Response(), nil
	default:
		return nil, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
}

// Notify posts a notification. The server answers 202 Accepted.
func (t *HTTPTransport) Notify(ctx context.Context, n *protocol.Notification) error {
	resp, err := t.post(ctx, n)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Close ends the server session when one was assigned.
func (t *HTTPTransport) Close() error {
	sessionID := t.SessionID()
	if sessionID == "" {
		return nil
	}

	req, err := http.NewRequest(http.MethodDelete, t.url, nil)
	if err != nil {
		return err
	}
	t.setHeaders(req, sessionID)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	t.setHeaders(req, t.SessionID())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}

	if id := resp.Header.Get(SessionHeader); id != "" {
		t.mu.Lock()
		t.sessionID = id
		t.mu.Unlock()
	}
	return resp, nil
}

func (t *HTTPTransport) setHeaders(req *http.Request, sessionID string) {
	for key, values := range t.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
}

// readEventStream consumes server-sent events until the response to id
// arrives. Server requests seen on the stream are answered with a new POST.
func (t *HTTPTransport) readEventStream(ctx context.Context, body io.Reader, id json.RawMessage) (*protocol.Response, error) {
	pending := newPendingCalls()
	respCh, _ := pending.add(id)

	for ev, err := range sse.Read(body, &sse.ReadConfig{MaxEventSize: maxStdioFrame}) {
		if err != nil {
			return nil, fmt.Errorf("read event stream: %w", err)
		}
		if ev.Data == "" {
			continue
		}

		if reply := route([]byte(ev.Data), pending, t.logger); reply != nil {
			t.answer(ctx, reply)
		}

		select {
		case resp := <-respCh:
			return resp, nil
		default:
		}
	}

	return nil, fmt.Errorf("event stream ended before response to request %s", id)
}

func (t *HTTPTransport) answer(ctx context.Context, reply *protocol.Response) {
	resp, err := t.post(ctx, reply)
	if err != nil {
		t.logger.Warn("failed to answer server request", middleware.F("error", err.Error()))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
