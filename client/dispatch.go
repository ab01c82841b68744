package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

var errTransportClosed = errors.New("transport closed")

// pendingCalls matches responses to waiting requests by JSON-RPC id.
type pendingCalls struct {
	mu     sync.Mutex
	calls  map[string]chan *protocol.Response
	closed *protocol.Error
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{calls: make(map[string]chan *protocol.Response)}
}

func idKey(id json.RawMessage) string {
	return string(bytes.TrimSpace(id))
}

// add registers id and returns the channel its response will arrive on.
func (p *pendingCalls) add(id json.RawMessage) (chan *protocol.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed != nil {
		return nil, p.closed
	}
	ch := make(chan *protocol.Response, 1)
	p.calls[idKey(id)] = ch
	return ch, nil
}

func (p *pendingCalls) remove(id json.RawMessage) {
	p.mu.Lock()
	delete(p.calls, idKey(id))
	p.mu.Unlock()
}

// deliver hands resp to its waiter and reports whether one existed.
func (p *pendingCalls) deliver(resp *protocol.Response) bool {
	p.mu.Lock()
	ch, ok := p.calls[idKey(resp.ID)]
	if ok {
		delete(p.calls, idKey(resp.ID))
	}
	p.mu.Unlock()

	if ok {
		ch <- resp
	}
	return ok
}

// failAll answers every waiter with err and rejects later registrations.
func (p *pendingCalls) failAll(err *protocol.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed == nil {
		p.closed = err
	}
	for key, ch := range p.calls {
		ch <- &protocol.Response{JSONRPC: protocol.JSONRPCVersion, ID: json.RawMessage(key), Error: err}
		delete(p.calls, key)
	}
}

// route handles one inbound frame. It returns the reply to write back when
// the server sent a request of its own.
func route(frame []byte, pending *pendingCalls, logger middleware.Logger) *protocol.Response {
	var msg protocol.Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		logger.Warn("discarding malformed frame", middleware.F("error", err.Error()))
		return nil
	}

	switch {
	case msg.IsResponse():
		if !pending.deliver(msg.Response()) {
			logger.Debug("response for unknown request", middleware.F("id", string(msg.ID)))
		}
	case msg.IsRequest():
		return replyToServer(&msg)
	case msg.IsNotification():
		logger.Debug("server notification", middleware.F("method", msg.Method))
	}
	return nil
}

// replyToServer answers server-initiated requests. Only ping is supported.
func replyToServer(msg *protocol.Message) *protocol.Response {
	if msg.Method == protocol.MethodPing {
		resp, err := protocol.NewResponse(msg.ID, struct{}{})
		if err == nil {
			return resp
		}
	}
	return protocol.NewErrorResponse(msg.ID, protocol.NewMethodNotFound(msg.Method))
}
