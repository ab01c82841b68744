// Package middleware provides outbound middleware for MCP client requests.
package middleware

import (
	"context"

	"github.com/felixgeelhaar/mcpsh/protocol"
)

// SendFunc is the signature of a request round trip to the server.
// A transport's Send method satisfies it.
type SendFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// Middleware wraps a round trip with additional behavior.
type Middleware func(next SendFunc) SendFunc

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order, so Chain(m1, m2, m3) results in
// m1 wrapping m2 wrapping m3 wrapping the transport.
func Chain(middlewares ...Middleware) Middleware {
	return func(final SendFunc) SendFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
