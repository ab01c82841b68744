package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcpsh/protocol"
)

// Recover returns middleware that turns a panic further down the chain
// (typically inside a transport) into an internal error for the caller.
func Recover() Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = protocol.NewInternalError(fmt.Sprintf("panic during %s: %v", req.Method, r))
				}
			}()
			return next(ctx, req)
		}
	}
}
