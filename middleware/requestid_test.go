package middleware

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/mcpsh/protocol"
)

func TestRequestID(t *testing.T) {
	t.Run("injects a uuid", func(t *testing.T) {
		var got string
		send := SendFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			got = RequestIDFromContext(ctx)
			return okSend(ctx, req)
		})

		_, _ = RequestID()(send)(context.Background(), &protocol.Request{Method: "ping"})

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("request id %q is not a uuid: %v", got, err)
		}
	})

	t.Run("preserves existing id", func(t *testing.T) {
		var got string
		send := SendFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			got = RequestIDFromContext(ctx)
			return okSend(ctx, req)
		})

		ctx := ContextWithRequestID(context.Background(), "existing")
		_, _ = RequestIDWithGenerator(func() string { return "generated" })(send)(ctx, &protocol.Request{})

		if got != "existing" {
			t.Errorf("request id = %q, want %q", got, "existing")
		}
	})

	t.Run("empty context has no id", func(t *testing.T) {
		if id := RequestIDFromContext(context.Background()); id != "" {
			t.Errorf("expected empty id, got %q", id)
		}
	})
}
