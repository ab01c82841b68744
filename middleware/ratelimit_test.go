package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

func countingSend(sent *int) middleware.SendFunc {
	return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		*sent++
		return &protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
	}
}

func TestRateLimit(t *testing.T) {
	req := &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tools/call",
	}

	t.Run("allows requests within limit", func(t *testing.T) {
		sent := 0
		send := middleware.RateLimit(10, 10)(countingSend(&sent))

		for i := 0; i < 5; i++ {
			if _, err := send(context.Background(), req); err != nil {
				t.Fatalf("request %d: unexpected error: %v", i, err)
			}
		}
		if sent != 5 {
			t.Errorf("sent = %d, want 5", sent)
		}
	})

	t.Run("does not send requests over the limit", func(t *testing.T) {
		sent := 0
		send := middleware.RateLimit(1, 1)(countingSend(&sent))

		if _, err := send(context.Background(), req); err != nil {
			t.Fatalf("first request failed: %v", err)
		}

		_, err := send(context.Background(), req)
		if !errors.Is(err, &protocol.Error{Code: protocol.CodeRateLimited}) {
			t.Fatalf("expected rate limited error, got %v", err)
		}
		if sent != 1 {
			t.Errorf("sent = %d, want 1", sent)
		}
	})
}

func TestRateLimit_Wait(t *testing.T) {
	req := &protocol.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/call"}

	t.Run("waits for the next token", func(t *testing.T) {
		sent := 0
		send := middleware.RateLimit(20, 1, middleware.WithRateLimitWait(2*time.Second))(countingSend(&sent))

		for i := 0; i < 2; i++ {
			if _, err := send(context.Background(), req); err != nil {
				t.Fatalf("request %d: %v", i, err)
			}
		}
		if sent != 2 {
			t.Errorf("sent = %d, want 2", sent)
		}
	})

	t.Run("gives up after the wait bound", func(t *testing.T) {
		sent := 0
		send := middleware.RateLimit(1, 1, middleware.WithRateLimitWait(50*time.Millisecond))(countingSend(&sent))

		if _, err := send(context.Background(), req); err != nil {
			t.Fatalf("first request failed: %v", err)
		}

		start := time.Now()
		_, err := send(context.Background(), req)
		if !errors.Is(err, &protocol.Error{Code: protocol.CodeRateLimited}) {
			t.Fatalf("expected rate limited error, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("waited %v, want about 50ms", elapsed)
		}
		if sent != 1 {
			t.Errorf("sent = %d, want 1", sent)
		}
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		sent := 0
		send := middleware.RateLimit(1, 1, middleware.WithRateLimitWait(time.Minute))(countingSend(&sent))

		if _, err := send(context.Background(), req); err != nil {
			t.Fatalf("first request failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := send(ctx, req)
		if !errors.Is(err, &protocol.Error{Code: protocol.CodeRateLimited}) {
			t.Fatalf("expected rate limited error, got %v", err)
		}
		if sent != 1 {
			t.Errorf("sent = %d, want 1", sent)
		}
	})
}

func TestRateLimitByMethod(t *testing.T) {
	sent := 0
	send := middleware.RateLimitByMethod(1, 1)(countingSend(&sent))

	list := &protocol.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "resources/list"}
	read := &protocol.Request{JSONRPC: "2.0", ID: json.RawMessage(`2`), Method: "resources/read"}

	if _, err := send(context.Background(), list); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if _, err := send(context.Background(), read); err != nil {
		t.Fatalf("read should use its own bucket: %v", err)
	}
	if _, err := send(context.Background(), list); err == nil {
		t.Fatal("second list should be rate limited")
	}
}
