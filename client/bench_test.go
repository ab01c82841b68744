package client_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
	"github.com/felixgeelhaar/mcpsh/testutil"
)

// BenchmarkCallTool measures a tools/call round trip through the default
// middleware stack and an in-memory server.
func BenchmarkCallTool(b *testing.B) {
	srv := testutil.NewServer().
		Result(protocol.MethodToolsCall, `{"content":[{"type":"text","text":"5"}]}`)
	c := client.New(srv, client.WithMiddleware(middleware.DefaultStack(middleware.NopLogger{})...))
	args := map[string]string{"a": "2", "b": "3"}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.CallTool(ctx, "add", args); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkListTools measures decoding a tools/list page into ordered schemas.
func BenchmarkListTools(b *testing.B) {
	srv := testutil.NewServer().Result(protocol.MethodToolsList, `{"tools":[
		{"name":"search","inputSchema":{"type":"object","properties":{"query":{"type":"string"},"limit":{"type":"integer"}}}},
		{"name":"fetch","inputSchema":{"type":"object","properties":{"url":{"type":"string"}}}}]}`)
	c := client.New(srv)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.ListTools(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
