package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/protocol"
	"github.com/felixgeelhaar/mcpsh/testutil"
)

func TestHTTPTransport(t *testing.T) {
	for _, stream := range []bool{false, true} {
		name := "json"
		if stream {
			name = "event stream"
		}

		t.Run(name, func(t *testing.T) {
			srv := testutil.NewServer().
				Result(protocol.MethodToolsCall, `{"content":[{"type":"text","text":"done"}]}`)
			ts := httptest.NewServer(srv.HTTPHandler(stream))
			defer ts.Close()

			tr := client.NewHTTPTransport(ts.URL, client.WithHeader("Authorization", "Bearer secret"))
			c := client.New(tr)
			ctx := context.Background()

			if _, err := c.Initialize(ctx); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if tr.SessionID() != testutil.SessionID {
				t.Errorf("SessionID() = %q, want %q", tr.SessionID(), testutil.SessionID)
			}

			result, err := c.CallTool(ctx, "finish", nil)
			if err != nil {
				t.Fatalf("CallTool() error = %v", err)
			}
			if result.Content[0].Text != "done" {
				t.Errorf("text = %q", result.Content[0].Text)
			}

			if got := srv.Header(client.SessionHeader); got != testutil.SessionID {
				t.Errorf("session header sent = %q", got)
			}
			if got := srv.Header("Authorization"); got != "Bearer secret" {
				t.Errorf("Authorization = %q", got)
			}
			if n := srv.Notifications(); len(n) != 1 || n[0] != protocol.MethodInitialized {
				t.Errorf("Notifications() = %v", n)
			}

			if err := c.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if ended := srv.EndedSessions(); len(ended) != 1 || ended[0] != testutil.SessionID {
				t.Errorf("EndedSessions() = %v", ended)
			}
		})
	}
}

func TestHTTPTransport_AnswersServerPing(t *testing.T) {
	srv := testutil.NewServer().
		Result(protocol.MethodResourcesRead, `{"contents":[{"uri":"a","text":"x"}]}`).
		PingBefore(protocol.MethodResourcesRead)
	ts := httptest.NewServer(srv.HTTPHandler(true))
	defer ts.Close()

	c := client.New(client.NewHTTPTransport(ts.URL))
	if _, err := c.ReadResource(context.Background(), "a"); err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}

	replies := srv.Replies()
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if string(replies[0].ID) != string(testutil.PingID) || replies[0].Error != nil {
		t.Errorf("reply = %+v", replies[0])
	}
}

func TestHTTPTransport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
			want: "unexpected status 401",
		},
		{
			name: "content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte("hello"))
			},
			want: "unexpected content type",
		},
		{
			name: "stream without response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte("event: message\ndata: {\"jsonrpc\":\"2.0\",\"method\":\"notifications/message\"}\n\n"))
			},
			want: "event stream ended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			err := client.New(client.NewHTTPTransport(ts.URL)).Ping(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Ping() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestHTTPTransport_FinalEventWithoutBlankLine(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(`data: {"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer ts.Close()

	if err := client.New(client.NewHTTPTransport(ts.URL)).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestHTTPTransport_CustomClient(t *testing.T) {
	srv := testutil.NewServer()
	ts := httptest.NewTLSServer(srv.HTTPHandler(true))
	defer ts.Close()

	t.Run("trusted client", func(t *testing.T) {
		tr := client.NewHTTPTransport(ts.URL, client.WithHTTPClient(ts.Client()))
		if err := client.New(tr).Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("default client rejects the test certificate", func(t *testing.T) {
		if err := client.New(client.NewHTTPTransport(ts.URL)).Ping(context.Background()); err == nil {
			t.Error("expected certificate error")
		}
	})
}

func TestHTTPTransport_EventFraming(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": keep-alive\n\n" +
			"retry: 1000\n\n" +
			"event: message\nid: 7\ndata: {\"jsonrpc\":\"2.0\",\r\ndata: \"id\":1,\"result\":{}}\r\n\r\n"))
	}))
	defer ts.Close()

	if err := client.New(client.NewHTTPTransport(ts.URL)).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
