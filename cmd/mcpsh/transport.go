package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/config"
	"github.com/felixgeelhaar/mcpsh/middleware"
)

// newTransport connects to the server described by cfg.
func newTransport(ctx context.Context, cfg config.ServerConfig, logger middleware.Logger) (client.Transport, error) {
	switch cfg.Transport {
	case config.TransportStdio:
		opts := []client.StdioTransportOption{
			client.WithEnv(cfg.Env...),
			client.WithDir(cfg.Dir),
			client.WithStdioLogger(logger),
		}
		if cfg.Stderr == config.StderrInherit {
			opts = append(opts, client.WithStderr(os.Stderr))
		}
		t, err := client.NewStdioTransport(cfg.Command, cfg.Args, opts...)
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
		}
		return t, nil

	case config.TransportHTTP:
		opts := []client.HTTPTransportOption{
			client.WithHTTPLogger(logger),
			client.WithHTTPClient(newHTTPClient(cfg.HeaderTimeout)),
		}
		for name, value := range cfg.Headers {
			opts = append(opts, client.WithHeader(name, value))
		}
		return client.NewHTTPTransport(cfg.URL, opts...), nil

	case config.TransportWebSocket:
		opts := []client.WebSocketOption{client.WithWebSocketLogger(logger)}
		if cfg.WriteTimeout > 0 {
			opts = append(opts, client.WithWebSocketWriteTimeout(cfg.WriteTimeout))
		}
		for name, value := range cfg.Headers {
			opts = append(opts, client.WithWebSocketHeader(name, value))
		}
		t, err := client.DialWebSocket(ctx, cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// newHTTPClient returns a client whose transport gives up on servers that
// take longer than headerTimeout to answer. The body, which may be a long
// event stream, is not bounded.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// parseHeader splits "Name: value" or "Name=value".
func parseHeader(s string) (string, string, error) {
	sep := strings.IndexAny(s, ":=")
	if sep <= 0 {
		return "", "", fmt.Errorf("header %q is not 'Name: value'", s)
	}
	return strings.TrimSpace(s[:sep]), strings.TrimSpace(s[sep+1:]), nil
}
