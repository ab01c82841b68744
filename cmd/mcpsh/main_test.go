package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mcpsh/config"
	"github.com/felixgeelhaar/mcpsh/prompt"
	"github.com/felixgeelhaar/mcpsh/telemetry"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		wantOut bool
	}{
		{"success", nil, exitOK, false},
		{"end of input", fmt.Errorf("read answer: %w", io.EOF), exitOK, false},
		{"interrupt", prompt.ErrInterrupted, exitInterrupted, false},
		{"signal", context.Canceled, exitInterrupted, false},
		{"fatal", errors.New("connection reset"), exitError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := exitCode(tt.err, &stderr); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
			if (stderr.Len() > 0) != tt.wantOut {
				t.Errorf("stderr = %q", stderr.String())
			}
		})
	}
}

func parse(t *testing.T, argv ...string) (config.Config, error) {
	t.Helper()

	var got config.Config
	cmd := newCommand(func(_ *cobra.Command, cfg config.Config) error {
		got = cfg
		return nil
	})
	cmd.SetArgs(argv)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return got, err
}

func TestCommand_Flags(t *testing.T) {
	t.Run("stdio command after dashes", func(t *testing.T) {
		cfg, err := parse(t, "--env", "DEBUG=1", "--inherit-stderr", "--", "node", "build/server.js", "--port", "0")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if cfg.Server.Command != "node" || strings.Join(cfg.Server.Args, " ") != "build/server.js --port 0" {
			t.Errorf("command = %q %v", cfg.Server.Command, cfg.Server.Args)
		}
		if cfg.Server.Stderr != config.StderrInherit {
			t.Errorf("Stderr = %q", cfg.Server.Stderr)
		}
		if len(cfg.Server.Env) != 1 || cfg.Server.Env[0] != "DEBUG=1" {
			t.Errorf("Env = %v", cfg.Server.Env)
		}
	})

	t.Run("http with headers", func(t *testing.T) {
		cfg, err := parse(t, "-t", "http", "--url", "http://localhost:8080/mcp",
			"-H", "Authorization: Bearer abc", "-H", "X-Team=infra", "--timeout", "3s", "--log-level", "debug")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if cfg.Server.Transport != config.TransportHTTP || cfg.Server.URL != "http://localhost:8080/mcp" {
			t.Errorf("Server = %+v", cfg.Server)
		}
		if cfg.Server.Headers["Authorization"] != "Bearer abc" || cfg.Server.Headers["X-Team"] != "infra" {
			t.Errorf("Headers = %v", cfg.Server.Headers)
		}
		if cfg.Client.Timeout.String() != "3s" || cfg.Log.Level != "debug" {
			t.Errorf("Client = %+v, Log = %+v", cfg.Client, cfg.Log)
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		if _, err := parse(t, "--transport", "http"); err == nil || !strings.Contains(err.Error(), "server.url") {
			t.Errorf("Execute() error = %v, want missing url", err)
		}
		if _, err := parse(t); err == nil || !strings.Contains(err.Error(), "server.command") {
			t.Errorf("Execute() error = %v, want missing command", err)
		}
	})

	t.Run("bad header", func(t *testing.T) {
		if _, err := parse(t, "-H", "nonsense", "--", "node"); err == nil {
			t.Error("expected header error")
		}
	})
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in, name, value string
		wantErr         bool
	}{
		{"Authorization: Bearer x:y", "Authorization", "Bearer x:y", false},
		{"X-Key=a=b", "X-Key", "a=b", false},
		{": value", "", "", true},
		{"novalue", "", "", true},
	}

	for _, tt := range tests {
		name, value, err := parseHeader(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHeader(%q) error = %v", tt.in, err)
			continue
		}
		if name != tt.name || value != tt.value {
			t.Errorf("parseHeader(%q) = %q, %q", tt.in, name, value)
		}
	}
}

func TestOutboundMiddleware(t *testing.T) {
	disabled := &telemetry.Providers{}

	cfg := config.Default()
	if mw := outboundMiddleware(cfg, disabled, nil); len(mw) != 0 {
		t.Errorf("got %d middleware with everything off", len(mw))
	}

	cfg.Client.RateLimit.Rate = 10
	if mw := outboundMiddleware(cfg, disabled, nil); len(mw) != 1 {
		t.Errorf("got %d middleware with rate limiting on", len(mw))
	}
}

func TestServerLabel(t *testing.T) {
	if got := serverLabel(config.ServerConfig{Transport: config.TransportStdio, Command: "/usr/bin/node"}); got != "node" {
		t.Errorf("serverLabel() = %q", got)
	}
	if got := serverLabel(config.ServerConfig{Transport: config.TransportHTTP, URL: "http://x/mcp"}); got != "http://x/mcp" {
		t.Errorf("serverLabel() = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output = %q", buf.String())
	}

	if _, _, err := newLogger(config.LogConfig{Level: "loud"}, &buf); err == nil {
		t.Error("expected error for unknown level")
	}
}
