package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mcpsh.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if cfg.Server.Transport != want.Server.Transport || cfg.Log.Level != "warn" || cfg.Client.Name != "mcpsh" {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
	if cfg.Client.Timeout != 0 {
		t.Errorf("Timeout = %v, want none", cfg.Client.Timeout)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  command: node
  args: [build/server.js, --verbose]
  env: [DEBUG=1]
client:
  timeout: 30s
  rate_limit:
    rate: 5
    burst: 10
telemetry:
  endpoint: localhost:4317
  insecure: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Command != "node" || len(cfg.Server.Args) != 2 || cfg.Server.Args[1] != "--verbose" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	// Unset keys keep their defaults.
	if cfg.Server.Transport != TransportStdio || cfg.Server.Stderr != StderrIgnore {
		t.Errorf("defaults lost: %+v", cfg.Server)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Client.Timeout)
	}
	if cfg.Client.RateLimit.Rate != 5 || cfg.Client.RateLimit.Burst != 10 {
		t.Errorf("RateLimit = %+v", cfg.Client.RateLimit)
	}
	if !cfg.Telemetry.Insecure || cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  command: node\n  url: http://file\nlog:\n  level: info\n")
	t.Setenv("MCPSH_TRANSPORT", "http")
	t.Setenv("MCPSH_SERVER_URL", "http://env/mcp")
	t.Setenv("MCPSH_SERVER_ARGS", "a;b;c")
	t.Setenv("MCPSH_TIMEOUT", "2s")
	t.Setenv("MCPSH_WRITE_TIMEOUT", "3s")
	t.Setenv("MCPSH_HEADER_TIMEOUT", "4s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Transport != TransportHTTP || cfg.Server.URL != "http://env/mcp" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if strings.Join(cfg.Server.Args, ",") != "a,b,c" {
		t.Errorf("Args = %v", cfg.Server.Args)
	}
	if cfg.Client.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v", cfg.Client.Timeout)
	}
	if cfg.Server.WriteTimeout != 3*time.Second || cfg.Server.HeaderTimeout != 4*time.Second {
		t.Errorf("server timeouts = %v, %v", cfg.Server.WriteTimeout, cfg.Server.HeaderTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want file value", cfg.Log.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "server: [")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad duration in environment", func(t *testing.T) {
		t.Setenv("MCPSH_TIMEOUT", "soon")
		if _, err := Load(""); err == nil {
			t.Error("expected error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"stdio ok", func(c *Config) { c.Server.Command = "node" }, ""},
		{"stdio without command", func(*Config) {}, "server.command"},
		{"bad stderr", func(c *Config) { c.Server.Command = "node"; c.Server.Stderr = "file" }, "server.stderr"},
		{"bad env", func(c *Config) { c.Server.Command = "node"; c.Server.Env = []string{"DEBUG"} }, "KEY=VALUE"},
		{"http ok", func(c *Config) { c.Server.Transport = TransportHTTP; c.Server.URL = "http://x" }, ""},
		{"websocket without url", func(c *Config) { c.Server.Transport = TransportWebSocket }, "server.url"},
		{"unknown transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }, "unknown transport"},
		{"bad level", func(c *Config) { c.Server.Command = "node"; c.Log.Level = "loud" }, "log level"},
		{"negative timeout", func(c *Config) { c.Server.Command = "node"; c.Client.Timeout = -time.Second }, "timeout"},
		{"negative rate", func(c *Config) { c.Server.Command = "node"; c.Client.RateLimit.Rate = -1 }, "rate_limit"},
		{"negative write timeout", func(c *Config) { c.Server.Command = "node"; c.Server.WriteTimeout = -time.Second }, "server timeouts"},
		{"negative header timeout", func(c *Config) { c.Server.Command = "node"; c.Server.HeaderTimeout = -time.Second }, "server timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) should fail")
	}
}
