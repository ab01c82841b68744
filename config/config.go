// Package config loads mcpsh settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// MCPSH_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mcpsh"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

// Transport names.
const (
	TransportStdio     = "stdio"
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Stderr handling for stdio servers.
const (
	StderrIgnore  = "ignore"
	StderrInherit = "inherit"
)

// Config is the complete client configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig describes how to reach the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" env:"MCPSH_TRANSPORT"`

	// Command, Args, Env, Dir and Stderr apply to the stdio transport.
	// Args and Env are ';' separated in the environment.
	Command string   `yaml:"command" env:"MCPSH_SERVER_COMMAND"`
	Args    []string `yaml:"args" env:"MCPSH_SERVER_ARGS"`
	Env     []string `yaml:"env" env:"MCPSH_SERVER_ENV"`
	Dir     string   `yaml:"dir" env:"MCPSH_SERVER_DIR"`
	Stderr  string   `yaml:"stderr" env:"MCPSH_SERVER_STDERR"`

	// URL and Headers apply to the http and websocket transports.
	URL     string            `yaml:"url" env:"MCPSH_SERVER_URL"`
	Headers map[string]string `yaml:"headers"`

	// HeaderTimeout bounds how long an http server may take to start its
	// answer. WriteTimeout bounds each websocket frame write. Zero means
	// no limit.
	HeaderTimeout time.Duration `yaml:"header_timeout" env:"MCPSH_HEADER_TIMEOUT,strict"`
	WriteTimeout  time.Duration `yaml:"write_timeout" env:"MCPSH_WRITE_TIMEOUT,strict"`
}

// ClientConfig tunes the MCP client.
type ClientConfig struct {
	Name            string          `yaml:"name" env:"MCPSH_CLIENT_NAME"`
	Version         string          `yaml:"version" env:"MCPSH_CLIENT_VERSION"`
	ProtocolVersion string          `yaml:"protocol_version" env:"MCPSH_PROTOCOL_VERSION"`
	Timeout         time.Duration   `yaml:"timeout" env:"MCPSH_TIMEOUT,strict"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig caps outbound requests. A zero Rate disables limiting.
type RateLimitConfig struct {
	Rate      int           `yaml:"rate" env:"MCPSH_RATE_LIMIT,strict"`
	Burst     int           `yaml:"burst" env:"MCPSH_RATE_BURST,strict"`
	PerMethod bool          `yaml:"per_method" env:"MCPSH_RATE_PER_METHOD,strict"`
	Wait      time.Duration `yaml:"wait" env:"MCPSH_RATE_WAIT,strict"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level" env:"MCPSH_LOG_LEVEL"`
	// File receives logs instead of stderr when set.
	File string `yaml:"file" env:"MCPSH_LOG_FILE"`
}

// TelemetryConfig enables OTLP export. An empty Endpoint disables it.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint" env:"MCPSH_OTLP_ENDPOINT"`
	Insecure bool   `yaml:"insecure" env:"MCPSH_OTLP_INSECURE,strict"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Transport: TransportStdio,
			Stderr:    StderrIgnore,
		},
		Client: ClientConfig{
			Name:            "mcpsh",
			Version:         mcpsh.Version,
			ProtocolVersion: protocol.DefaultProtocolVersion,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if path is
// non-empty, and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio:
		if c.Server.Command == "" {
			return errors.New("server.command is required for the stdio transport")
		}
		if c.Server.Stderr != StderrIgnore && c.Server.Stderr != StderrInherit {
			return fmt.Errorf("server.stderr must be %q or %q, got %q", StderrIgnore, StderrInherit, c.Server.Stderr)
		}
		for _, kv := range c.Server.Env {
			if !strings.Contains(kv, "=") {
				return fmt.Errorf("server.env entry %q is not KEY=VALUE", kv)
			}
		}
	case TransportHTTP, TransportWebSocket:
		if c.Server.URL == "" {
			return fmt.Errorf("server.url is required for the %s transport", c.Server.Transport)
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Server.Transport)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Client.Timeout < 0 {
		return errors.New("client.timeout must not be negative")
	}
	if c.Server.HeaderTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if rl := c.Client.RateLimit; rl.Rate < 0 || rl.Burst < 0 || rl.Wait < 0 {
		return errors.New("client.rate_limit values must not be negative")
	}
	return nil
}
