// Command mcpsh is an interactive shell for MCP servers.
//
// It connects to one server, lists what it offers and then loops over a
// menu that reads resources and calls tools:
//
//	mcpsh -- node build/server.js
//	mcpsh --transport http --url http://localhost:8080/mcp
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mcpsh"
	"github.com/felixgeelhaar/mcpsh/catalog"
	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/config"
	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/prompt"
	"github.com/felixgeelhaar/mcpsh/session"
	"github.com/felixgeelhaar/mcpsh/telemetry"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(exitCode(newRootCmd().Execute(), os.Stderr))
}

// exitCode maps the error that ended the session to a process exit code.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return exitOK
	case errors.Is(err, prompt.ErrInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		fmt.Fprintln(stderr, "mcpsh:", err)
		return exitError
	}
}

type flags struct {
	configPath    string
	transport     string
	url           string
	headers       []string
	env           []string
	dir           string
	inheritStderr bool
	timeout       time.Duration
	logLevel      string
	logFile       string
	otlpEndpoint  string
}

func newRootCmd() *cobra.Command {
	return newCommand(run)
}

// newCommand builds the root command. runFn receives the merged and
// validated configuration.
func newCommand(runFn func(*cobra.Command, config.Config) error) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "mcpsh [flags] [-- command [args...]]",
		Short: "Interactive shell for MCP servers",
		Long: "mcpsh connects to an MCP server, lists its tools and resources and\n" +
			"lets you read resources and call tools from a menu.",
		Version:       mcpsh.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &f, args, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runFn(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a YAML configuration file")
	fs.StringVarP(&f.transport, "transport", "t", config.TransportStdio, "transport: stdio, http or websocket")
	fs.StringVar(&f.url, "url", "", "server URL for the http and websocket transports")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "extra request header as 'Name: value' (repeatable)")
	fs.StringArrayVarP(&f.env, "env", "e", nil, "KEY=VALUE added to the server environment (repeatable)")
	fs.StringVar(&f.dir, "dir", "", "working directory of the server process")
	fs.BoolVar(&f.inheritStderr, "inherit-stderr", false, "show the server's stderr instead of discarding it")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout, 0 waits forever")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFile, "log-file", "", "write logs to this file instead of stderr")
	fs.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces and metrics")

	return cmd
}

// applyFlags overlays explicitly set flags and positional arguments on cfg.
func applyFlags(cmd *cobra.Command, f *flags, args []string, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("transport") {
		cfg.Server.Transport = f.transport
	}
	if changed("url") {
		cfg.Server.URL = f.url
	}
	if len(f.headers) > 0 {
		if cfg.Server.Headers == nil {
			cfg.Server.Headers = make(map[string]string)
		}
		for _, h := range f.headers {
			name, value, err := parseHeader(h)
			if err != nil {
				return err
			}
			cfg.Server.Headers[name] = value
		}
	}
	if len(f.env) > 0 {
		cfg.Server.Env = append(cfg.Server.Env, f.env...)
	}
	if changed("dir") {
		cfg.Server.Dir = f.dir
	}
	if changed("inherit-stderr") && f.inheritStderr {
		cfg.Server.Stderr = config.StderrInherit
	}
	if changed("timeout") {
		cfg.Client.Timeout = f.timeout
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("otlp-endpoint") {
		cfg.Telemetry.Endpoint = f.otlpEndpoint
	}
	if len(args) > 0 {
		cfg.Server.Command = args[0]
		cfg.Server.Args = args[1:]
	}
	return nil
}

func run(cmd *cobra.Command, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slogger, closeLog, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	logger := middleware.NewSlogLogger(slogger)

	providers, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    cfg.Client.Name,
		ServiceVersion: cfg.Client.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", middleware.F("error", err.Error()))
		}
	}()

	transport, err := newTransport(ctx, cfg.Server, logger)
	if err != nil {
		return err
	}

	c := client.New(transport,
		client.WithClientInfo(cfg.Client.Name, cfg.Client.Version),
		client.WithProtocolVersion(cfg.Client.ProtocolVersion),
		client.WithTimeout(cfg.Client.Timeout),
		client.WithMiddleware(middleware.DefaultStack(logger, outboundMiddleware(cfg, providers, logger)...)...),
	)
	defer func() {
		if err := c.Close(); err != nil {
			logger.Debug("close transport", middleware.F("error", err.Error()))
		}
	}()

	info, err := c.Initialize(ctx)
	if err != nil {
		return err
	}
	logger.Info("connected",
		middleware.F("server", info.Name),
		middleware.F("version", info.Version),
		middleware.F("protocol", info.ProtocolVersion),
	)

	cat, err := catalog.Discover(ctx, c, info.Capabilities, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "You are connected!")

	s := session.New(c, cat, prompt.New(os.Stdin, os.Stdout, os.Stderr),
		session.WithOutput(out, cmd.ErrOrStderr()),
		session.WithLogger(logger),
	)

	// A prompt blocked on input does not observe ctx, so an interrupt ends
	// the session from here.
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outboundMiddleware(cfg config.Config, providers *telemetry.Providers, logger middleware.Logger) []middleware.Middleware {
	var mw []middleware.Middleware

	if providers.Enabled() {
		mw = append(mw, middleware.OTel(
			middleware.WithTracerProvider(providers.TracerProvider),
			middleware.WithMeterProvider(providers.MeterProvider),
			middleware.WithOTelServerName(serverLabel(cfg.Server)),
		))
	}

	if rl := cfg.Client.RateLimit; rl.Rate > 0 {
		burst := rl.Burst
		if burst == 0 {
			burst = rl.Rate
		}
		limit := middleware.RateLimit
		if rl.PerMethod {
			limit = middleware.RateLimitByMethod
		}
		mw = append(mw, limit(rl.Rate, burst,
			middleware.WithRateLimitLogger(logger),
			middleware.WithRateLimitWait(rl.Wait),
		))
	}

	return mw
}

// serverLabel names the server in telemetry before its handshake name is known.
func serverLabel(s config.ServerConfig) string {
	if s.Transport == config.TransportStdio {
		return filepath.Base(s.Command)
	}
	return s.URL
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	w, closeFn := stderr, func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, func() { _ = f.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
