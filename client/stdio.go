package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

const (
	maxStdioFrame     = 16 << 20
	stdioCloseTimeout = 2 * time.Second
)

// StdioTransport connects to an MCP server via subprocess stdio.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger middleware.Logger

	writeMu sync.Mutex
	pending *pendingCalls

	mu       sync.Mutex
	closed   bool
	readDone chan struct{}
}

// StdioTransportOption configures a StdioTransport.
type StdioTransportOption func(*stdioConfig)

type stdioConfig struct {
	env    []string
	dir    string
	stderr io.Writer
	logger middleware.Logger
}

// WithEnv adds KEY=VALUE pairs to the inherited environment of the server.
func WithEnv(env ...string) StdioTransportOption {
	return func(c *stdioConfig) {
		c.env = append(c.env, env...)
	}
}

// WithDir sets the working directory of the server process.
func WithDir(dir string) StdioTransportOption {
	return func(c *stdioConfig) {
		c.dir = dir
	}
}

// WithStderr forwards the server's stderr to w. By default it is discarded.
func WithStderr(w io.Writer) StdioTransportOption {
	return func(c *stdioConfig) {
		c.stderr = w
	}
}

// WithStdioLogger sets the logger for transport events.
func WithStdioLogger(l middleware.Logger) StdioTransportOption {
	return func(c *stdioConfig) {
		c.logger = l
	}
}

// NewStdioTransport spawns command and speaks newline-delimited JSON-RPC
// over its stdin and stdout.
func NewStdioTransport(command string, args []string, opts ...StdioTransportOption) (*StdioTransport, error) {
	cfg := stdioConfig{logger: middleware.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(command, args...)
	cmd.Dir = cfg.dir
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}
	// A nil Stderr is connected to the null device.
	cmd.Stderr = cfg.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	t := &StdioTransport{
		cmd:      cmd,
		stdin:    stdin,
		logger:   cfg.logger,
		pending:  newPendingCalls(),
		readDone: make(chan struct{}),
	}

	go t.readLoop(stdout)

	return t, nil
}

// Send sends a request and waits for a response.
func (t *StdioTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	respCh, err := t.pending.add(req.ID)
	if err != nil {
		return nil, err
	}
	defer t.pending.remove(req.ID)

	if err := t.write(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-respCh:
		return resp, nil
	}
}

// Notify sends a notification without waiting for anything.
func (t *StdioTransport) Notify(_ context.Context, n *protocol.Notification) error {
	if err := t.write(n); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Close closes the server's stdin and waits for it to exit, killing it if
// it does not exit promptly.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	_ = t.stdin.Close()

	select {
	case <-t.readDone:
	case <-time.After(stdioCloseTimeout):
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill() //nolint:errcheck // process may have already exited
		}
	}

	return t.cmd.Wait()
}

func (t *StdioTransport) write(v any) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errTransportClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.stdin.Write(append(data, '\n'))
	return err
}

func (t *StdioTransport) readLoop(stdout io.Reader) {
	defer close(t.readDone)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxStdioFrame)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if reply := route(line, t.pending, t.logger); reply != nil {
			if err := t.write(reply); err != nil {
				t.logger.Warn("failed to answer server request", middleware.F("error", err.Error()))
			}
		}
	}

	reason := "server process exited"
	if err := scanner.Err(); err != nil {
		reason = "read server output: " + err.Error()
	}
	t.pending.failAll(protocol.NewConnectionClosed(reason))
}
