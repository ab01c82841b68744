// Package client provides an MCP client for connecting to MCP servers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

// Transport defines the interface for client-side transport.
type Transport interface {
	// Send sends a request and waits for its response.
	Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
	// Close closes the transport connection.
	Close() error
}

// Notifier is implemented by transports that can deliver notifications.
type Notifier interface {
	Notify(ctx context.Context, n *protocol.Notification) error
}

// Client is an MCP client that communicates with an MCP server.
type Client struct {
	transport Transport
	send      middleware.SendFunc
	opts      clientOptions

	mu         sync.RWMutex
	serverInfo *ServerInfo
	requestID  atomic.Int64
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout     time.Duration
	clientName  string
	clientVer   string
	protocolVer string
	middleware  []middleware.Middleware
}

// WithTimeout bounds every request. Zero, the default, waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithClientInfo sets the client name and version for initialization.
func WithClientInfo(name, version string) Option {
	return func(o *clientOptions) {
		o.clientName = name
		o.clientVer = version
	}
}

// WithProtocolVersion sets the protocol version to use.
func WithProtocolVersion(version string) Option {
	return func(o *clientOptions) {
		o.protocolVer = version
	}
}

// WithMiddleware wraps every request sent through the transport.
func WithMiddleware(m ...middleware.Middleware) Option {
	return func(o *clientOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// New creates a new MCP client with the given transport.
func New(transport Transport, opts ...Option) *Client {
	options := clientOptions{
		clientName:  "mcpsh",
		clientVer:   "1.0.0",
		protocolVer: protocol.DefaultProtocolVersion,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		transport: transport,
		send:      middleware.Chain(options.middleware...)(transport.Send),
		opts:      options,
	}
}

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Capabilities map[string]json.RawMessage `json:"capabilities"`
	Instructions string                     `json:"instructions,omitempty"`
}

// Initialize performs the MCP handshake with the server and, when the
// transport supports it, sends the initialized notification.
func (c *Client) Initialize(ctx context.Context) (*ServerInfo, error) {
	params := map[string]any{
		"protocolVersion": c.opts.protocolVer,
		"clientInfo": map[string]any{
			"name":    c.opts.clientName,
			"version": c.opts.clientVer,
		},
		"capabilities": map[string]any{},
	}

	var result initializeResult
	if err := c.request(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	info := &ServerInfo{
		Name:            result.ServerInfo.Name,
		Version:         result.ServerInfo.Version,
		ProtocolVersion: result.ProtocolVersion,
		Instructions:    result.Instructions,
	}
	_, info.Capabilities.Tools = result.Capabilities["tools"]
	_, info.Capabilities.Resources = result.Capabilities["resources"]
	_, info.Capabilities.Prompts = result.Capabilities["prompts"]
	_, info.Capabilities.Logging = result.Capabilities["logging"]

	if n, ok := c.transport.(Notifier); ok {
		notification, err := protocol.NewNotification(protocol.MethodInitialized, nil)
		if err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
		if err := n.Notify(ctx, notification); err != nil {
			return nil, fmt.Errorf("initialize: send initialized: %w", err)
		}
	}

	c.mu.Lock()
	c.serverInfo = info
	c.mu.Unlock()

	return info, nil
}

// ListTools returns every tool the server exposes, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	err := c.paginate(ctx, protocol.MethodToolsList, func(raw json.RawMessage) (string, error) {
		var page struct {
			Tools      []Tool `json:"tools"`
			NextCursor string `json:"nextCursor,omitempty"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", err
		}
		tools = append(tools, page.Tools...)
		return page.NextCursor, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return tools, nil
}

// ListResources returns every concrete resource the server exposes.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	err := c.paginate(ctx, protocol.MethodResourcesList, func(raw json.RawMessage) (string, error) {
		var page struct {
			Resources  []Resource `json:"resources"`
			NextCursor string     `json:"nextCursor,omitempty"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", err
		}
		resources = append(resources, page.Resources...)
		return page.NextCursor, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// ListResourceTemplates returns every resource template the server exposes.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]ResourceTemplate, error) {
	var templates []ResourceTemplate
	err := c.paginate(ctx, protocol.MethodResourcesTemplatesList, func(raw json.RawMessage) (string, error) {
		var page struct {
			ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
			NextCursor        string             `json:"nextCursor,omitempty"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", err
		}
		templates = append(templates, page.ResourceTemplates...)
		return page.NextCursor, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list resource templates: %w", err)
	}
	return templates, nil
}

// ListPrompts returns every prompt the server exposes.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var prompts []Prompt
	err := c.paginate(ctx, protocol.MethodPromptsList, func(raw json.RawMessage) (string, error) {
		var page struct {
			Prompts    []Prompt `json:"prompts"`
			NextCursor string   `json:"nextCursor,omitempty"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", err
		}
		prompts = append(prompts, page.Prompts...)
		return page.NextCursor, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return prompts, nil
}

// ReadResource reads a resource from the server.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	var result ReadResourceResult
	if err := c.request(ctx, protocol.MethodResourcesRead, map[string]any{"uri": uri}, &result); err != nil {
		return nil, fmt.Errorf("read resource %q: %w", uri, err)
	}
	return &result, nil
}

// CallTool calls a tool on the server with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*ToolResult, error) {
	params := map[string]any{
		"name": name,
	}
	if arguments != nil {
		params["arguments"] = arguments
	}

	var result ToolResult
	if err := c.request(ctx, protocol.MethodToolsCall, params, &result); err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}
	return &result, nil
}

// GetPrompt gets a prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*PromptResult, error) {
	params := map[string]any{
		"name": name,
	}
	if arguments != nil {
		params["arguments"] = arguments
	}

	var result PromptResult
	if err := c.request(ctx, protocol.MethodPromptsGet, params, &result); err != nil {
		return nil, fmt.Errorf("get prompt %q: %w", name, err)
	}
	return &result, nil
}

// Ping sends a ping to the server.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.request(ctx, protocol.MethodPing, nil, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ServerInfo returns the cached server info from initialization.
func (c *Client) ServerInfo() *ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.transport.Close()
}

// paginate issues method until the server stops returning a cursor. Each
// page is a separate round trip, sent one after the other.
func (c *Client) paginate(ctx context.Context, method string, page func(json.RawMessage) (string, error)) error {
	cursor := ""
	for {
		var params any
		if cursor != "" {
			params = map[string]any{"cursor": cursor}
		}

		resp, err := c.call(ctx, method, params)
		if err != nil {
			return err
		}

		next, err := page(resp.Result)
		if err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		if next == "" || next == cursor {
			return nil
		}
		cursor = next
	}
}

// request makes a call and decodes the result into out when out is non-nil.
func (c *Client) request(ctx context.Context, method string, params, out any) error {
	resp, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// call makes a JSON-RPC call to the server.
func (c *Client) call(ctx context.Context, method string, params any) (*protocol.Response, error) {
	id := c.requestID.Add(1)

	var paramsRaw json.RawMessage
	if params != nil {
		var err error
		paramsRaw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  paramsRaw,
	}

	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp, nil
}
