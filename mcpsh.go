// Package mcpsh is an interactive shell for MCP (Model Context Protocol)
// servers.
//
// mcpsh connects to a server over stdio, streamable HTTP or WebSocket,
// discovers what the server offers and lets the user read resources and
// call tools from a menu:
//
//	mcpsh -- node build/server.js
//	mcpsh -t http --url http://localhost:8080/mcp -H "Authorization: Bearer $TOKEN"
//
// The pieces are usable on their own:
//   - client: JSON-RPC client and transports
//   - catalog: the tools, resources and prompts a server advertised
//   - input: URI template and tool argument collection
//   - session: the menu loop
package mcpsh

// Version is reported to servers as the client version.
const Version = "1.0.0"
