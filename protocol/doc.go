// Package protocol defines the JSON-RPC 2.0 envelopes and MCP method names
// spoken by the mcpsh client.
//
// Responses keep their result as raw JSON. Tool input schemas are decoded
// downstream into insertion-ordered maps, which a generic map[string]any
// round trip would destroy.
//
// Inbound frames are first decoded as a Message and classified:
//
//	var msg protocol.Message
//	if err := json.Unmarshal(line, &msg); err != nil { ... }
//	switch {
//	case msg.IsResponse():     // answers one of our requests
//	case msg.IsRequest():      // server asks us something (ping, sampling)
//	case msg.IsNotification(): // server tells us something
//	}
//
// Standard JSON-RPC 2.0 error codes are defined as constants and *Error
// compares by code with errors.Is.
package protocol
