package protocol

// DefaultProtocolVersion is the MCP revision announced during initialize
// unless the client is configured otherwise.
const DefaultProtocolVersion = "2025-06-18"

// MCP method names.
const (
	MethodInitialize             = "initialize"
	MethodInitialized            = "notifications/initialized"
	MethodToolsList              = "tools/list"
	MethodToolsCall              = "tools/call"
	MethodResourcesList          = "resources/list"
	MethodResourcesTemplatesList = "resources/templates/list"
	MethodResourcesRead          = "resources/read"
	MethodPromptsList            = "prompts/list"
	MethodPromptsGet             = "prompts/get"
	MethodPing                   = "ping"
)

// MCP notification methods.
const (
	MethodProgress = "notifications/progress"
	MethodMessage  = "notifications/message"
)
