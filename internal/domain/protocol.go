package domain

// Identity the gateway reports during capability negotiation and on the
// health endpoint. The method names and error codes are a protocol
// convention shared with MCP-style clients and must stay stable.
const (
	ServiceName     = "dropbox-mcp"
	ServiceVersion  = "1.0.0"
	ProtocolVersion = "2024-11-05"
)

const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Reserved JSON-RPC error codes.
const (
	CodeParseError     int64 = -32700
	CodeMethodNotFound int64 = -32601
	CodeInternalError  int64 = -32603
)
