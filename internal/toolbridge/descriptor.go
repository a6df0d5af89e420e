// Package toolbridge is the single point of contact for all tool
// interaction: discovery, caching, validation, and dispatch across
// heterogeneous tool servers.
package toolbridge

import (
	"context"
	"encoding/json"
)

// ToolDescriptor is the single shape every tool source is normalized to,
// regardless of its native schema dialect (MCP inputSchema, a builtin's
// hand-built JSON Schema, or anything future transports add). The Bridge
// and every stage consume only this interface.
type ToolDescriptor interface {
	Name() string
	Description() string
	ServerID() string
	// ParametersSchema returns a JSON Schema object (as raw JSON) describing
	// the tool's parameters.
	ParametersSchema() json.RawMessage
	Invoke(ctx context.Context, params map[string]any) (string, error)
}

// ServerStatus mirrors Tool Transport's per-server connection state.
type ServerStatus string

const (
	ServerConnected    ServerStatus = "connected"
	ServerDisconnected ServerStatus = "disconnected"
	ServerError        ServerStatus = "error"
)

// Transport is the external collaborator contract: a source of tool
// servers, each exposing discovery and a ToolDescriptor per tool. The
// Bridge never talks to a transport's underlying protocol directly — only
// through this interface — so new transports (stdio MCP, HTTP/SSE MCP,
// in-process builtins) plug in without touching Bridge logic.
type Transport interface {
	// Name identifies the transport for logging ("mcp", "builtin", ...).
	Name() string
	// ListServers returns the transport's known servers and their status.
	ListServers(ctx context.Context) (map[string]ServerStatus, error)
	// ListTools returns the normalized descriptors for one connected server.
	ListTools(ctx context.Context, serverID string) ([]ToolDescriptor, error)
}
