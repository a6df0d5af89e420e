package toolbridge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pocketomega/pocket-omega/internal/tool"
)

// builtinServerID is the single synthetic server every in-process tool is
// attributed to. It deliberately does not contain any of the substrings
// inferServerType scans for, so builtin tools report ServerTypeUnknown —
// accurate, since "filesystem"/"git"/... routing hints are about external
// tool-server identity, not about where a Go function happens to run.
const builtinServerID = "builtin"

// BuiltinTransport is a zero-process Transport wrapping the in-process
// internal/tool.Tool implementations (shell, file ops, web reader, search,
// git info) behind the Bridge's ToolDescriptor contract, so the catalog is
// non-empty even with no MCP servers configured.
type BuiltinTransport struct {
	registry *tool.Registry
}

// NewBuiltinTransport wraps an already-populated tool.Registry.
func NewBuiltinTransport(registry *tool.Registry) *BuiltinTransport {
	return &BuiltinTransport{registry: registry}
}

func (t *BuiltinTransport) Name() string { return "builtin" }

func (t *BuiltinTransport) ListServers(ctx context.Context) (map[string]ServerStatus, error) {
	return map[string]ServerStatus{builtinServerID: ServerConnected}, nil
}

func (t *BuiltinTransport) ListTools(ctx context.Context, serverID string) ([]ToolDescriptor, error) {
	if serverID != builtinServerID {
		return nil, nil
	}
	tools := t.registry.List()
	out := make([]ToolDescriptor, len(tools))
	for i, tl := range tools {
		out[i] = &builtinDescriptor{tool: tl}
	}
	return out, nil
}

// builtinDescriptor adapts one tool.Tool to ToolDescriptor.
type builtinDescriptor struct {
	tool tool.Tool
}

func (d *builtinDescriptor) Name() string                     { return d.tool.Name() }
func (d *builtinDescriptor) Description() string               { return d.tool.Description() }
func (d *builtinDescriptor) ServerID() string                   { return builtinServerID }
func (d *builtinDescriptor) ParametersSchema() json.RawMessage { return d.tool.InputSchema() }

func (d *builtinDescriptor) Invoke(ctx context.Context, params map[string]any) (string, error) {
	args, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	result, err := d.tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", errors.New(result.Error)
	}
	return result.Output, nil
}
