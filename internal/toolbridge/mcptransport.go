package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/pocketomega/pocket-omega/internal/mcp"
)

// MCPTransport adapts the internal/mcp package (stdio subprocess and
// HTTP/SSE MCP servers) to the Bridge's Transport contract, connecting to
// every configured server and reporting per-server status and descriptors
// into the Bridge's own per-server catalog.
//
// State changes are guarded by mu, but all network I/O (Connect, ListTools)
// runs outside the lock so a slow or hung server cannot block
// ListServers/ListTools for everyone else.
type MCPTransport struct {
	configPath string

	mu      sync.Mutex
	clients map[string]*mcp.Client // persistent-lifecycle connections
	configs map[string]mcp.ServerConfig
	status  map[string]ServerStatus
}

// NewMCPTransport creates a transport backed by the mcp.json at configPath.
// No connections are established until ConnectAll runs.
func NewMCPTransport(configPath string) *MCPTransport {
	return &MCPTransport{
		configPath: configPath,
		clients:    make(map[string]*mcp.Client),
		configs:    make(map[string]mcp.ServerConfig),
		status:     make(map[string]ServerStatus),
	}
}

func (t *MCPTransport) Name() string { return "mcp" }

// ConnectAll loads mcp.json and connects every configured server,
// best-effort: one server's connection failure never prevents the others
// from becoming available.
func (t *MCPTransport) ConnectAll(ctx context.Context) (connected int, errs []error) {
	configs, err := mcp.LoadConfig(t.configPath)
	if err != nil {
		return 0, []error{fmt.Errorf("mcp transport: load config: %w", err)}
	}

	type result struct {
		name string
		cfg  mcp.ServerConfig
		cli  *mcp.Client
		err  error
	}
	results := make([]result, 0, len(configs))
	for name, cfg := range configs {
		cli := mcp.NewClient(cfg)
		if err := cli.Connect(ctx); err != nil {
			results = append(results, result{name: name, cfg: cfg, err: err})
			log.Printf("[toolbridge] mcp connect failed: %s: %v", name, err)
			continue
		}
		results = append(results, result{name: name, cfg: cfg, cli: cli})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range results {
		t.configs[r.name] = r.cfg
		if r.err != nil {
			t.status[r.name] = ServerError
			errs = append(errs, r.err)
			continue
		}
		t.clients[r.name] = r.cli
		t.status[r.name] = ServerConnected
		connected++
	}
	return connected, errs
}

// CloseAll tears down every persistent connection. Best-effort.
func (t *MCPTransport) CloseAll() {
	t.mu.Lock()
	clients := make([]*mcp.Client, 0, len(t.clients))
	for _, c := range t.clients {
		clients = append(clients, c)
	}
	t.mu.Unlock()
	for _, c := range clients {
		_ = c.Close()
	}
}

func (t *MCPTransport) ListServers(ctx context.Context) (map[string]ServerStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ServerStatus, len(t.status))
	for name, st := range t.status {
		out[name] = st
	}
	return out, nil
}

func (t *MCPTransport) ListTools(ctx context.Context, serverID string) ([]ToolDescriptor, error) {
	t.mu.Lock()
	cli, ok := t.clients[serverID]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mcp transport: server %q not connected", serverID)
	}

	infos, err := cli.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp transport: list tools on %q: %w", serverID, err)
	}
	descriptors := make([]ToolDescriptor, len(infos))
	for i, info := range infos {
		descriptors[i] = &mcpDescriptor{serverID: serverID, client: cli, info: info}
	}
	return descriptors, nil
}

// mcpDescriptor adapts one mcp.ToolInfo to the Bridge's ToolDescriptor.
type mcpDescriptor struct {
	serverID string
	client   *mcp.Client
	info     mcp.ToolInfo
}

func (d *mcpDescriptor) Name() string        { return d.info.Name }
func (d *mcpDescriptor) Description() string { return d.info.Description }
func (d *mcpDescriptor) ServerID() string    { return d.serverID }

func (d *mcpDescriptor) ParametersSchema() json.RawMessage {
	if len(d.info.InputSchema) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return d.info.InputSchema
}

func (d *mcpDescriptor) Invoke(ctx context.Context, params map[string]any) (string, error) {
	return d.client.CallTool(ctx, d.info.Name, params)
}
