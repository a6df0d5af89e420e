package toolbridge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
)

// tracer emits one span per tool invocation. otel.Tracer reads whatever
// TracerProvider tracing.Setup installed globally; before Setup runs this
// resolves to the SDK's no-op provider, so spans are always safe to start.
var tracer = otel.Tracer("pocket-omega/toolbridge")

// Role is the requesting stage, used by ToolsFor to decide catalog shape.
// All three roles currently see the full catalog; Role is kept as a
// distinct parameter because callers express intent at the call site and
// a future role-scoped catalog is a plausible extension this signature
// already accommodates.
type Role string

const (
	RolePlanning     Role = "planning"
	RoleOrchestrator Role = "orchestrator"
	RoleExecution    Role = "execution"
)

// ToolResult is the outcome of one Execute call.
type ToolResult struct {
	OK       bool
	Value    string
	Error    string
	Duration time.Duration
	ServerID string
}

// ExecuteRequest is one fan-out unit for ExecuteMany.
type ExecuteRequest struct {
	ToolName string
	Params   map[string]any
	ServerID string // optional; resolved from the cache when empty
}

// Bridge is the Tool Bridge component. It owns the tool cache; every
// other component only reads from it.
type Bridge struct {
	transports []Transport

	cache *cache

	schemaMu        sync.Mutex
	compiledSchemas map[string]*jsonschema.Schema

	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker
}

// New creates a Bridge that discovers tools from the given transports.
func New(transports ...Transport) *Bridge {
	b := &Bridge{
		transports:      transports,
		compiledSchemas: make(map[string]*jsonschema.Schema),
		breakers:        make(map[string]*gobreaker.CircuitBreaker),
	}
	b.cache = newCache(b.buildSnapshot)
	return b
}

// buildSnapshot discovers tools across every connected server across every
// transport and normalizes them. A discovery failure for one server never
// poisons the others — the cache is rebuilt best-effort.
func (b *Bridge) buildSnapshot(ctx context.Context) (*catalogSnapshot, error) {
	infos := make([]AvailableToolInfo, 0, 32)
	adapters := make(map[string]ToolDescriptor, 32)

	for _, transport := range b.transports {
		servers, err := transport.ListServers(ctx)
		if err != nil {
			continue // this transport is unavailable; others still contribute
		}
		for serverID, status := range servers {
			if status != ServerConnected {
				continue
			}
			tools, err := transport.ListTools(ctx, serverID)
			if err != nil {
				continue // best-effort: one server's failure doesn't poison the rest
			}
			for _, td := range tools {
				infos = append(infos, AvailableToolInfo{
					Name:        td.Name(),
					ServerID:    serverID,
					ServerType:  inferServerType(serverID),
					Description: td.Description(),
					Parameters:  td.ParametersSchema(),
				})
				adapters[td.Name()] = td
			}
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return &catalogSnapshot{infos: infos, adapters: adapters, fetchedAt: time.Now()}, nil
}

// ListTools returns a cached catalog snapshot, refreshing on first call,
// explicit refresh, or TTL expiry.
func (b *Bridge) ListTools(ctx context.Context, refresh bool) ([]AvailableToolInfo, error) {
	snap, err := b.cache.get(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return snap.infos, nil
}

// ToolsFor filters the catalog by requesting role. See Role's doc comment.
func (b *Bridge) ToolsFor(ctx context.Context, _ Role) ([]AvailableToolInfo, error) {
	return b.ListTools(ctx, false)
}

// RecommendTools wraps the package-level RecommendTools using the current
// cached catalog.
func (b *Bridge) RecommendTools(ctx context.Context, task *taskgraph.Task) ([]string, error) {
	catalog, err := b.ListTools(ctx, false)
	if err != nil {
		return nil, err
	}
	return RecommendTools(catalog, task.Description, task.ToolsRequired), nil
}

func (b *Bridge) lookupTool(name string) (AvailableToolInfo, bool) {
	snap := b.cache.load()
	if snap == nil {
		return AvailableToolInfo{}, false
	}
	for _, info := range snap.infos {
		if info.Name == name {
			return info, true
		}
	}
	return AvailableToolInfo{}, false
}

func (b *Bridge) toolNames() []string {
	snap := b.cache.load()
	if snap == nil {
		return nil
	}
	names := make([]string, len(snap.infos))
	for i, info := range snap.infos {
		names[i] = info.Name
	}
	return names
}

// Execute resolves server_id when absent, validates, then dispatches
// through a per-server circuit breaker. A params mismatch against the
// tool's declared schema never reaches the transport: Validate's detailed
// guidance message comes back as the ToolResult's error instead.
func (b *Bridge) Execute(ctx context.Context, toolName string, params map[string]any, serverID string) ToolResult {
	ctx, span := tracer.Start(ctx, "toolbridge.Execute", trace.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("tool.server_id", serverID),
	))
	defer span.End()

	info, found := b.lookupTool(toolName)
	if !found {
		err := errs.ToolNotFound(toolName)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ToolResult{OK: false, Error: err.Error()}
	}
	if serverID == "" {
		serverID = info.ServerID
	}
	span.SetAttributes(attribute.String("tool.server_id", serverID))

	if ok, message := b.Validate(toolName, params); !ok {
		span.SetStatus(codes.Error, "parameter validation failed")
		return ToolResult{OK: false, Error: errs.ParameterValidation(toolName, "parameter validation failed", message).Error(), ServerID: serverID}
	}

	snap := b.cache.load()
	adapter, ok := snap.adapters[toolName]
	if !ok {
		err := errs.ToolNotFound(toolName)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ToolResult{OK: false, Error: err.Error(), ServerID: serverID}
	}

	breaker := b.breakerFor(serverID)
	start := time.Now()
	raw, err := breaker.Execute(func() (any, error) {
		return adapter.Invoke(ctx, params)
	})
	duration := time.Since(start)

	if err != nil {
		wrapped := errs.ToolExecutionError(toolName, err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return ToolResult{OK: false, Error: wrapped.Error(), Duration: duration, ServerID: serverID}
	}
	value, _ := raw.(string)
	return ToolResult{OK: true, Value: value, Duration: duration, ServerID: serverID}
}

// ExecuteMany runs requests concurrently; a single failure or panic never
// aborts the batch — each request's outcome lands in the result at its own
// index.
func (b *Bridge) ExecuteMany(ctx context.Context, requests []ExecuteRequest) []ToolResult {
	results := make([]ToolResult, len(requests))
	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req ExecuteRequest) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = ToolResult{OK: false, Error: fmt.Sprintf("tool %q panicked: %v", req.ToolName, r)}
				}
			}()
			results[i] = b.Execute(ctx, req.ToolName, req.Params, req.ServerID)
		}(i, req)
	}
	wg.Wait()
	return results
}

// breakerFor returns (creating if needed) the circuit breaker guarding
// serverID, so a tool server that is failing repeatedly stops being
// hammered by concurrent ExecuteMany fan-outs. This is additive resilience
// layered on top of the ToolResult{ok=false} contract, not a change to it:
// a tripped breaker still returns a normal failed ToolResult.
func (b *Bridge) breakerFor(serverID string) *gobreaker.CircuitBreaker {
	b.breakersMu.Lock()
	defer b.breakersMu.Unlock()
	if cb, ok := b.breakers[serverID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serverID,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	b.breakers[serverID] = cb
	return cb
}
