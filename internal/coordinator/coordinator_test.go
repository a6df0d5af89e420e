package coordinator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pocketomega/pocket-omega/internal/execution"
	"github.com/pocketomega/pocket-omega/internal/orchestration"
	"github.com/pocketomega/pocket-omega/internal/planning"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/sessionplane"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
	"github.com/pocketomega/pocket-omega/internal/workflow"
)

type scriptedReasoner struct {
	byName map[string][]json.RawMessage
	calls  map[string]int
}

func newScriptedReasoner() *scriptedReasoner {
	return &scriptedReasoner{byName: make(map[string][]json.RawMessage), calls: make(map[string]int)}
}

func (r *scriptedReasoner) add(schemaName string, raw json.RawMessage) {
	r.byName[schemaName] = append(r.byName[schemaName], raw)
}

func (r *scriptedReasoner) Name() string { return "scripted" }

func (r *scriptedReasoner) Reason(ctx context.Context, prompt string, schema reasoner.Schema) (reasoner.Result, error) {
	responses := r.byName[schema.Name]
	i := r.calls[schema.Name]
	r.calls[schema.Name] = i + 1
	if i >= len(responses) {
		i = len(responses) - 1
	}
	return reasoner.Result{Value: responses[i], Tokens: 5}, nil
}

type stubDescriptor struct{ name, serverID string }

func (d *stubDescriptor) Name() string                     { return d.name }
func (d *stubDescriptor) Description() string               { return "" }
func (d *stubDescriptor) ServerID() string                   { return d.serverID }
func (d *stubDescriptor) ParametersSchema() json.RawMessage { return json.RawMessage(`{}`) }
func (d *stubDescriptor) Invoke(ctx context.Context, params map[string]any) (string, error) {
	return "done", nil
}

type stubTransport struct {
	serverID string
	tools    []toolbridge.ToolDescriptor
}

func (t *stubTransport) Name() string { return "stub" }
func (t *stubTransport) ListServers(ctx context.Context) (map[string]toolbridge.ServerStatus, error) {
	return map[string]toolbridge.ServerStatus{t.serverID: toolbridge.ServerConnected}, nil
}
func (t *stubTransport) ListTools(ctx context.Context, serverID string) ([]toolbridge.ToolDescriptor, error) {
	if serverID != t.serverID {
		return nil, nil
	}
	return t.tools, nil
}

func newCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	bridge := toolbridge.New(&stubTransport{
		serverID: "svc",
		tools:    []toolbridge.ToolDescriptor{&stubDescriptor{name: "do_thing", serverID: "svc"}},
	})

	r := newScriptedReasoner()
	r.add(reasoner.TaskPlanSchema.Name, json.RawMessage(`{"tasks": [{"description": "step one", "priority": 2}]}`))
	r.add(reasoner.ToolExecutionPlanSchema.Name, json.RawMessage(`{"steps": [{"tool_name": "do_thing", "parameters": {}}]}`))
	r.add(reasoner.ExecutionResultSchema.Name, json.RawMessage(`{"summary": "all good", "succeeded": true}`))
	r.add(reasoner.ComplexityAnalysisSchema.Name, json.RawMessage(`{"complexity": "simple", "estimated_steps": 1}`))

	p := planning.New(r, bridge)
	o := orchestration.New(r, bridge)
	e := execution.New(bridge, r)
	ex := workflow.New(p, o, e)
	sessions := sessionplane.NewStore(time.Hour, "")
	t.Cleanup(sessions.Close)

	return New(bridge, p, ex, sessions, "")
}

func TestCoordinator_ProcessQuery_UpdatesRollingStats(t *testing.T) {
	c := newCoordinator(t)
	sess := c.sessions.Create()

	chain, err := c.ProcessQuery(context.Background(), sess.ID, "do the thing", nil, nil)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if chain == nil {
		t.Fatal("expected a non-nil chain")
	}

	stats := c.Stats()
	if stats.QueriesProcessed != 1 {
		t.Fatalf("expected 1 query processed, got %d", stats.QueriesProcessed)
	}
	if stats.SuccessRate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %v", stats.SuccessRate)
	}
}

func TestCoordinator_ExecuteTool_DispatchesThroughBridge(t *testing.T) {
	c := newCoordinator(t)
	res := c.ExecuteTool(context.Background(), "do_thing", map[string]any{}, "")
	if !res.OK {
		t.Fatalf("expected tool execution to succeed, got %+v", res)
	}
	if c.Stats().ToolsExecuted != 1 {
		t.Fatalf("expected tools_executed to increment, got %d", c.Stats().ToolsExecuted)
	}
}

func TestCoordinator_AnalyzeComplexity_ReturnsDecodedResult(t *testing.T) {
	c := newCoordinator(t)
	got, err := c.AnalyzeComplexity(context.Background(), "a query")
	if err != nil {
		t.Fatalf("AnalyzeComplexity: %v", err)
	}
	if got.Complexity != "simple" {
		t.Fatalf("expected simple complexity, got %q", got.Complexity)
	}
}

func TestCoordinator_CancelCurrentWorkflow_UnknownSessionErrors(t *testing.T) {
	c := newCoordinator(t)
	if err := c.CancelCurrentWorkflow("no-such-session"); err == nil {
		t.Fatal("expected an error for an unknown session")
	}
}

func TestCoordinator_SystemStatus_ReportsActiveSessions(t *testing.T) {
	c := newCoordinator(t)
	c.sessions.Create()
	c.sessions.Create()

	status := c.SystemStatus()
	if status["active_sessions"] != 2 {
		t.Fatalf("expected 2 active sessions, got %v", status["active_sessions"])
	}
}
