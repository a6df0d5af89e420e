package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/execution"
	"github.com/pocketomega/pocket-omega/internal/orchestration"
	"github.com/pocketomega/pocket-omega/internal/planning"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

// scriptedReasoner returns responses keyed by schema name, in call order
// per key, so Planning/Orchestration/synthesis can share one fake.
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

type recordingSink struct {
	events []string
}

func (s *recordingSink) Emit(eventType string, payload map[string]any) {
	s.events = append(s.events, eventType)
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

func newExecutor(t *testing.T, plans int) (*Executor, *scriptedReasoner) {
	t.Helper()
	bridge := toolbridge.New(&stubTransport{
		serverID: "svc",
		tools:    []toolbridge.ToolDescriptor{&stubDescriptor{name: "do_thing", serverID: "svc"}},
	})

	r := newScriptedReasoner()
	taskPlanJSON := `{"tasks": [{"description": "step one", "priority": 2, "tools_required": [], "depends_on": []}]}`
	if plans == 2 {
		taskPlanJSON = `{"tasks": [
			{"description": "step one", "priority": 2, "tools_required": [], "depends_on": []},
			{"description": "step two", "priority": 2, "tools_required": [], "depends_on": []}
		]}`
	}
	r.add(reasoner.TaskPlanSchema.Name, json.RawMessage(taskPlanJSON))
	r.add(reasoner.ToolExecutionPlanSchema.Name, json.RawMessage(`{"steps": [{"tool_name": "do_thing", "parameters": {}}]}`))
	r.add(reasoner.ExecutionResultSchema.Name, json.RawMessage(`{"summary": "all good", "succeeded": true}`))

	p := planning.New(r, bridge)
	o := orchestration.New(r, bridge)
	e := execution.New(bridge, r)
	return New(p, o, e), r
}

func TestExecutor_Run_HappyPathCompletesChain(t *testing.T) {
	ex, _ := newExecutor(t, 1)
	sink := &recordingSink{}

	chain, err := ex.Run(context.Background(), "sess-1", "do the thing", nil, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if chain.Status != taskgraph.StatusCompleted {
		t.Fatalf("expected completed chain, got %s", chain.Status)
	}
	if chain.FinalResult == "" {
		t.Fatal("expected non-empty final result")
	}
	if len(sink.events) == 0 || sink.events[0] != "agent_query_started" {
		t.Fatalf("expected first event to be agent_query_started, got %v", sink.events)
	}
	if sink.events[len(sink.events)-1] != "agent_query_completed" {
		t.Fatalf("expected last event to be agent_query_completed, got %v", sink.events)
	}
}

func TestExecutor_Run_RejectsReentry(t *testing.T) {
	ex, _ := newExecutor(t, 1)
	ex.active = true // simulate an in-flight run without needing real concurrency

	_, err := ex.Run(context.Background(), "sess-1", "do the thing", nil, &recordingSink{})
	if err == nil {
		t.Fatal("expected reentry rejection")
	}
	asErr, ok := err.(*errs.Error)
	if !ok || asErr.Kind() != "Reentry" {
		t.Fatalf("expected a Reentry error, got %v", err)
	}
}

func TestExecutor_Run_CancelledContextFailsChain(t *testing.T) {
	ex, _ := newExecutor(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain, err := ex.Run(ctx, "sess-1", "do the thing", nil, &recordingSink{})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if chain.Status != taskgraph.StatusFailed {
		t.Fatalf("expected failed chain on cancellation, got %s", chain.Status)
	}
}

func TestExecutionProgress_MapsToBand(t *testing.T) {
	if got := executionProgress(0, 2); got != 50 {
		t.Fatalf("expected 50 at start of execution band, got %d", got)
	}
	if got := executionProgress(2, 2); got != 90 {
		t.Fatalf("expected 90 when all plans completed, got %d", got)
	}
}
