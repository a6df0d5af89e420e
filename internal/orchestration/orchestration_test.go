package orchestration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

type fakeReasoner struct {
	value json.RawMessage
	err   error
}

func (f *fakeReasoner) Name() string { return "fake" }
func (f *fakeReasoner) Reason(ctx context.Context, prompt string, schema reasoner.Schema) (reasoner.Result, error) {
	if f.err != nil {
		return reasoner.Result{}, f.err
	}
	return reasoner.Result{Value: f.value, Tokens: 7}, nil
}

type fakeDescriptor struct {
	name, serverID string
	schema         json.RawMessage
}

func (d *fakeDescriptor) Name() string                     { return d.name }
func (d *fakeDescriptor) Description() string               { return "" }
func (d *fakeDescriptor) ServerID() string                   { return d.serverID }
func (d *fakeDescriptor) ParametersSchema() json.RawMessage { return d.schema }
func (d *fakeDescriptor) Invoke(ctx context.Context, params map[string]any) (string, error) {
	return "ok", nil
}

type fakeTransport struct {
	serverID string
	tools    []toolbridge.ToolDescriptor
}

func (t *fakeTransport) Name() string { return "fake" }
func (t *fakeTransport) ListServers(ctx context.Context) (map[string]toolbridge.ServerStatus, error) {
	return map[string]toolbridge.ServerStatus{t.serverID: toolbridge.ServerConnected}, nil
}
func (t *fakeTransport) ListTools(ctx context.Context, serverID string) ([]toolbridge.ToolDescriptor, error) {
	if serverID != t.serverID {
		return nil, nil
	}
	return t.tools, nil
}

func TestStage_OrchestrateTask_RepairsCyclesAndServerID(t *testing.T) {
	planJSON := `{"steps": [
		{"tool_name": "write_file", "parameters": {"path": "/tmp/a", "content": "hi"}, "server_id": "wrong-server", "depends_on_steps": []},
		{"tool_name": "read_file", "parameters": {"path": "/tmp/a"}, "server_id": "", "depends_on_steps": [1, 2]}
	]}`
	r := &fakeReasoner{value: json.RawMessage(planJSON)}
	transport := &fakeTransport{
		serverID: "filesystem-mcp",
		tools: []toolbridge.ToolDescriptor{
			&fakeDescriptor{name: "write_file", serverID: "filesystem-mcp", schema: json.RawMessage(`{}`)},
			&fakeDescriptor{name: "read_file", serverID: "filesystem-mcp", schema: json.RawMessage(`{}`)},
		},
	}
	bridge := toolbridge.New(transport)
	s := New(r, bridge)

	task := taskgraph.NewTask("t", "write then read a file")
	plan, err := s.OrchestrateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("OrchestrateTask: %v", err)
	}
	if len(plan.ExecutionSteps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.ExecutionSteps))
	}
	step1, step2 := plan.ExecutionSteps[0], plan.ExecutionSteps[1]
	if step1.ServerID != "filesystem-mcp" {
		t.Fatalf("expected corrected server_id, got %q", step1.ServerID)
	}
	if len(step2.DependsOnSteps) != 1 || step2.DependsOnSteps[0] != 1 {
		t.Fatalf("expected self/forward edges repaired, kept only backward edge 1, got %v", step2.DependsOnSteps)
	}
	if plan.Metadata["validation_passed"] != true {
		t.Fatalf("expected validation_passed metadata to be set")
	}
}

func TestStage_OrchestrateTaskList_PlansEveryTask(t *testing.T) {
	good := &fakeReasoner{value: json.RawMessage(`{"steps": [{"tool_name":"x","parameters":{}}]}`)}
	list := taskgraph.NewTaskList("list")
	list.AddTask(taskgraph.NewTask("t1", "do a thing"))
	list.AddTask(taskgraph.NewTask("t2", "do another thing"))

	s := New(good, toolbridge.New())
	result := s.OrchestrateTaskList(context.Background(), list)
	if !result.AllOK {
		t.Fatalf("expected all tasks to succeed, errors=%v", result.Errors)
	}
	if len(result.Plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(result.Plans))
	}
}

func TestDetectBatchOpportunities_FindsConsecutiveSameTool(t *testing.T) {
	plan := taskgraph.NewToolExecutionPlan("task-1", "desc")
	plan.ExecutionSteps = []*taskgraph.ToolExecutionStep{
		{StepNumber: 1, ToolName: "write_file"},
		{StepNumber: 2, ToolName: "write_file"},
		{StepNumber: 3, ToolName: "read_file"},
	}
	got := DetectBatchOpportunities([]*taskgraph.ToolExecutionPlan{plan})
	if len(got) != 1 {
		t.Fatalf("expected exactly one batch opportunity, got %v", got)
	}
}
