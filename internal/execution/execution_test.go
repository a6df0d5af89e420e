package execution

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

type scriptedDescriptor struct {
	name   string
	calls  int
	script []func(params map[string]any) (string, error)
}

func (d *scriptedDescriptor) Name() string                     { return d.name }
func (d *scriptedDescriptor) Description() string               { return "" }
func (d *scriptedDescriptor) ServerID() string                   { return "s" }
func (d *scriptedDescriptor) ParametersSchema() json.RawMessage { return json.RawMessage(`{}`) }
func (d *scriptedDescriptor) Invoke(ctx context.Context, params map[string]any) (string, error) {
	i := d.calls
	d.calls++
	if i >= len(d.script) {
		i = len(d.script) - 1
	}
	return d.script[i](params)
}

type fakeTransport struct {
	tools []toolbridge.ToolDescriptor
}

func (t *fakeTransport) Name() string { return "fake" }
func (t *fakeTransport) ListServers(ctx context.Context) (map[string]toolbridge.ServerStatus, error) {
	return map[string]toolbridge.ServerStatus{"s": toolbridge.ServerConnected}, nil
}
func (t *fakeTransport) ListTools(ctx context.Context, serverID string) ([]toolbridge.ToolDescriptor, error) {
	if serverID != "s" {
		return nil, nil
	}
	return t.tools, nil
}

func planWithSteps(steps ...*taskgraph.ToolExecutionStep) *taskgraph.ToolExecutionPlan {
	plan := taskgraph.NewToolExecutionPlan("task-1", "do the thing")
	plan.ExecutionSteps = steps
	return plan
}

func TestStage_Execute_ResolvesParameterReferences(t *testing.T) {
	readFile := &scriptedDescriptor{name: "read_file", script: []func(map[string]any) (string, error){
		func(p map[string]any) (string, error) { return "file contents", nil },
	}}
	writeFile := &scriptedDescriptor{name: "write_file", script: []func(map[string]any) (string, error){
		func(p map[string]any) (string, error) { return "written", nil },
	}}
	transport := &fakeTransport{tools: []toolbridge.ToolDescriptor{readFile, writeFile}}
	bridge := toolbridge.New(transport)

	plan := planWithSteps(
		&taskgraph.ToolExecutionStep{StepNumber: 1, ToolName: "read_file", Parameters: map[string]any{"path": "/tmp/a"}},
		&taskgraph.ToolExecutionStep{StepNumber: 2, ToolName: "write_file", DependsOnSteps: []int{1}, Parameters: map[string]any{
			"path": "/tmp/b", "content": "${step_1_result}",
		}},
	)

	s := New(bridge, nil)
	result := s.Execute(context.Background(), plan, nil)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.StepResults[1].Parameters["content"] != "file contents" {
		t.Fatalf("expected ${step_1_result} to resolve to step 1's output, got %v", result.StepResults[1].Parameters["content"])
	}
}

func TestStage_Execute_DependencyNotSatisfiedSkipsStep(t *testing.T) {
	failing := &scriptedDescriptor{name: "flaky", script: []func(map[string]any) (string, error){
		func(p map[string]any) (string, error) { return "", errors.New("boom") },
	}}
	transport := &fakeTransport{tools: []toolbridge.ToolDescriptor{failing}}
	bridge := toolbridge.New(transport)

	plan := planWithSteps(
		&taskgraph.ToolExecutionStep{StepNumber: 1, ToolName: "flaky", ErrorHandling: taskgraph.ErrorHandlingSkip},
		&taskgraph.ToolExecutionStep{StepNumber: 2, ToolName: "flaky", DependsOnSteps: []int{1}},
	)
	s := New(bridge, nil)
	result := s.Execute(context.Background(), plan, nil)

	if result.Success {
		t.Fatal("expected overall failure since step 1 never succeeds")
	}
	if len(result.StepResults) != 1 {
		t.Fatalf("expected step 2 to be skipped (dependency unsatisfied), got %d step results", len(result.StepResults))
	}
}

func TestStage_Execute_RetryOnceRecoversOnSecondAttempt(t *testing.T) {
	attempts := 0
	flaky := &scriptedDescriptor{name: "flaky", script: []func(map[string]any) (string, error){
		func(p map[string]any) (string, error) { attempts++; return "", errors.New("first try fails") },
		func(p map[string]any) (string, error) { attempts++; return "ok now", nil },
	}}
	transport := &fakeTransport{tools: []toolbridge.ToolDescriptor{flaky}}
	bridge := toolbridge.New(transport)

	plan := planWithSteps(
		&taskgraph.ToolExecutionStep{StepNumber: 1, ToolName: "flaky", ErrorHandling: taskgraph.ErrorHandlingRetryOnce},
	)
	s := New(bridge, nil)
	result := s.Execute(context.Background(), plan, nil)

	if !result.Success {
		t.Fatalf("expected retry_once to recover, got %+v", result)
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
	if len(result.RecoveryActionsTaken) != 1 {
		t.Fatalf("expected one recovery action recorded, got %v", result.RecoveryActionsTaken)
	}
}

func TestStage_Execute_AbortStopsRemainingSteps(t *testing.T) {
	failing := &scriptedDescriptor{name: "flaky", script: []func(map[string]any) (string, error){
		func(p map[string]any) (string, error) { return "", errors.New("boom") },
	}}
	transport := &fakeTransport{tools: []toolbridge.ToolDescriptor{failing}}
	bridge := toolbridge.New(transport)

	plan := planWithSteps(
		&taskgraph.ToolExecutionStep{StepNumber: 1, ToolName: "flaky", ErrorHandling: taskgraph.ErrorHandlingAbort},
		&taskgraph.ToolExecutionStep{StepNumber: 2, ToolName: "flaky"},
	)
	s := New(bridge, nil)
	result := s.Execute(context.Background(), plan, nil)

	if len(result.StepResults) != 1 {
		t.Fatalf("expected execution to stop after the aborting step, got %d results", len(result.StepResults))
	}
}

func TestFallbackSynthesis_AllStepsCompleted(t *testing.T) {
	summary, output := fallbackSynthesis(3, 3, "ship the feature")
	if summary == "" || output == "" {
		t.Fatal("expected non-empty summary and output")
	}
}
