package planning

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

type fakeReasoner struct {
	value   json.RawMessage
	err     error
	calls   int
	lastSch reasoner.Schema
}

func (f *fakeReasoner) Name() string { return "fake" }
func (f *fakeReasoner) Reason(ctx context.Context, prompt string, schema reasoner.Schema) (reasoner.Result, error) {
	f.calls++
	f.lastSch = schema
	if f.err != nil {
		return reasoner.Result{}, f.err
	}
	return reasoner.Result{Value: f.value, Tokens: 42}, nil
}

func TestStage_Plan_MaterializesDependencies(t *testing.T) {
	plan := `{"tasks": [
		{"description": "gather requirements", "priority": 3, "depends_on": []},
		{"description": "implement feature", "priority": 2, "depends_on": [1]},
		{"description": "references missing task", "priority": 2, "depends_on": [99]}
	]}`
	r := &fakeReasoner{value: json.RawMessage(plan)}
	bridge := toolbridge.New()

	s := New(r, bridge)
	list, err := s.Plan(context.Background(), "build a thing", nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(list.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(list.Tasks))
	}
	if r.lastSch.Name != reasoner.TaskPlanSchema.Name {
		t.Fatalf("expected TaskPlanSchema, got %s", r.lastSch.Name)
	}

	second := list.Tasks[1]
	first := list.Tasks[0]
	if _, ok := second.Dependencies[first.ID]; !ok {
		t.Fatalf("expected task 2 to depend on task 1's id")
	}

	third := list.Tasks[2]
	if len(third.Dependencies) != 0 {
		t.Fatalf("expected out-of-range dependency to be dropped, got %v", third.Dependencies)
	}

	if len(list.ExecutionOrder) != 3 {
		t.Fatalf("expected execution order over all 3 tasks, got %v", list.ExecutionOrder)
	}
}

func TestStage_Plan_EmptyTaskListIsPlanningFailure(t *testing.T) {
	r := &fakeReasoner{value: json.RawMessage(`{"tasks": []}`)}
	s := New(r, toolbridge.New())
	_, err := s.Plan(context.Background(), "do nothing", nil)
	if err == nil {
		t.Fatal("expected an error for an empty task plan")
	}
}

func TestStage_Plan_PropagatesReasonerFailure(t *testing.T) {
	r := &fakeReasoner{err: errTestReasonerDown}
	s := New(r, toolbridge.New())
	_, err := s.Plan(context.Background(), "q", nil)
	if err == nil {
		t.Fatal("expected planning to fail when the reasoner errors")
	}
}

func TestStage_AnalyzeComplexity_DecodesResponse(t *testing.T) {
	r := &fakeReasoner{value: json.RawMessage(`{"complexity": "complex", "estimated_steps": 5, "required_capabilities": ["filesystem"], "recommended_approach": "break into subtasks"}`)}
	s := New(r, toolbridge.New())

	got, err := s.AnalyzeComplexity(context.Background(), "refactor the whole system")
	if err != nil {
		t.Fatalf("AnalyzeComplexity: %v", err)
	}
	if got.Complexity != "complex" || got.EstimatedSteps != 5 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if r.lastSch.Name != reasoner.ComplexityAnalysisSchema.Name {
		t.Fatalf("expected ComplexityAnalysisSchema, got %s", r.lastSch.Name)
	}
}

var errTestReasonerDown = &testErr{"reasoner unreachable"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
