package taskgraph

import "testing"

func TestReasoningChain_CompleteIsIdempotent(t *testing.T) {
	tl := NewTaskList("tl")
	rc := NewReasoningChain("query", tl)
	rc.Start()

	rc.Complete("first result")
	if rc.FinalResult != "first result" {
		t.Fatalf("expected first result, got %q", rc.FinalResult)
	}

	rc.Complete("second result")
	if rc.FinalResult != "first result" {
		t.Fatalf("second Complete must be a no-op, got %q", rc.FinalResult)
	}
	if rc.Status != StatusCompleted {
		t.Fatalf("status must remain completed, got %s", rc.Status)
	}
}

func TestReasoningChain_FailAfterCompleteIsNoop(t *testing.T) {
	tl := NewTaskList("tl")
	rc := NewReasoningChain("query", tl)
	rc.Start()
	rc.Complete("done")

	rc.Fail("should not apply")
	if rc.Status != StatusCompleted {
		t.Fatalf("Fail after Complete must not change status, got %s", rc.Status)
	}
}

func TestReasoningChain_AddReasoningStepStampsNumber(t *testing.T) {
	tl := NewTaskList("tl")
	rc := NewReasoningChain("query", tl)

	rc.AddReasoningStep(&ReasoningStep{Title: "planning", AgentRole: RolePlanning})
	rc.AddReasoningStep(&ReasoningStep{Title: "orchestration", AgentRole: RoleOrchestrator})

	if rc.ReasoningSteps[0].StepNumber != 1 || rc.ReasoningSteps[1].StepNumber != 2 {
		t.Fatalf("step numbers must be monotone starting at 1: %+v", rc.ReasoningSteps)
	}
}

func TestTaskList_ProgressAndCompletion(t *testing.T) {
	tl := NewTaskList("tl")
	a := NewTask("a", "")
	b := NewTask("b", "")
	tl.AddTask(a)
	tl.AddTask(b)

	if tl.IsComplete() {
		t.Fatal("fresh task list must not be complete")
	}
	tl.MarkTaskCompleted(a.ID)
	if got := tl.ProgressPercentage(); got != 50.0 {
		t.Fatalf("expected 50%% progress, got %v", got)
	}
	tl.MarkTaskCompleted(b.ID)
	if !tl.IsComplete() {
		t.Fatal("task list with all tasks completed must report complete")
	}
}

func TestToolExecutionPlan_RepairCyclesDropsForwardAndSelfEdges(t *testing.T) {
	plan := NewToolExecutionPlan("task-1", "desc")
	step1 := &ToolExecutionStep{StepNumber: 1}
	step2 := &ToolExecutionStep{StepNumber: 2, DependsOnSteps: []int{1, 2, 3}}
	plan.ExecutionSteps = []*ToolExecutionStep{step1, step2}

	dropped := plan.RepairCycles()
	if dropped != 2 {
		t.Fatalf("expected 2 dropped edges (self+forward), got %d", dropped)
	}
	if len(step2.DependsOnSteps) != 1 || step2.DependsOnSteps[0] != 1 {
		t.Fatalf("only the backward edge should survive, got %v", step2.DependsOnSteps)
	}
}
