package taskgraph

import (
	"testing"
	"time"
)

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestComputeExecutionOrder_RespectsDependencies(t *testing.T) {
	a := NewTask("A", "first")
	b := NewTask("B", "second")
	b.AddDependency(a.ID)
	c := NewTask("C", "third")
	c.AddDependency(b.ID)

	order := ComputeExecutionOrder([]*Task{c, b, a})
	if indexOf(order, a.ID) >= indexOf(order, b.ID) {
		t.Fatalf("A must come before B: %v", order)
	}
	if indexOf(order, b.ID) >= indexOf(order, c.ID) {
		t.Fatalf("B must come before C: %v", order)
	}
}

func TestComputeExecutionOrder_PriorityTieBreak(t *testing.T) {
	now := time.Now()
	low := NewTask("low", "")
	low.Priority = PriorityLow
	low.CreatedAt = now

	high := NewTask("high", "")
	high.Priority = PriorityHigh
	high.CreatedAt = now.Add(time.Second) // created later but higher priority

	order := ComputeExecutionOrder([]*Task{low, high})
	if indexOf(order, high.ID) >= indexOf(order, low.ID) {
		t.Fatalf("higher priority task should be visited first: %v", order)
	}
}

func TestComputeExecutionOrder_SamePriorityFIFO(t *testing.T) {
	now := time.Now()
	first := NewTask("first", "")
	first.CreatedAt = now
	second := NewTask("second", "")
	second.CreatedAt = now.Add(time.Second)

	order := ComputeExecutionOrder([]*Task{second, first})
	if indexOf(order, first.ID) >= indexOf(order, second.ID) {
		t.Fatalf("equal priority should break ties by earliest created_at: %v", order)
	}
}

func TestComputeExecutionOrder_CycleIsDroppedNotFatal(t *testing.T) {
	a := NewTask("A", "")
	b := NewTask("B", "")
	a.AddDependency(b.ID)
	b.AddDependency(a.ID) // A -> B -> A cycle

	order := ComputeExecutionOrder([]*Task{a, b})
	if len(order) != 2 {
		t.Fatalf("both tasks must still appear in execution_order, got %v", order)
	}
	if indexOf(order, a.ID) == -1 || indexOf(order, b.ID) == -1 {
		t.Fatalf("both tasks must still appear: %v", order)
	}
}

func TestTask_IsReady(t *testing.T) {
	task := NewTask("T", "")
	if !task.IsReady(map[string]struct{}{}) {
		t.Fatal("task with no dependencies must be ready immediately")
	}

	dep := NewTask("dep", "")
	task.AddDependency(dep.ID)
	if task.IsReady(map[string]struct{}{}) {
		t.Fatal("task with unsatisfied dependency must not be ready")
	}
	if !task.IsReady(map[string]struct{}{dep.ID: {}}) {
		t.Fatal("task must be ready once its dependency is completed")
	}
}

func TestTask_SelfDependencyForbidden(t *testing.T) {
	task := NewTask("T", "")
	task.AddDependency(task.ID)
	if len(task.Dependencies) != 0 {
		t.Fatalf("self-reference must be dropped, got %v", task.Dependencies)
	}
}
