package taskgraph

import (
	"time"

	"github.com/google/uuid"
)

// TaskList is an ordered collection of Tasks plus a derived execution order.
type TaskList struct {
	ID                string
	Name              string
	Tasks             []*Task
	ExecutionOrder     []string // topological order, see ComputeExecutionOrder
	Status            Status
	CompletedTaskIDs  map[string]struct{}
	FailedTaskIDs     map[string]struct{}
	Complexity        string // "simple" | "moderate" | "complex"
	CreatedAt         time.Time
	StartedAt         time.Time
	CompletedAt       time.Time
	Metadata          map[string]any
}

// NewTaskList creates an empty TaskList.
func NewTaskList(name string) *TaskList {
	return &TaskList{
		ID:               uuid.NewString(),
		Name:             name,
		Status:           StatusPending,
		CompletedTaskIDs: make(map[string]struct{}),
		FailedTaskIDs:    make(map[string]struct{}),
		CreatedAt:        time.Now(),
		Metadata:         make(map[string]any),
	}
}

// AddTask appends a task and, if not already present, its id to ExecutionOrder.
// Callers normally overwrite ExecutionOrder with ComputeExecutionOrder once
// all tasks and dependencies are known; this incremental append only matters
// before that computation runs.
func (tl *TaskList) AddTask(t *Task) {
	tl.Tasks = append(tl.Tasks, t)
	for _, id := range tl.ExecutionOrder {
		if id == t.ID {
			return
		}
	}
	tl.ExecutionOrder = append(tl.ExecutionOrder, t.ID)
}

// GetTask looks up a task by id.
func (tl *TaskList) GetTask(id string) (*Task, bool) {
	for _, t := range tl.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// ReadyTasks returns every task whose dependencies are all satisfied.
func (tl *TaskList) ReadyTasks() []*Task {
	var ready []*Task
	for _, t := range tl.Tasks {
		if t.IsReady(tl.CompletedTaskIDs) {
			ready = append(ready, t)
		}
	}
	return ready
}

// BlockedTasks returns pending tasks whose dependencies are not yet satisfied.
func (tl *TaskList) BlockedTasks() []*Task {
	var blocked []*Task
	for _, t := range tl.Tasks {
		if t.Status == StatusPending && !t.IsReady(tl.CompletedTaskIDs) {
			blocked = append(blocked, t)
		}
	}
	return blocked
}

// MarkTaskCompleted records id as completed, undoing any prior failed mark.
func (tl *TaskList) MarkTaskCompleted(id string) {
	tl.CompletedTaskIDs[id] = struct{}{}
	delete(tl.FailedTaskIDs, id)
}

// MarkTaskFailed records id as failed.
func (tl *TaskList) MarkTaskFailed(id string) {
	tl.FailedTaskIDs[id] = struct{}{}
}

// ProgressPercentage is the fraction of tasks completed, as a 0-100 value.
// An empty task list is reported as fully complete.
func (tl *TaskList) ProgressPercentage() float64 {
	if len(tl.Tasks) == 0 {
		return 100.0
	}
	return float64(len(tl.CompletedTaskIDs)) / float64(len(tl.Tasks)) * 100.0
}

// IsComplete reports whether every task has been marked completed.
func (tl *TaskList) IsComplete() bool {
	return len(tl.CompletedTaskIDs) == len(tl.Tasks)
}

// HasFailures reports whether any task has been marked failed.
func (tl *TaskList) HasFailures() bool {
	return len(tl.FailedTaskIDs) > 0
}
