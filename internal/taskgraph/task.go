// Package taskgraph holds the pure data model and pure algorithms shared by
// every stage of the reasoning chain: Task, TaskList, ReasoningStep and
// ReasoningChain, plus the dependency-respecting execution order computation.
// Nothing in this package performs I/O.
package taskgraph

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task, a TaskList, or a ReasoningChain.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusBlocked    Status = "blocked"
)

// Priority orders tasks within a shared dependency frontier.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

// Task is one unit of work inside a TaskList.
type Task struct {
	ID             string
	Title          string
	Description    string
	Status         Status
	Priority       Priority
	Dependencies   map[string]struct{} // deduplicated; self-reference forbidden
	ToolsRequired  []string            // hints only, consumed by Bridge.RecommendTools
	Result         string
	Error          string
	RetryCount     int
	MaxRetries     int
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
	ActualDuration time.Duration
	Metadata       map[string]any
}

// NewTask creates a Task with a fresh id and sane defaults.
func NewTask(title, description string) *Task {
	return &Task{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  description,
		Status:       StatusPending,
		Priority:     PriorityMedium,
		Dependencies: make(map[string]struct{}),
		MaxRetries:   3,
		CreatedAt:    time.Now(),
		Metadata:     make(map[string]any),
	}
}

// AddDependency registers a dependency, silently ignoring self-references.
func (t *Task) AddDependency(depID string) {
	if depID == "" || depID == t.ID {
		return
	}
	t.Dependencies[depID] = struct{}{}
}

// IsReady reports whether t can run given the set of completed task ids.
// A task is ready iff status = pending and every dependency is completed.
func (t *Task) IsReady(completedTaskIDs map[string]struct{}) bool {
	if t.Status != StatusPending {
		return false
	}
	for dep := range t.Dependencies {
		if _, ok := completedTaskIDs[dep]; !ok {
			return false
		}
	}
	return true
}

// Start marks the task in_progress.
func (t *Task) Start() {
	t.Status = StatusInProgress
	t.StartedAt = time.Now()
}

// Complete marks the task completed with a result.
func (t *Task) Complete(result string) {
	t.Status = StatusCompleted
	t.CompletedAt = time.Now()
	t.Result = result
	if !t.StartedAt.IsZero() {
		t.ActualDuration = t.CompletedAt.Sub(t.StartedAt)
	}
}

// Fail marks the task failed with an error message.
func (t *Task) Fail(errMsg string) {
	t.Status = StatusFailed
	t.CompletedAt = time.Now()
	t.Error = errMsg
	if !t.StartedAt.IsZero() {
		t.ActualDuration = t.CompletedAt.Sub(t.StartedAt)
	}
}
