package taskgraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentRole identifies which stage produced a ReasoningStep.
type AgentRole string

const (
	RolePlanning     AgentRole = "planning"
	RoleOrchestrator AgentRole = "orchestrator"
	RoleExecution    AgentRole = "execution"
)

// ToolCallRecord is a minimal audit trail entry attached to a ReasoningStep.
type ToolCallRecord struct {
	ToolName string
	Success  bool
	Duration time.Duration
}

// ReasoningStep is one stage's contribution to a ReasoningChain.
type ReasoningStep struct {
	StepNumber            int
	Title                 string
	AgentRole             AgentRole
	Description           string
	InputData             map[string]any
	OutputData            map[string]any
	Status                Status
	ExecutionTimeSeconds  float64
	Error                 string
	ToolCalls             []ToolCallRecord
	Timestamp             time.Time
}

// ReasoningChain is the end-to-end record of one query.
type ReasoningChain struct {
	ID                        string
	OriginalQuery             string
	TaskList                  *TaskList
	ReasoningSteps            []*ReasoningStep
	IntermediateResults       map[string]any
	FinalResult               string
	Status                    Status
	CurrentStep               int
	TotalExecutionTimeSeconds float64
	TotalTokenUsage           map[string]int
	TotalToolCalls            int
	CreatedAt                 time.Time
	StartedAt                 time.Time
	CompletedAt               time.Time
	Metadata                  map[string]any

	terminal bool // guards idempotent Complete/Fail
}

// NewReasoningChain creates a pending chain wrapping the given query and task list.
func NewReasoningChain(query string, taskList *TaskList) *ReasoningChain {
	return &ReasoningChain{
		ID:                  uuid.NewString(),
		OriginalQuery:       query,
		TaskList:            taskList,
		IntermediateResults: make(map[string]any),
		Status:              StatusPending,
		TotalTokenUsage:     make(map[string]int),
		CreatedAt:           time.Now(),
		Metadata:            make(map[string]any),
	}
}

// Start transitions the chain (and its task list) to in_progress.
func (rc *ReasoningChain) Start() {
	rc.Status = StatusInProgress
	rc.StartedAt = time.Now()
	rc.TaskList.Status = StatusInProgress
	rc.TaskList.StartedAt = rc.StartedAt
}

// Complete performs the chain's one terminal transition to completed.
// A second call (on an already-terminal chain) is a no-op.
func (rc *ReasoningChain) Complete(finalResult string) {
	if rc.terminal {
		return
	}
	rc.terminal = true
	rc.Status = StatusCompleted
	rc.CompletedAt = time.Now()
	rc.FinalResult = finalResult
	rc.TaskList.Status = StatusCompleted
	rc.TaskList.CompletedAt = rc.CompletedAt
	if !rc.StartedAt.IsZero() {
		rc.TotalExecutionTimeSeconds = rc.CompletedAt.Sub(rc.StartedAt).Seconds()
	}
}

// Fail performs the chain's one terminal transition to failed.
func (rc *ReasoningChain) Fail(errMsg string) {
	if rc.terminal {
		return
	}
	rc.terminal = true
	rc.Status = StatusFailed
	rc.CompletedAt = time.Now()
	rc.TaskList.Status = StatusFailed
	rc.TaskList.CompletedAt = rc.CompletedAt
	if !rc.StartedAt.IsZero() {
		rc.TotalExecutionTimeSeconds = rc.CompletedAt.Sub(rc.StartedAt).Seconds()
	}
	if rc.CurrentStep < len(rc.ReasoningSteps) {
		rc.ReasoningSteps[rc.CurrentStep].Error = errMsg
		rc.ReasoningSteps[rc.CurrentStep].Status = StatusFailed
	}
}

// IsTerminal reports whether Complete or Fail has already run once.
func (rc *ReasoningChain) IsTerminal() bool { return rc.terminal }

// AddReasoningStep appends a step, stamping its 1-based step number.
func (rc *ReasoningChain) AddReasoningStep(step *ReasoningStep) {
	step.StepNumber = len(rc.ReasoningSteps) + 1
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	rc.ReasoningSteps = append(rc.ReasoningSteps, step)
}

// CurrentReasoningStep returns the step at CurrentStep, if any.
func (rc *ReasoningChain) CurrentReasoningStep() (*ReasoningStep, bool) {
	if rc.CurrentStep >= 0 && rc.CurrentStep < len(rc.ReasoningSteps) {
		return rc.ReasoningSteps[rc.CurrentStep], true
	}
	return nil, false
}

// AdvanceStep moves CurrentStep forward; reports false at the last step.
func (rc *ReasoningChain) AdvanceStep() bool {
	if rc.CurrentStep < len(rc.ReasoningSteps)-1 {
		rc.CurrentStep++
		return true
	}
	return false
}

// ProgressSummary builds the progress snapshot used to populate
// agent_progress events.
func (rc *ReasoningChain) ProgressSummary() map[string]any {
	return map[string]any{
		"reasoning_chain_id": rc.ID,
		"status":             rc.Status,
		"current_step":       rc.CurrentStep + 1,
		"total_steps":        len(rc.ReasoningSteps),
		"task_progress":      rc.TaskList.ProgressPercentage(),
		"completed_tasks":    len(rc.TaskList.CompletedTaskIDs),
		"total_tasks":        len(rc.TaskList.Tasks),
		"execution_time":     rc.TotalExecutionTimeSeconds,
		"has_failures":       rc.TaskList.HasFailures(),
	}
}

// String renders a compact summary, useful in logs.
func (rc *ReasoningChain) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chain %s [%s] %d/%d tasks", rc.ID, rc.Status, len(rc.TaskList.CompletedTaskIDs), len(rc.TaskList.Tasks))
	return b.String()
}
