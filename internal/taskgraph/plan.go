package taskgraph

// ErrorHandling is the per-step recovery policy.
type ErrorHandling string

const (
	ErrorHandlingRetryOnce ErrorHandling = "retry_once"
	ErrorHandlingSkip      ErrorHandling = "skip"
	ErrorHandlingFallback  ErrorHandling = "fallback"
	ErrorHandlingAbort     ErrorHandling = "abort"
)

// ToolExecutionStep is one tool invocation within a ToolExecutionPlan.
type ToolExecutionStep struct {
	StepNumber      int // 1-based, unique within the plan
	ToolName        string
	ServerID        string
	Parameters      map[string]any // values may be "${step_<N>_result}" references
	DependsOnSteps  []int          // must each be < StepNumber
	ErrorHandling   ErrorHandling
	ExpectedOutput  string
	Description     string
}

// ToolExecutionPlan is Orchestration's per-task output.
type ToolExecutionPlan struct {
	TaskID                   string
	TaskDescription          string
	Approach                 string
	SuccessCriteria          string
	FallbackStrategy         string
	ExecutionSteps           []*ToolExecutionStep
	EstimatedDurationSeconds int
	RiskAssessment           string
	Metadata                 map[string]any
}

// NewToolExecutionPlan creates an empty plan for the given task.
func NewToolExecutionPlan(taskID, taskDescription string) *ToolExecutionPlan {
	return &ToolExecutionPlan{
		TaskID:          taskID,
		TaskDescription: taskDescription,
		Metadata:        make(map[string]any),
	}
}

// StepByNumber looks up a step by its 1-based step number.
func (p *ToolExecutionPlan) StepByNumber(n int) (*ToolExecutionStep, bool) {
	for _, s := range p.ExecutionSteps {
		if s.StepNumber == n {
			return s, true
		}
	}
	return nil, false
}

// RepairCycles drops any DependsOnSteps entry that does not refer to a
// strictly lower step_number, which both prevents cycles within the plan
// and enforces the invariant that every dependency points backward.
func (p *ToolExecutionPlan) RepairCycles() (droppedEdges int) {
	for _, step := range p.ExecutionSteps {
		var kept []int
		for _, dep := range step.DependsOnSteps {
			if dep < step.StepNumber {
				kept = append(kept, dep)
			} else {
				droppedEdges++
			}
		}
		step.DependsOnSteps = kept
	}
	return droppedEdges
}
