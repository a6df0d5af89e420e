package reasoner

import "encoding/json"

// The following Schema values are the structured-output contracts for the
// Reasoner calls the engine makes: Planning, Orchestration, Execution
// synthesis, and complexity analysis. Each has a matching *Response struct
// in this file that a validated response decodes into with encoding/json;
// the stages then materialize those into taskgraph types.

// TaskPlanSchema is what the Planning stage asks the Reasoner to produce:
// an ordered list of task specs.
var TaskPlanSchema = Schema{
	Name: "task_plan",
	JSON: json.RawMessage(`{
		"type": "object",
		"properties": {
			"tasks": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"description": {"type": "string"},
						"priority": {"type": "integer", "minimum": 1, "maximum": 4},
						"tools_required": {"type": "array", "items": {"type": "string"}},
						"depends_on": {"type": "array", "items": {"type": "integer"}}
					},
					"required": ["description"]
				}
			}
		},
		"required": ["tasks"]
	}`),
}

// ToolExecutionPlanSchema is what the Orchestration stage asks the Reasoner
// to produce for one task: an ordered list of tool-execution steps.
var ToolExecutionPlanSchema = Schema{
	Name: "tool_execution_plan",
	JSON: json.RawMessage(`{
		"type": "object",
		"properties": {
			"steps": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"tool_name": {"type": "string"},
						"parameters": {"type": "object"},
						"server_id": {"type": "string"},
						"depends_on_steps": {"type": "array", "items": {"type": "integer"}},
						"on_error": {"type": "string", "enum": ["retry_once", "skip", "fallback", "abort"]},
						"reasoning": {"type": "string"}
					},
					"required": ["tool_name", "parameters"]
				}
			}
		},
		"required": ["steps"]
	}`),
}

// ExecutionResultSchema is what the Execution stage asks the Reasoner to
// produce when synthesizing a final answer from step results.
var ExecutionResultSchema = Schema{
	Name: "execution_result",
	JSON: json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {"type": "string"},
			"succeeded": {"type": "boolean"}
		},
		"required": ["summary", "succeeded"]
	}`),
}

// TaskPlanResponse is the decoded shape of a TaskPlanSchema-validated value.
type TaskPlanResponse struct {
	Tasks []TaskSpec `json:"tasks"`
}

// TaskSpec is one planned task before taskgraph.Task materialization.
type TaskSpec struct {
	Description   string `json:"description"`
	Priority      int    `json:"priority"`
	ToolsRequired []string `json:"tools_required"`
	DependsOn     []int  `json:"depends_on"`
}

// ToolExecutionPlanResponse is the decoded shape of a
// ToolExecutionPlanSchema-validated value.
type ToolExecutionPlanResponse struct {
	Steps []StepSpec `json:"steps"`
}

// StepSpec is one planned tool-execution step before taskgraph.ToolExecutionStep
// materialization.
type StepSpec struct {
	ToolName       string         `json:"tool_name"`
	Parameters     map[string]any `json:"parameters"`
	ServerID       string         `json:"server_id"`
	DependsOnSteps []int          `json:"depends_on_steps"`
	OnError        string         `json:"on_error"`
	Reasoning      string         `json:"reasoning"`
}

// ExecutionResultResponse is the decoded shape of an
// ExecutionResultSchema-validated value.
type ExecutionResultResponse struct {
	Summary   string `json:"summary"`
	Succeeded bool   `json:"succeeded"`
}

// ComplexityAnalysisSchema is what the Planning stage asks the Reasoner to
// produce for a lightweight "how hard is this query" pre-check that skips
// full plan materialization.
var ComplexityAnalysisSchema = Schema{
	Name: "complexity_analysis",
	JSON: json.RawMessage(`{
		"type": "object",
		"properties": {
			"complexity": {"type": "string", "enum": ["simple", "moderate", "complex"]},
			"estimated_steps": {"type": "integer", "minimum": 1},
			"estimated_duration_seconds": {"type": "integer", "minimum": 0},
			"required_capabilities": {"type": "array", "items": {"type": "string"}},
			"recommended_approach": {"type": "string"}
		},
		"required": ["complexity", "estimated_steps"]
	}`),
}

// ComplexityAnalysisResponse is the decoded shape of a
// ComplexityAnalysisSchema-validated value.
type ComplexityAnalysisResponse struct {
	Complexity               string   `json:"complexity"`
	EstimatedSteps           int      `json:"estimated_steps"`
	EstimatedDurationSeconds int      `json:"estimated_duration_seconds"`
	RequiredCapabilities     []string `json:"required_capabilities"`
	RecommendedApproach      string   `json:"recommended_approach"`
}
