// Package execution implements the Execution stage: run a
// ToolExecutionPlan step by step, resolve late-bound parameters, apply
// per-step recovery policy, and synthesize a final result.
package execution

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

var tracer = otel.Tracer("pocket-omega/execution")

// StepResult is one step's outcome, appended to Result.StepResults in
// execution order, append-only.
type StepResult struct {
	StepNumber    int
	ToolName      string
	Success       bool
	Result        string
	Error         string
	Parameters    map[string]any
	ExecutionTime time.Duration
}

// Result is the Execution stage's output for one plan.
type Result struct {
	TaskID               string
	Success              bool
	CompletedSteps       int
	TotalSteps           int
	ExecutionSummary     string
	FinalOutput          string
	StepResults          []StepResult
	ErrorsEncountered    []string
	ToolCallsMade        int
	RecoveryActionsTaken []string
	ExecutionTime        time.Duration
}

// Stage is the Execution component.
type Stage struct {
	bridge   *toolbridge.Bridge
	reasoner reasoner.Reasoner // optional; nil falls back to deterministic synthesis
}

func New(bridge *toolbridge.Bridge, r reasoner.Reasoner) *Stage {
	return &Stage{bridge: bridge, reasoner: r}
}

// Execute runs plan step by step against context (initial execution_context
// values, e.g. carried over from a prior task in the same chain).
func (s *Stage) Execute(ctx context.Context, plan *taskgraph.ToolExecutionPlan, initialContext map[string]any) Result {
	ctx, span := tracer.Start(ctx, "execution.Execute", trace.WithAttributes(
		attribute.String("execution.task_id", plan.TaskID),
		attribute.Int("execution.step_count", len(plan.ExecutionSteps)),
	))
	defer span.End()

	start := time.Now()

	execContext := make(map[string]any, len(initialContext))
	for k, v := range initialContext {
		execContext[k] = v
	}

	var stepResults []StepResult
	var errorsEncountered []string
	var recoveryActions []string
	completedSteps := 0
	toolCallsMade := 0
	total := len(plan.ExecutionSteps)

	for _, step := range plan.ExecutionSteps {
		if err := ctx.Err(); err != nil {
			errorsEncountered = append(errorsEncountered, errs.Cancelled().Error())
			break
		}

		if !dependenciesSatisfied(step, stepResults) {
			msg := errs.DependencyUnsatisfied(step.StepNumber, firstUnsatisfiedDep(step, stepResults)).Error()
			log.Printf("[execution] %s", msg)
			errorsEncountered = append(errorsEncountered, msg)
			continue
		}

		result := s.runStep(ctx, step, execContext)
		toolCallsMade++
		stepResults = append(stepResults, result)
		recordContext(execContext, result)

		if result.Success {
			completedSteps++
			continue
		}

		errorsEncountered = append(errorsEncountered, fmt.Sprintf("step %d failed: %s", step.StepNumber, result.Error))

		action, recovered := s.attemptRecovery(ctx, step, execContext, &stepResults)
		recoveryActions = append(recoveryActions, action)
		if recovered {
			completedSteps++
		}
		if step.ErrorHandling == taskgraph.ErrorHandlingAbort {
			log.Printf("[execution] aborting plan for task %s after step %d (on_error=abort)", plan.TaskID, step.StepNumber)
			break
		}
	}

	summary, finalOutput := s.synthesize(ctx, plan, stepResults, completedSteps, total)

	span.SetAttributes(
		attribute.Int("execution.completed_steps", completedSteps),
		attribute.Int("execution.tool_calls_made", toolCallsMade),
	)
	if completedSteps != total {
		span.SetStatus(codes.Error, "plan did not complete all steps")
	}

	return Result{
		TaskID:               plan.TaskID,
		Success:              completedSteps == total,
		CompletedSteps:       completedSteps,
		TotalSteps:           total,
		ExecutionSummary:     summary,
		FinalOutput:          finalOutput,
		StepResults:          stepResults,
		ErrorsEncountered:    errorsEncountered,
		ToolCallsMade:        toolCallsMade,
		RecoveryActionsTaken: recoveryActions,
		ExecutionTime:        time.Since(start),
	}
}

func recordContext(execContext map[string]any, result StepResult) {
	execContext[fmt.Sprintf("step_%d_result", result.StepNumber)] = result.Result
}

func dependenciesSatisfied(step *taskgraph.ToolExecutionStep, results []StepResult) bool {
	if len(step.DependsOnSteps) == 0 {
		return true
	}
	byNumber := make(map[int]bool, len(results))
	for _, r := range results {
		byNumber[r.StepNumber] = r.Success
	}
	for _, dep := range step.DependsOnSteps {
		if !byNumber[dep] {
			return false
		}
	}
	return true
}

func firstUnsatisfiedDep(step *taskgraph.ToolExecutionStep, results []StepResult) int {
	byNumber := make(map[int]bool, len(results))
	for _, r := range results {
		byNumber[r.StepNumber] = r.Success
	}
	for _, dep := range step.DependsOnSteps {
		if !byNumber[dep] {
			return dep
		}
	}
	return 0
}

// runStep resolves late-bound parameters and dispatches through the Bridge.
func (s *Stage) runStep(ctx context.Context, step *taskgraph.ToolExecutionStep, execContext map[string]any) StepResult {
	start := time.Now()
	resolved := resolveParameters(step.Parameters, execContext)

	res := s.bridge.Execute(ctx, step.ToolName, resolved, step.ServerID)
	elapsed := time.Since(start)

	return StepResult{
		StepNumber:    step.StepNumber,
		ToolName:      step.ToolName,
		Success:       res.OK,
		Result:        res.Value,
		Error:         res.Error,
		Parameters:    resolved,
		ExecutionTime: elapsed,
	}
}

// attemptRecovery applies step.ErrorHandling after a failed attempt.
// retry_once replaces the just-appended failing StepResult in place with
// the retry's outcome; skip/fallback/abort/unknown all leave the failure
// recorded and only differ in the narrative action string returned (abort
// additionally stops the caller's loop; see Execute).
func (s *Stage) attemptRecovery(ctx context.Context, step *taskgraph.ToolExecutionStep, execContext map[string]any, results *[]StepResult) (action string, recovered bool) {
	switch step.ErrorHandling {
	case taskgraph.ErrorHandlingRetryOnce:
		retry := s.runStep(ctx, step, execContext)
		(*results)[len(*results)-1] = retry
		recordContext(execContext, retry)
		if retry.Success {
			return fmt.Sprintf("SUCCESS: retry of step %d succeeded", step.StepNumber), true
		}
		return fmt.Sprintf("FAILED: retry of step %d failed", step.StepNumber), false

	case taskgraph.ErrorHandlingSkip:
		return fmt.Sprintf("SKIPPED: step %d skipped due to failure", step.StepNumber), false

	case taskgraph.ErrorHandlingFallback:
		// Reserved: fallback tool selection is unimplemented; only the
		// narrative action is recorded.
		return fmt.Sprintf("FALLBACK: step %d needs fallback implementation", step.StepNumber), false

	case taskgraph.ErrorHandlingAbort:
		return fmt.Sprintf("ABORTED: plan stopped at step %d", step.StepNumber), false

	default:
		return fmt.Sprintf("NO_RECOVERY: no recovery action for step %d", step.StepNumber), false
	}
}

// resolveParameters substitutes "${key}" references against execContext,
// falling back to the literal value when no reference resolves.
// execContext holds the caller's initial context keys plus the
// "step_<N>_result" entries that recordContext adds, so one lookup covers
// both forms.
func resolveParameters(params map[string]any, execContext map[string]any) map[string]any {
	resolved := make(map[string]any, len(params))
	for key, value := range params {
		str, ok := value.(string)
		if !ok || !strings.HasPrefix(str, "${") || !strings.HasSuffix(str, "}") {
			resolved[key] = value
			continue
		}
		ref := strings.TrimSuffix(strings.TrimPrefix(str, "${"), "}")
		if v, ok := execContext[ref]; ok {
			resolved[key] = v
			continue
		}
		resolved[key] = value
	}
	return resolved
}
