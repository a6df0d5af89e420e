// Package orchestration implements the Orchestration stage: turn one Task
// plus the tool catalog into a validated, repaired ToolExecutionPlan, and
// detect batch opportunities (adjacent same-tool steps within each plan).
package orchestration

import (
	"context"
	"encoding/json"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

var tracer = otel.Tracer("pocket-omega/orchestration")

// Stage is the Orchestration component.
type Stage struct {
	reasoner reasoner.Reasoner
	bridge   *toolbridge.Bridge
}

func New(r reasoner.Reasoner, bridge *toolbridge.Bridge) *Stage {
	return &Stage{reasoner: r, bridge: bridge}
}

// Result pairs every task's plan with whether the whole batch succeeded:
// N plans plus an aggregated success flag.
type Result struct {
	Plans   []*taskgraph.ToolExecutionPlan
	AllOK   bool
	Errors  []error // one entry per failed task, nil-padded to align with Plans by index
}

// OrchestrateTask builds a single task's execution plan.
func (s *Stage) OrchestrateTask(ctx context.Context, task *taskgraph.Task) (*taskgraph.ToolExecutionPlan, error) {
	ctx, span := tracer.Start(ctx, "orchestration.OrchestrateTask", trace.WithAttributes(
		attribute.String("orchestration.task_id", task.ID),
	))
	defer span.End()

	catalog, err := s.bridge.ListTools(ctx, false)
	if err != nil {
		log.Printf("[orchestration] tool catalog unavailable: %v", err)
	}
	recommended, _ := s.bridge.RecommendTools(ctx, task)

	prompt := buildPrompt(task, catalog, recommended, nil)
	result, err := s.reasoner.Reason(ctx, systemPrompt+"\n\n"+prompt, reasoner.ToolExecutionPlanSchema)
	if err != nil {
		wrapped := errs.OrchestrationFailed(err, "reasoner call failed for task "+task.ID)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}

	var resp reasoner.ToolExecutionPlanResponse
	if err := json.Unmarshal(result.Value, &resp); err != nil {
		wrapped := errs.OrchestrationFailed(err, "could not decode tool execution plan")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}

	plan := materialize(task, resp)
	s.enhance(plan, catalog)
	span.SetAttributes(attribute.Int("orchestration.step_count", len(plan.ExecutionSteps)))
	return plan, nil
}

// OrchestrateTaskList orchestrates every task in list independently,
// isolating one task's failure from the rest.
func (s *Stage) OrchestrateTaskList(ctx context.Context, list *taskgraph.TaskList) Result {
	plans := make([]*taskgraph.ToolExecutionPlan, len(list.Tasks))
	errors := make([]error, len(list.Tasks))
	allOK := true

	for i, task := range list.Tasks {
		plan, err := s.OrchestrateTask(ctx, task)
		if err != nil {
			errors[i] = err
			allOK = false
			continue
		}
		plans[i] = plan
	}

	return Result{Plans: plans, AllOK: allOK, Errors: errors}
}

func materialize(task *taskgraph.Task, resp reasoner.ToolExecutionPlanResponse) *taskgraph.ToolExecutionPlan {
	plan := taskgraph.NewToolExecutionPlan(task.ID, task.Description)
	for i, spec := range resp.Steps {
		step := &taskgraph.ToolExecutionStep{
			StepNumber:     i + 1,
			ToolName:       spec.ToolName,
			ServerID:       spec.ServerID,
			Parameters:     spec.Parameters,
			DependsOnSteps: spec.DependsOnSteps,
			ErrorHandling:  errorHandlingFrom(spec.OnError),
			Description:    spec.Reasoning,
		}
		plan.ExecutionSteps = append(plan.ExecutionSteps, step)
	}
	if dropped := plan.RepairCycles(); dropped > 0 {
		log.Printf("[orchestration] dropped %d forward/self dependency edges in plan for task %s", dropped, task.ID)
	}
	return plan
}

func errorHandlingFrom(s string) taskgraph.ErrorHandling {
	switch taskgraph.ErrorHandling(s) {
	case taskgraph.ErrorHandlingSkip, taskgraph.ErrorHandlingFallback, taskgraph.ErrorHandlingAbort:
		return taskgraph.ErrorHandling(s)
	default:
		return taskgraph.ErrorHandlingRetryOnce
	}
}

// enhance validates tool_name/server_id against the live catalog, correcting
// a stale or missing server_id the Reasoner got wrong.
func (s *Stage) enhance(plan *taskgraph.ToolExecutionPlan, catalog []toolbridge.AvailableToolInfo) {
	byName := make(map[string]toolbridge.AvailableToolInfo, len(catalog))
	for _, info := range catalog {
		byName[info.Name] = info
	}

	for _, step := range plan.ExecutionSteps {
		info, ok := byName[step.ToolName]
		if !ok {
			log.Printf("[orchestration] tool %q not found in available tools", step.ToolName)
			continue
		}
		if step.ServerID == "" || step.ServerID != info.ServerID {
			step.ServerID = info.ServerID
		}
	}

	plan.Metadata["validation_passed"] = true
	plan.Metadata["available_tools_count"] = len(catalog)
}

// DetectBatchOpportunities reports, for each plan, consecutive steps that
// call the same tool back to back — a hint the Execution stage or a future
// transport could collapse into one call.
func DetectBatchOpportunities(plans []*taskgraph.ToolExecutionPlan) map[string][][2]int {
	opportunities := make(map[string][][2]int)
	for _, plan := range plans {
		steps := plan.ExecutionSteps
		for i := 0; i+1 < len(steps); i++ {
			if steps[i].ToolName == steps[i+1].ToolName {
				key := plan.TaskID + ":" + steps[i].ToolName
				opportunities[key] = append(opportunities[key], [2]int{steps[i].StepNumber, steps[i+1].StepNumber})
			}
		}
	}
	return opportunities
}
