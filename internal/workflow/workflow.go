// Package workflow implements the Workflow Executor: sequence Planning →
// Orchestration → Execution as a single reasoning chain, owning timing,
// progress anchors, and failure propagation.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/execution"
	"github.com/pocketomega/pocket-omega/internal/orchestration"
	"github.com/pocketomega/pocket-omega/internal/planning"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
)

var tracer = otel.Tracer("pocket-omega/workflow")

// ProgressSink receives progress events as the chain advances. Injected at
// construction rather than late-bound: the executor must never reach for
// a collaborator it wasn't handed.
type ProgressSink interface {
	Emit(eventType string, payload map[string]any)
}

// NoopSink discards every event. Used when the caller doesn't need progress
// streaming (e.g. tests, or a synchronous executeTool-only caller).
type NoopSink struct{}

func (NoopSink) Emit(string, map[string]any) {}

// Executor owns the three-stage pipeline. At most one chain may be active
// at a time; re-entry is rejected.
type Executor struct {
	planning      *planning.Stage
	orchestration *orchestration.Stage
	execution     *execution.Stage

	mu     sync.Mutex
	active bool
}

func New(p *planning.Stage, o *orchestration.Stage, e *execution.Stage) *Executor {
	return &Executor{planning: p, orchestration: o, execution: e}
}

// Run drives one query end to end, emitting progress through sink and
// returning the completed-or-failed ReasoningChain. A failed or cancelled
// run returns the failed chain together with the stage's error; re-entry
// is rejected with a nil chain before any chain is created.
func (ex *Executor) Run(ctx context.Context, sessionID, query string, extraContext map[string]any, sink ProgressSink) (*taskgraph.ReasoningChain, error) {
	ctx, span := tracer.Start(ctx, "workflow.Run", trace.WithAttributes(
		attribute.String("workflow.session_id", sessionID),
	))
	defer span.End()

	if sink == nil {
		sink = NoopSink{}
	}

	ex.mu.Lock()
	if ex.active {
		ex.mu.Unlock()
		return nil, errs.Reentry()
	}
	ex.active = true
	ex.mu.Unlock()
	defer func() {
		ex.mu.Lock()
		ex.active = false
		ex.mu.Unlock()
	}()

	start := time.Now()
	sink.Emit("agent_query_started", map[string]any{"session_id": sessionID, "query": query})

	taskList := taskgraph.NewTaskList(query)
	chain := taskgraph.NewReasoningChain(query, taskList)
	chain.Start()
	emitProgress(sink, sessionID, chain, taskgraph.RolePlanning, 0, "", start)

	planStep := &taskgraph.ReasoningStep{Title: "Planning", AgentRole: taskgraph.RolePlanning, Status: taskgraph.StatusInProgress}
	chain.AddReasoningStep(planStep)

	plannedList, err := ex.planning.Plan(ctx, query, extraContext)
	if err != nil {
		return ex.abortChain(ctx, sink, sessionID, chain, planStep, err, span)
	}
	planStep.Status = taskgraph.StatusCompleted
	chain.TaskList = plannedList
	plannedList.ExecutionOrder = taskgraph.ComputeExecutionOrder(plannedList.Tasks)

	emitProgress(sink, sessionID, chain, taskgraph.RoleOrchestrator, 10, "", start)

	orchStep := &taskgraph.ReasoningStep{Title: "Orchestration", AgentRole: taskgraph.RoleOrchestrator, Status: taskgraph.StatusInProgress}
	chain.AddReasoningStep(orchStep)
	chain.AdvanceStep()

	if err := ctx.Err(); err != nil {
		return ex.cancelChain(sink, sessionID, chain, orchStep, span)
	}

	orchResult := ex.orchestration.OrchestrateTaskList(ctx, plannedList)
	viablePlans := make([]*taskgraph.ToolExecutionPlan, 0, len(orchResult.Plans))
	for _, plan := range orchResult.Plans {
		if plan != nil {
			viablePlans = append(viablePlans, plan)
		}
	}
	if len(viablePlans) == 0 {
		cause := errs.OrchestrationFailed(firstErr(orchResult.Errors), "no task produced a viable execution plan")
		return ex.abortChain(ctx, sink, sessionID, chain, orchStep, cause, span)
	}
	orchStep.Status = taskgraph.StatusCompleted

	emitProgress(sink, sessionID, chain, taskgraph.RoleExecution, 30, "", start)

	execStep := &taskgraph.ReasoningStep{Title: "Execution", AgentRole: taskgraph.RoleExecution, Status: taskgraph.StatusInProgress}
	chain.AddReasoningStep(execStep)
	chain.AdvanceStep()

	results := make([]execution.Result, 0, len(viablePlans))
	for i, plan := range viablePlans {
		if err := ctx.Err(); err != nil {
			return ex.cancelChain(sink, sessionID, chain, execStep, span)
		}

		sink.Emit("agent_progress", map[string]any{
			"session_id": sessionID, "agent_role": string(taskgraph.RoleExecution),
			"current_task": plan.TaskDescription, "elapsed_seconds": time.Since(start).Seconds(),
			"progress_percentage": executionProgress(i, len(viablePlans)),
		})

		res := ex.execution.Execute(ctx, plan, chain.IntermediateResults)
		results = append(results, res)
		chain.IntermediateResults[plan.TaskID] = res.FinalOutput
		chain.TotalToolCalls += res.ToolCallsMade
		if res.Success {
			plannedList.MarkTaskCompleted(plan.TaskID)
		} else {
			plannedList.MarkTaskFailed(plan.TaskID)
		}
	}
	execStep.Status = taskgraph.StatusCompleted

	finalResult := synthesizeChainResult(results)
	chain.Complete(finalResult)
	chain.AdvanceStep()

	emitProgress(sink, sessionID, chain, taskgraph.RoleExecution, 100, "", start)
	sink.Emit("agent_query_completed", map[string]any{
		"session_id": sessionID, "success": !plannedList.HasFailures(),
		"final_result": finalResult, "total_tasks": len(plannedList.Tasks),
		"completed_tasks": len(plannedList.CompletedTaskIDs),
	})

	return chain, nil
}

// abortChain stamps the failing step, fails the chain with the stage's
// error message, and emits a terminal agent_error event.
func (ex *Executor) abortChain(ctx context.Context, sink ProgressSink, sessionID string, chain *taskgraph.ReasoningChain, step *taskgraph.ReasoningStep, cause error, span trace.Span) (*taskgraph.ReasoningChain, error) {
	step.Status = taskgraph.StatusFailed
	step.Error = cause.Error()
	chain.Fail(cause.Error())
	sink.Emit("agent_error", map[string]any{"session_id": sessionID, "error": cause.Error()})
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	return chain, cause
}

// cancelChain handles cooperative cancellation observed at a stage
// boundary.
func (ex *Executor) cancelChain(sink ProgressSink, sessionID string, chain *taskgraph.ReasoningChain, step *taskgraph.ReasoningStep, span trace.Span) (*taskgraph.ReasoningChain, error) {
	cause := errs.Cancelled()
	step.Status = taskgraph.StatusFailed
	step.Error = cause.Error()
	chain.Fail(cause.Error())
	sink.Emit("agent_error", map[string]any{"session_id": sessionID, "error": cause.Error()})
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	return chain, cause
}

func firstErr(errList []error) error {
	if len(errList) == 0 {
		return nil
	}
	return errList[0]
}

// executionProgress maps "plan i of n completed" onto the 50-90 execution
// band, proportional to plans completed so far.
func executionProgress(completedPlans, totalPlans int) int {
	if totalPlans == 0 {
		return 90
	}
	span := 90 - 50
	return 50 + (completedPlans*span)/totalPlans
}

func emitProgress(sink ProgressSink, sessionID string, chain *taskgraph.ReasoningChain, role taskgraph.AgentRole, pct int, currentTask string, start time.Time) {
	sink.Emit("agent_progress", map[string]any{
		"session_id": sessionID, "agent_role": string(role),
		"progress_percentage": pct, "current_task": currentTask,
		"elapsed_seconds": time.Since(start).Seconds(),
		"reasoning_chain_id": chain.ID,
	})
}

// synthesizeChainResult concatenates every plan's final_output with clear
// separators. A plan that produced no output (failed before synthesis ran)
// is skipped; if none did, a neutral completion message stands in.
func synthesizeChainResult(results []execution.Result) string {
	var parts []string
	for _, r := range results {
		if r.FinalOutput != "" {
			parts = append(parts, strings.TrimPrefix(r.FinalOutput, "Here's what I accomplished for your request:\n\n"))
		}
	}
	if len(parts) == 0 {
		return "Here's what I accomplished for your request:\n\nThe workflow completed with no task output to report."
	}
	return fmt.Sprintf("Here's what I accomplished for your request:\n\n%s", strings.Join(parts, "\n\n---\n\n"))
}
