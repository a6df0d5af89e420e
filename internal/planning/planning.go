// Package planning implements the Planning stage: turn a user query plus
// the current tool catalog into an ordered TaskList.
package planning

import (
	"context"
	"encoding/json"
	"fmt"
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

var tracer = otel.Tracer("pocket-omega/planning")

// Stage is the Planning component. It depends only on a Reasoner and the
// Tool Bridge's read-only catalog; planning never mutates the tool cache.
type Stage struct {
	reasoner reasoner.Reasoner
	bridge   *toolbridge.Bridge
}

func New(r reasoner.Reasoner, bridge *toolbridge.Bridge) *Stage {
	return &Stage{reasoner: r, bridge: bridge}
}

// Plan analyzes query and returns a materialized, dependency-ordered
// TaskList. Context is caller-supplied auxiliary data (prior turns, session
// metadata) folded into the prompt verbatim.
func (s *Stage) Plan(ctx context.Context, query string, extraContext map[string]any) (*taskgraph.TaskList, error) {
	ctx, span := tracer.Start(ctx, "planning.Plan", trace.WithAttributes(
		attribute.Int("planning.query_length", len(query)),
	))
	defer span.End()

	catalog, err := s.bridge.ListTools(ctx, false)
	if err != nil {
		log.Printf("[planning] tool catalog unavailable, planning without tool context: %v", err)
	}

	prompt := buildPrompt(query, catalog, extraContext)

	result, err := s.reasoner.Reason(ctx, systemPrompt+"\n\n"+prompt, reasoner.TaskPlanSchema)
	if err != nil {
		wrapped := errs.PlanningFailed(err, "reasoner call failed")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}

	var resp reasoner.TaskPlanResponse
	if err := json.Unmarshal(result.Value, &resp); err != nil {
		wrapped := errs.PlanningFailed(err, "could not decode task plan")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}
	if len(resp.Tasks) == 0 {
		wrapped := errs.PlanningFailed(nil, "reasoner returned an empty task plan")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}

	list := materialize(resp, query)
	span.SetAttributes(attribute.Int("planning.task_count", len(list.Tasks)))
	return list, nil
}

// complexityPrompt asks the Reasoner for a quick complexity read without
// running the full planning prompt, which uses a short, separate prompt
// rather than the full prompt builder.
const complexityPrompt = `Quickly analyze this query and assess its complexity:

Query: %q

Provide a brief analysis of:
1. Complexity level (simple/moderate/complex)
2. Main categories of work required (as required_capabilities)
3. Estimated number of steps needed
4. A recommended approach

Keep the response concise and focused.`

// AnalyzeComplexity produces a lightweight complexity read for query
// without materializing a full TaskList.
func (s *Stage) AnalyzeComplexity(ctx context.Context, query string) (reasoner.ComplexityAnalysisResponse, error) {
	prompt := fmt.Sprintf(complexityPrompt, query)
	result, err := s.reasoner.Reason(ctx, prompt, reasoner.ComplexityAnalysisSchema)
	if err != nil {
		return reasoner.ComplexityAnalysisResponse{}, errs.PlanningFailed(err, "complexity analysis reasoner call failed")
	}
	var resp reasoner.ComplexityAnalysisResponse
	if err := json.Unmarshal(result.Value, &resp); err != nil {
		return reasoner.ComplexityAnalysisResponse{}, errs.PlanningFailed(err, "could not decode complexity analysis")
	}
	return resp, nil
}

// materialize converts 1-based task-number specs into a TaskList with real
// ids and resolved dependencies, dropping (and logging) any dependency that
// references a task number outside the plan. Uses a two-pass approach:
// create every task first, then resolve numeric dependency references
// against the number->id map built in the first pass.
func materialize(resp reasoner.TaskPlanResponse, query string) *taskgraph.TaskList {
	name := query
	if len(name) > 50 {
		name = name[:50] + "..."
	}
	list := taskgraph.NewTaskList("Plan for: " + name)
	list.Metadata["original_query"] = query

	idByNumber := make(map[int]string, len(resp.Tasks))
	for i, spec := range resp.Tasks {
		title := fmt.Sprintf("Task %d", i+1)
		task := taskgraph.NewTask(title, spec.Description)
		task.Priority = priorityFromInt(spec.Priority)
		task.ToolsRequired = spec.ToolsRequired
		task.Metadata["task_number"] = i + 1
		list.AddTask(task)
		idByNumber[i+1] = task.ID
	}

	for i, spec := range resp.Tasks {
		task := list.Tasks[i]
		for _, depNumber := range spec.DependsOn {
			depID, ok := idByNumber[depNumber]
			if !ok {
				log.Printf("[planning] task %d references non-existent dependency task %d", i+1, depNumber)
				continue
			}
			task.AddDependency(depID)
		}
	}

	list.ExecutionOrder = taskgraph.ComputeExecutionOrder(list.Tasks)
	list.Complexity = estimateComplexity(len(list.Tasks))
	return list
}

func priorityFromInt(n int) taskgraph.Priority {
	switch n {
	case 1:
		return taskgraph.PriorityLow
	case 3:
		return taskgraph.PriorityHigh
	case 4:
		return taskgraph.PriorityCritical
	default:
		return taskgraph.PriorityMedium
	}
}

func estimateComplexity(taskCount int) string {
	switch {
	case taskCount <= 1:
		return "simple"
	case taskCount <= 4:
		return "moderate"
	default:
		return "complex"
	}
}
