package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
)

const synthesisSystemPrompt = `You are a task execution specialist responsible for synthesizing tool execution results into clear, user-friendly responses. Focus on being helpful and actionable while translating technical details into plain language.`

// synthesize turns raw step results into a user-facing summary and final
// output. It prefers a Reasoner call and falls back to a deterministic
// template on any failure.
func (s *Stage) synthesize(ctx context.Context, plan *taskgraph.ToolExecutionPlan, results []StepResult, completed, total int) (summary, finalOutput string) {
	if s.reasoner == nil {
		return fallbackSynthesis(completed, total, plan.TaskDescription)
	}

	prompt := synthesisPrompt(plan, results, completed, total)
	result, err := s.reasoner.Reason(ctx, synthesisSystemPrompt+"\n\n"+prompt, reasoner.ExecutionResultSchema)
	if err != nil {
		log.Printf("[execution] AI synthesis failed, using fallback: %v", err)
		return fallbackSynthesis(completed, total, plan.TaskDescription)
	}

	var resp reasoner.ExecutionResultResponse
	if err := json.Unmarshal(result.Value, &resp); err != nil {
		log.Printf("[execution] AI synthesis response malformed, using fallback: %v", err)
		return fallbackSynthesis(completed, total, plan.TaskDescription)
	}
	return resp.Summary, buildFinalOutput(resp.Summary)
}

// buildFinalOutput applies the required prefix for the workflow's
// user-facing final_result.
func buildFinalOutput(summary string) string {
	return "Here's what I accomplished for your request:\n\n" + summary
}

func synthesisPrompt(plan *taskgraph.ToolExecutionPlan, results []StepResult, completed, total int) string {
	raw, _ := json.MarshalIndent(results, "", "  ")
	return fmt.Sprintf(`Synthesize the execution results into a clear, user-friendly response:

ORIGINAL TASK: %s
EXECUTION APPROACH: %s
COMPLETION STATUS: %d/%d steps completed
SUCCESS CRITERIA: %s

EXECUTION RESULTS:
%s

Provide a "summary" of what was accomplished and a "succeeded" boolean.`,
		plan.TaskDescription, plan.Approach, completed, total, plan.SuccessCriteria, string(raw))
}

func fallbackSynthesis(completed, total int, taskDescription string) (summary, finalOutput string) {
	switch {
	case total == 0:
		summary = "No execution steps were planned."
		finalOutput = buildFinalOutput(summary)
	case completed == total:
		summary = fmt.Sprintf("Task completed successfully. All %d execution steps completed.", total)
		finalOutput = buildFinalOutput(fmt.Sprintf("Successfully completed the requested task: %s", taskDescription))
	case completed > 0:
		rate := float64(completed) / float64(total) * 100
		summary = fmt.Sprintf("Task partially completed. %d/%d steps completed (%.1f%%).", completed, total, rate)
		finalOutput = buildFinalOutput(fmt.Sprintf("Partially completed: %s (%d/%d steps succeeded)", taskDescription, completed, total))
	default:
		summary = fmt.Sprintf("Task execution failed. 0/%d steps completed.", total)
		finalOutput = buildFinalOutput(fmt.Sprintf("Unable to complete: %s", taskDescription))
	}
	return summary, finalOutput
}
