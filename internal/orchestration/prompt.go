package orchestration

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

// maxDetailedParamsShown caps how many parameter names are spelled out per
// tool in the orchestration prompt, generalized to any schema instead of a
// hardcoded per-server list.
const maxDetailedParamsShown = 3

const systemPrompt = `You are a tool orchestration specialist responsible for designing optimal tool execution workflows.

Your role:
1. ANALYZE the task to understand its requirements and objectives
2. SELECT the most appropriate tools from available servers
3. DESIGN an efficient, ordered execution sequence
4. MAP parameters between tools and handle data transformations
5. PLAN error handling for each step (retry_once, skip, fallback, or abort)

CRITICAL:
- Specify ALL required parameters for every tool call with realistic values, not placeholders.
- Use exact server ids exactly as listed in the tool catalog below.
- depends_on_steps entries must refer to step numbers earlier in this same plan.`

func buildPrompt(task *taskgraph.Task, catalog []toolbridge.AvailableToolInfo, recommended []string, context map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Design a tool execution plan for this task:\n\n")
	fmt.Fprintf(&sb, "TASK: %s\n", task.Description)
	if len(task.ToolsRequired) > 0 {
		fmt.Fprintf(&sb, "Tool hints from planning: %s\n", strings.Join(task.ToolsRequired, ", "))
	}
	if len(recommended) > 0 {
		fmt.Fprintf(&sb, "Recommended tools: %s\n", strings.Join(recommended, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(detailedToolsSection(catalog))

	if len(context) > 0 {
		if raw, err := json.MarshalIndent(context, "", "  "); err == nil {
			fmt.Fprintf(&sb, "\nAdditional context:\n%s\n", string(raw))
		}
	}

	sb.WriteString(`
Produce an ordered list of steps. Each step needs: tool_name, parameters (complete and
realistic), server_id, depends_on_steps, and on_error.`)
	return sb.String()
}

func detailedToolsSection(catalog []toolbridge.AvailableToolInfo) string {
	byServer := make(map[toolbridge.ServerType][]toolbridge.AvailableToolInfo)
	for _, info := range catalog {
		byServer[info.ServerType] = append(byServer[info.ServerType], info)
	}
	types := make([]string, 0, len(byServer))
	for t := range byServer {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var sb strings.Builder
	sb.WriteString("Available tools (server_id in brackets):\n")
	for _, t := range types {
		tools := byServer[toolbridge.ServerType(t)]
		fmt.Fprintf(&sb, "\n%s (%d tools):\n", strings.ToUpper(t), len(tools))
		for _, tool := range tools {
			fmt.Fprintf(&sb, "  - %s [%s]: %s (requires: %s)\n",
				tool.Name, tool.ServerID, tool.Description, requiredParamNames(tool.Parameters))
		}
	}
	return sb.String()
}

func requiredParamNames(schema json.RawMessage) string {
	var doc struct {
		Required []string `json:"required"`
	}
	if len(schema) == 0 {
		return "none"
	}
	if err := json.Unmarshal(schema, &doc); err != nil || len(doc.Required) == 0 {
		return "none"
	}
	shown := doc.Required
	if len(shown) > maxDetailedParamsShown {
		shown = shown[:maxDetailedParamsShown]
	}
	return strings.Join(shown, ", ")
}
