package planning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/toolbridge"
)

// maxToolsPerServerInPrompt caps how many tools of one server type are
// spelled out in the planning prompt, to keep the prompt bounded as a
// catalog grows.
const maxToolsPerServerInPrompt = 5

const systemPrompt = `You are a strategic planning specialist responsible for analyzing user queries and decomposing them into actionable task lists.

Your role:
1. ANALYZE the user query to understand intent, scope, and requirements
2. DECOMPOSE complex queries into discrete, manageable tasks
3. IDENTIFY task dependencies and execution order
4. ASSIGN appropriate priorities based on importance and urgency
5. RECOMMEND tools needed for task completion

Key principles:
- Break down complex problems into smaller, focused tasks
- Ensure tasks are specific, measurable, and actionable
- Consider dependencies between tasks and order them logically
- Identify which tools from the available servers will be needed
- Balance thoroughness with efficiency`

func buildPrompt(query string, catalog []toolbridge.AvailableToolInfo, context map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this user query and create a task execution plan:\n\n")
	fmt.Fprintf(&sb, "USER QUERY: %q\n\n", query)
	sb.WriteString(toolsSection(catalog))

	if len(context) > 0 {
		if raw, err := json.MarshalIndent(context, "", "  "); err == nil {
			fmt.Fprintf(&sb, "\nAdditional context:\n%s\n", string(raw))
		}
	}

	sb.WriteString(`
Instructions:
1. Analyze the query to understand what the user wants to accomplish
2. Break down the work into specific, actionable tasks
3. For each task, specify:
   - description: what needs to be done
   - priority: 1-4, where 4 is highest
   - depends_on: task numbers (1-based, referring to this list) this task needs completed first
   - tools_required: tool names this task is likely to need
4. Order tasks so dependencies come before dependents where possible.`)

	return sb.String()
}

func toolsSection(catalog []toolbridge.AvailableToolInfo) string {
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
	sb.WriteString("Available tools:\n")
	for _, t := range types {
		tools := byServer[toolbridge.ServerType(t)]
		fmt.Fprintf(&sb, "\n%s SERVER:\n", strings.ToUpper(t))
		shown := tools
		if len(shown) > maxToolsPerServerInPrompt {
			shown = shown[:maxToolsPerServerInPrompt]
		}
		for _, tool := range shown {
			fmt.Fprintf(&sb, "  - %s: %s\n", tool.Name, tool.Description)
		}
		if len(tools) > maxToolsPerServerInPrompt {
			fmt.Fprintf(&sb, "  ... and %d more tools\n", len(tools)-maxToolsPerServerInPrompt)
		}
	}
	return sb.String()
}
