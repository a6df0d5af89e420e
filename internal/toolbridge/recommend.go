package toolbridge

import "strings"

// toolKeywords maps a server_type to keyword hits scanned against a task's
// description.
var toolKeywords = map[ServerType][]string{
	ServerTypeFilesystem: {"file", "read", "write", "directory", "path", "save", "load", "create"},
	ServerTypeGit:        {"git", "commit", "branch", "diff", "log", "status", "history", "version"},
	ServerTypeCodebase:   {"code", "function", "class", "analyze", "structure", "definition", "reference"},
	ServerTypeDevtools:   {"test", "lint", "format", "build", "install", "run", "check", "validate"},
	ServerTypeExa:        {"search", "web", "internet", "online", "crawl", "url", "website", "information"},
	ServerTypeContext7:   {"docs", "documentation", "library", "api reference"},
}

// RecommendTools returns the union of keyword hits against taskDescription
// and the task's explicit tools_required hints.
func RecommendTools(catalog []AvailableToolInfo, taskDescription string, toolsRequired []string) []string {
	desc := strings.ToLower(taskDescription)
	seen := make(map[string]struct{})
	var out []string

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}

	for _, info := range catalog {
		for _, kw := range toolKeywords[info.ServerType] {
			if strings.Contains(desc, kw) {
				add(info.Name)
				break
			}
		}
	}
	for _, name := range toolsRequired {
		add(name)
	}
	return out
}
