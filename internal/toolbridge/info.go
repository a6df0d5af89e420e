package toolbridge

import (
	"encoding/json"
	"strings"
)

// ServerType is a coarse routing/prompt-construction hint, never a
// correctness signal.
type ServerType string

const (
	ServerTypeFilesystem ServerType = "filesystem"
	ServerTypeGit        ServerType = "git"
	ServerTypeCodebase   ServerType = "codebase"
	ServerTypeDevtools   ServerType = "devtools"
	ServerTypeExa        ServerType = "exa"
	ServerTypeContext7   ServerType = "context7"
	ServerTypeUnknown    ServerType = "unknown"
)

// serverTypeSubstrings is scanned in order; the first substring match wins.
var serverTypeSubstrings = []struct {
	substr string
	typ    ServerType
}{
	{"filesystem", ServerTypeFilesystem},
	{"git", ServerTypeGit},
	{"codebase", ServerTypeCodebase},
	{"devtools", ServerTypeDevtools},
	{"exa", ServerTypeExa},
	{"context7", ServerTypeContext7},
}

func inferServerType(serverID string) ServerType {
	lower := strings.ToLower(serverID)
	for _, m := range serverTypeSubstrings {
		if strings.Contains(lower, m.substr) {
			return m.typ
		}
	}
	return ServerTypeUnknown
}

// AvailableToolInfo is the unified, cacheable shape a caller of listTools
// sees.
type AvailableToolInfo struct {
	Name        string
	ServerID    string
	ServerType  ServerType
	Description string
	Parameters  json.RawMessage // JSON Schema object
}
