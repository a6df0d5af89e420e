package toolbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// fakeDescriptor is a minimal in-memory ToolDescriptor for tests.
type fakeDescriptor struct {
	name     string
	desc     string
	serverID string
	schema   json.RawMessage
	invoke   func(ctx context.Context, params map[string]any) (string, error)
}

func (f *fakeDescriptor) Name() string                     { return f.name }
func (f *fakeDescriptor) Description() string               { return f.desc }
func (f *fakeDescriptor) ServerID() string                   { return f.serverID }
func (f *fakeDescriptor) ParametersSchema() json.RawMessage { return f.schema }
func (f *fakeDescriptor) Invoke(ctx context.Context, params map[string]any) (string, error) {
	if f.invoke != nil {
		return f.invoke(ctx, params)
	}
	return "ok", nil
}

// fakeTransport reports one connected server with a fixed set of tools.
type fakeTransport struct {
	serverID string
	tools    []ToolDescriptor
}

func (t *fakeTransport) Name() string { return "fake" }
func (t *fakeTransport) ListServers(ctx context.Context) (map[string]ServerStatus, error) {
	return map[string]ServerStatus{t.serverID: ServerConnected}, nil
}
func (t *fakeTransport) ListTools(ctx context.Context, serverID string) ([]ToolDescriptor, error) {
	if serverID != t.serverID {
		return nil, nil
	}
	return t.tools, nil
}

func writeFileSchema() json.RawMessage {
	return json.RawMessage(`{
		"type":"object",
		"properties": {
			"path": {"type":"string","description":"destination path"},
			"content": {"type":"string","description":"file content"}
		},
		"required": ["path","content"]
	}`)
}

func TestBridge_ListToolsAndValidate(t *testing.T) {
	transport := &fakeTransport{
		serverID: "filesystem-mcp",
		tools: []ToolDescriptor{
			&fakeDescriptor{name: "write_file", desc: "writes a file", serverID: "filesystem-mcp", schema: writeFileSchema()},
		},
	}
	b := New(transport)
	ctx := context.Background()

	infos, err := b.ListTools(ctx, false)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "write_file" {
		t.Fatalf("unexpected catalog: %+v", infos)
	}
	if infos[0].ServerType != ServerTypeFilesystem {
		t.Fatalf("expected filesystem server type, got %s", infos[0].ServerType)
	}

	ok, msg := b.Validate("write_file", map[string]any{"path": "/tmp/a"})
	if ok {
		t.Fatal("expected validation failure for missing 'content'")
	}
	if !contains(msg, "Missing required parameters") || !contains(msg, "content") {
		t.Fatalf("error message missing required-param guidance: %s", msg)
	}
	if !contains(msg, "Example usage") {
		t.Fatalf("error message missing usage example: %s", msg)
	}

	ok, _ = b.Validate("write_file", map[string]any{"path": "/tmp/a", "content": "hi"})
	if !ok {
		t.Fatal("expected validation success with all required params present")
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOfSubstr(s, substr) >= 0
}

func indexOfSubstr(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestBridge_ExecuteRejectsMissingRequiredParam(t *testing.T) {
	transport := &fakeTransport{
		serverID: "filesystem-mcp",
		tools: []ToolDescriptor{
			&fakeDescriptor{name: "write_file", desc: "writes a file", serverID: "filesystem-mcp", schema: writeFileSchema(),
				invoke: func(ctx context.Context, params map[string]any) (string, error) {
					t.Fatal("Invoke must not run when required params are missing")
					return "", nil
				}},
		},
	}
	b := New(transport)
	ctx := context.Background()
	b.ListTools(ctx, false)

	result := b.Execute(ctx, "write_file", map[string]any{"path": "/tmp/a"}, "")
	if result.OK {
		t.Fatal("expected Execute to reject a call missing the required 'content' parameter")
	}
	if !contains(result.Error, "Missing required parameters") || !contains(result.Error, "content") {
		t.Fatalf("expected missing-parameter guidance in error, got: %s", result.Error)
	}
}

func TestBridge_ExecuteToolNotFound(t *testing.T) {
	b := New(&fakeTransport{serverID: "s"})
	ctx := context.Background()
	b.ListTools(ctx, false)

	result := b.Execute(ctx, "missing_tool", nil, "")
	if result.OK {
		t.Fatal("expected failure for unknown tool")
	}
}

func TestBridge_ExecuteManyIsolatesFailures(t *testing.T) {
	transport := &fakeTransport{
		serverID: "s",
		tools: []ToolDescriptor{
			&fakeDescriptor{name: "good", serverID: "s", schema: json.RawMessage(`{}`)},
			&fakeDescriptor{name: "bad", serverID: "s", schema: json.RawMessage(`{}`), invoke: func(ctx context.Context, params map[string]any) (string, error) {
				return "", errors.New("boom")
			}},
		},
	}
	b := New(transport)
	ctx := context.Background()
	b.ListTools(ctx, false)

	results := b.ExecuteMany(ctx, []ExecuteRequest{
		{ToolName: "good"},
		{ToolName: "bad"},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].OK {
		t.Fatalf("expected 'good' to succeed: %+v", results[0])
	}
	if results[1].OK {
		t.Fatalf("expected 'bad' to fail: %+v", results[1])
	}
}

func TestRecommendTools_KeywordAndExplicitUnion(t *testing.T) {
	catalog := []AvailableToolInfo{
		{Name: "read_file", ServerType: ServerTypeFilesystem},
		{Name: "git_log", ServerType: ServerTypeGit},
	}
	got := RecommendTools(catalog, "please read the file contents", []string{"git_log"})
	if len(got) != 2 {
		t.Fatalf("expected both keyword hit and explicit hint, got %v", got)
	}
}
