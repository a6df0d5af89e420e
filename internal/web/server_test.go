package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pocketomega/pocket-omega/internal/coordinator"
	"github.com/pocketomega/pocket-omega/internal/execution"
	"github.com/pocketomega/pocket-omega/internal/orchestration"
	"github.com/pocketomega/pocket-omega/internal/planning"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/sessionplane"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
	"github.com/pocketomega/pocket-omega/internal/workflow"
)

type testReasoner struct {
	byName map[string][]json.RawMessage
	calls  map[string]int
}

func newTestReasoner() *testReasoner {
	return &testReasoner{byName: make(map[string][]json.RawMessage), calls: make(map[string]int)}
}

func (r *testReasoner) add(schemaName string, raw json.RawMessage) {
	r.byName[schemaName] = append(r.byName[schemaName], raw)
}

func (r *testReasoner) Name() string { return "test" }

func (r *testReasoner) Reason(ctx context.Context, prompt string, schema reasoner.Schema) (reasoner.Result, error) {
	responses := r.byName[schema.Name]
	i := r.calls[schema.Name]
	r.calls[schema.Name] = i + 1
	if i >= len(responses) {
		i = len(responses) - 1
	}
	return reasoner.Result{Value: responses[i], Tokens: 1}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bridge := toolbridge.New()

	r := newTestReasoner()
	r.add(reasoner.ComplexityAnalysisSchema.Name, json.RawMessage(`{"complexity": "simple", "estimated_steps": 1}`))

	p := planning.New(r, bridge)
	o := orchestration.New(r, bridge)
	e := execution.New(bridge, r)
	ex := workflow.New(p, o, e)
	sessions := sessionplane.NewStore(time.Hour, "")
	t.Cleanup(sessions.Close)

	c := coordinator.New(bridge, p, ex, sessions, "")
	return NewServer(c, HealthInfo{ReasonerModel: "test-model", SessionCount: sessions.Count})
}

func TestHandleSystemStatus_ReturnsRollingStats(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/system_status", nil)
	rec := httptest.NewRecorder()

	s.handleSystemStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body["queries_processed"]; !ok {
		t.Fatalf("expected queries_processed in response, got %v", body)
	}
}

func TestHandleGetAvailableTools_EmptyBridgeReturnsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/get_available_tools", nil)
	rec := httptest.NewRecorder()

	s.handleGetAvailableTools(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleComplexityAnalysis_DecodesReasonerResponse(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"session_id": "s1", "query": "do a thing"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/complexity_analysis", body)
	rec := httptest.NewRecorder()

	s.handleComplexityAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp reasoner.ComplexityAnalysisResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Complexity != "simple" {
		t.Fatalf("expected simple complexity, got %q", resp.Complexity)
	}
}

func TestHandleCancelWorkflow_UnknownSessionReturns404(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"session_id": "no-such-session"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/cancel_workflow", body)
	rec := httptest.NewRecorder()

	s.handleCancelWorkflow(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleToolExecute_MissingToolNameIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"session_id": "s1", "parameters": {}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tool_execute", body)
	rec := httptest.NewRecorder()

	s.handleToolExecute(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
