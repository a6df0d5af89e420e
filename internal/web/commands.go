package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/workflow"
)

// sseProgressSink adapts an sseWriter to workflow.ProgressSink so the
// Coordinator's event stream is forwarded directly as SSE frames, one
// event per Emit call.
type sseProgressSink struct {
	w *sseWriter
}

func (s sseProgressSink) Emit(eventType string, payload map[string]any) {
	s.w.Send(eventType, payload)
}

type agentQueryRequest struct {
	SessionID string         `json:"session_id"`
	Query     string         `json:"query"`
	Context   map[string]any `json:"context"`
}

// handleAgentQuery streams a full Planning→Orchestration→Execution run as
// SSE frames.
func (s *Server) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req agentQueryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	sw := newSSEWriter(w, r)
	if sw == nil {
		return
	}
	sink := sseProgressSink{w: sw}

	_, err := s.coordinator.ProcessQuery(r.Context(), req.SessionID, req.Query, req.Context, sink)
	if err != nil {
		var taxErr *errs.Error
		if errors.As(err, &taxErr) {
			sw.Send("agent_error", map[string]any{"error": taxErr.Error(), "kind": taxErr.Kind()})
			return
		}
		log.Printf("[web] agent_query failed: %v", err)
		sw.Send("agent_error", map[string]any{"error": "internal error"})
	}
}

type toolExecuteRequest struct {
	SessionID  string         `json:"session_id"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	ServerID   string         `json:"server_id"`
}

// handleToolExecute dispatches one ad hoc tool call.
func (s *Server) handleToolExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req toolExecuteRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToolName == "" {
		writeError(w, http.StatusBadRequest, "tool_name is required")
		return
	}
	res := s.coordinator.ExecuteTool(r.Context(), req.ToolName, req.Parameters, req.ServerID)
	writeJSON(w, http.StatusOK, res)
}

type complexityAnalysisRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// handleComplexityAnalysis runs the lightweight pre-check.
func (s *Server) handleComplexityAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req complexityAnalysisRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	result, err := s.coordinator.AnalyzeComplexity(r.Context(), req.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetAvailableTools returns the current tool catalog, optionally
// filtered by ?server_type=.
func (s *Server) handleGetAvailableTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	filter := r.URL.Query().Get("server_type")
	tools, err := s.coordinator.ListTools(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

// handleSystemStatus reports rolling metrics and active sessions.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, s.coordinator.SystemStatus())
}

type cancelWorkflowRequest struct {
	SessionID string `json:"session_id"`
}

// handleCancelWorkflow requests cancellation of a session's in-flight
// chain. This is a separate POST endpoint keyed by session_id, since SSE
// itself is one-directional.
func (s *Server) handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req cancelWorkflowRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.coordinator.CancelCurrentWorkflow(req.SessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

var _ workflow.ProgressSink = sseProgressSink{}
