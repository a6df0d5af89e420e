// Package coordinator implements the Coordinator: the single entrypoint
// the Client Channel drives. It is a thin facade over an already-wired
// Bridge, Planning stage, and Workflow Executor — every collaborator is
// constructor-injected, never late-bound (deliberately rejecting a
// set_tool_bridge-style late-binding pattern).
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/pocketomega/pocket-omega/internal/errs"
	"github.com/pocketomega/pocket-omega/internal/metrics"
	"github.com/pocketomega/pocket-omega/internal/planning"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/sessionplane"
	"github.com/pocketomega/pocket-omega/internal/taskgraph"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
	"github.com/pocketomega/pocket-omega/internal/workflow"
)

// Stats is the rolling-metrics snapshot the Coordinator tracks:
// {queries_processed, tools_executed, average_query_time, success_rate}.
type Stats struct {
	QueriesProcessed int
	ToolsExecuted    int
	AverageQueryTime time.Duration
	SuccessRate      float64
}

// Coordinator is the facade. All dependencies are constructor-injected.
type Coordinator struct {
	bridge   *toolbridge.Bridge
	planning *planning.Stage
	executor *workflow.Executor
	sessions *sessionplane.Store
	storeDir string // passed to sessionplane.NewEventWriter per query; "" disables file persistence

	mu               sync.Mutex
	queriesProcessed int
	toolsExecuted    int
	totalQueryTime   time.Duration
	successfulQueries int
}

// New builds a Coordinator from already-constructed collaborators.
func New(bridge *toolbridge.Bridge, planningStage *planning.Stage, executor *workflow.Executor, sessions *sessionplane.Store, storeDir string) *Coordinator {
	return &Coordinator{
		bridge:   bridge,
		planning: planningStage,
		executor: executor,
		sessions: sessions,
		storeDir: storeDir,
	}
}

// ProcessQuery runs one query end to end for sessionID, streaming progress
// through sink (in addition to the session's own on-disk event log and
// in-memory state) and returns the completed ReasoningChain.
func (c *Coordinator) ProcessQuery(ctx context.Context, sessionID, query string, extraContext map[string]any, sink workflow.ProgressSink) (*taskgraph.ReasoningChain, error) {
	sess, ok := c.sessions.Get(sessionID)
	if !ok {
		sess = c.sessions.Create()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess.Begin(query, "", cancel)

	writer, err := sessionplane.NewEventWriter(c.storeDir, sess.ID)
	if err != nil {
		writer = &sessionplane.EventWriter{} // degrade to in-memory-only rather than fail the query
	}
	defer writer.Close()

	combined := sessionplane.NewSessionUpdatingSink(fanOut(writer, sink), sess)

	start := time.Now()
	chain, runErr := c.executor.Run(runCtx, sess.ID, query, extraContext, combined)
	elapsed := time.Since(start)

	success := runErr == nil && chain != nil && chain.Status == taskgraph.StatusCompleted
	c.recordCompletion(success, elapsed, chainToolCalls(chain))
	metrics.RecordQueryCompleted(success, elapsed)
	metrics.SetActiveSessions(c.sessions.Count())

	return chain, runErr
}

func chainToolCalls(chain *taskgraph.ReasoningChain) int {
	if chain == nil {
		return 0
	}
	return chain.TotalToolCalls
}

func (c *Coordinator) recordCompletion(success bool, elapsed time.Duration, toolCalls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queriesProcessed++
	c.toolsExecuted += toolCalls
	c.totalQueryTime += elapsed
	if success {
		c.successfulQueries++
	}
}

// Stats returns the current rolling-metrics snapshot.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	avg := time.Duration(0)
	successRate := 0.0
	if c.queriesProcessed > 0 {
		avg = c.totalQueryTime / time.Duration(c.queriesProcessed)
		successRate = float64(c.successfulQueries) / float64(c.queriesProcessed)
	}
	return Stats{
		QueriesProcessed: c.queriesProcessed,
		ToolsExecuted:    c.toolsExecuted,
		AverageQueryTime: avg,
		SuccessRate:      successRate,
	}
}

// ExecuteTool dispatches a single ad hoc tool call through the Bridge,
// outside of any reasoning chain.
func (c *Coordinator) ExecuteTool(ctx context.Context, toolName string, params map[string]any, serverID string) toolbridge.ToolResult {
	res := c.bridge.Execute(ctx, toolName, params, serverID)
	metrics.RecordToolExecuted(toolName)
	c.mu.Lock()
	c.toolsExecuted++
	c.mu.Unlock()
	return res
}

// AnalyzeComplexity runs the lightweight complexity pre-check.
func (c *Coordinator) AnalyzeComplexity(ctx context.Context, query string) (reasoner.ComplexityAnalysisResponse, error) {
	return c.planning.AnalyzeComplexity(ctx, query)
}

// ListTools returns the current tool catalog, optionally filtered by
// server type.
func (c *Coordinator) ListTools(ctx context.Context, serverTypeFilter string) ([]toolbridge.AvailableToolInfo, error) {
	catalog, err := c.bridge.ListTools(ctx, false)
	if err != nil {
		return nil, err
	}
	if serverTypeFilter == "" {
		return catalog, nil
	}
	filtered := make([]toolbridge.AvailableToolInfo, 0, len(catalog))
	for _, info := range catalog {
		if string(info.ServerType) == serverTypeFilter {
			filtered = append(filtered, info)
		}
	}
	return filtered, nil
}

// SystemStatus reports the Coordinator's own rolling stats plus the active
// session count.
func (c *Coordinator) SystemStatus() map[string]any {
	stats := c.Stats()
	return map[string]any{
		"queries_processed":  stats.QueriesProcessed,
		"tools_executed":     stats.ToolsExecuted,
		"average_query_time": stats.AverageQueryTime.Seconds(),
		"success_rate":       stats.SuccessRate,
		"active_sessions":    c.sessions.Count(),
	}
}

// CancelCurrentWorkflow requests cancellation of sessionID's in-flight
// chain.
func (c *Coordinator) CancelCurrentWorkflow(sessionID string) error {
	sess, ok := c.sessions.Get(sessionID)
	if !ok {
		return errs.Internal(nil, "unknown session "+sessionID)
	}
	sess.Cancel()
	return nil
}

// fanOut combines the session's own event writer with the caller-supplied
// sink so ProcessQuery's caller sees the same events persisted to disk.
func fanOut(writer *sessionplane.EventWriter, sink workflow.ProgressSink) workflow.ProgressSink {
	if sink == nil {
		return writer
	}
	return fanOutSink{writer: writer, sink: sink}
}

type fanOutSink struct {
	writer *sessionplane.EventWriter
	sink   workflow.ProgressSink
}

func (f fanOutSink) Emit(eventType string, payload map[string]any) {
	f.writer.Emit(eventType, payload)
	f.sink.Emit(eventType, payload)
}
