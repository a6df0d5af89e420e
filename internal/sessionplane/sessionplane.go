// Package sessionplane implements the Session & Progress Plane: the
// process-wide session registry, the per-session progress event stream,
// and cancellation tokens consumed by the Workflow Executor.
package sessionplane

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a Session's lifecycle state.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusProcessing   Status = "processing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// defaultTTL is how long an idle session is kept before eviction.
const defaultTTL = 24 * time.Hour

// Session is one connection's end-to-end state.
type Session struct {
	ID                 string
	Status             Status
	UserQuery          string
	ReasoningChainID   string
	ProgressPercentage float64
	CreatedAt          time.Time
	StartedAt          time.Time
	CompletedAt        time.Time
	FinalResult        string
	ErrorMessage       string
	Metadata           map[string]any

	mu       sync.Mutex
	lastUsed time.Time
	terminal bool
	cancel   func()
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Status:    StatusInitializing,
		CreatedAt: now,
		lastUsed:  now,
		Metadata:  make(map[string]any),
	}
}

// Ready marks the session ready to accept a query.
func (s *Session) Ready() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusReady
}

// Begin transitions to processing for the given query and chain, and
// records the cancel func the session's cancellation token will invoke.
// A session in processing has at most one live reasoning chain — Begin is
// only ever called by the single caller driving that chain, so no
// additional locking against a second Begin is needed here.
func (s *Session) Begin(query, reasoningChainID string, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusProcessing
	s.UserQuery = query
	s.ReasoningChainID = reasoningChainID
	s.ProgressPercentage = 0
	s.StartedAt = time.Now()
	s.cancel = cancel
}

// SetProgress updates the running percentage; no-op once terminal.
func (s *Session) SetProgress(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.ProgressPercentage = pct
}

// Complete performs the session's one terminal transition to completed.
// Once terminal, progress_percentage is always 100.
func (s *Session) Complete(finalResult string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.terminal = true
	s.Status = StatusCompleted
	s.FinalResult = finalResult
	s.ProgressPercentage = 100
	s.CompletedAt = time.Now()
}

// Fail performs the session's one terminal transition to failed.
func (s *Session) Fail(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.terminal = true
	s.Status = StatusFailed
	s.ErrorMessage = errMsg
	s.ProgressPercentage = 100
	s.CompletedAt = time.Now()
}

// Cancel requests cancellation of the session's in-flight workflow, if
// any, and marks the session terminal.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	alreadyTerminal := s.terminal
	if !alreadyTerminal {
		s.terminal = true
		s.Status = StatusCancelled
		s.ErrorMessage = "Workflow cancelled by user"
		s.ProgressPercentage = 100
		s.CompletedAt = time.Now()
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsTerminal reports whether the session reached a terminal state.
func (s *Session) IsTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// snapshot copies the exported fields under lock, for safe external reads.
func (s *Session) snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{
		ID:                 s.ID,
		Status:             s.Status,
		UserQuery:          s.UserQuery,
		ReasoningChainID:   s.ReasoningChainID,
		ProgressPercentage: s.ProgressPercentage,
		CreatedAt:          s.CreatedAt,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
		FinalResult:        s.FinalResult,
		ErrorMessage:       s.ErrorMessage,
		Metadata:           s.Metadata,
	}
}

// Store is the process-wide session registry. TTL eviction runs on a
// background cleanup loop, with a per-session mutex guarding state
// transitions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	storeDir string // empty disables file persistence
	done     chan struct{}
}

// NewStore creates a registry that evicts sessions idle longer than ttl
// (0 selects the default of 24h) and persists event logs under
// storeDir/sessions/<session_id>.jsonl when storeDir is non-empty.
func NewStore(ttl time.Duration, storeDir string) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	st := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		storeDir: storeDir,
		done:     make(chan struct{}),
	}
	go st.cleanupLoop()
	return st
}

// Create registers a new session with a fresh id and returns it.
func (st *Store) Create() *Session {
	sess := newSession(uuid.NewString())
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the live session for id, evicting it first if it has aged
// past the TTL.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	sess.mu.Lock()
	expired := time.Since(sess.lastUsed) > st.ttl
	sess.lastUsed = time.Now()
	sess.mu.Unlock()
	if expired {
		delete(st.sessions, id)
		return nil, false
	}
	return sess, true
}

// Delete explicitly removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Count returns the number of registered sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (st *Store) Close() {
	select {
	case <-st.done:
	default:
		close(st.done)
	}
}

func (st *Store) cleanupLoop() {
	ticker := time.NewTicker(st.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-st.done:
			return
		case <-ticker.C:
			st.mu.Lock()
			cutoff := time.Now().Add(-st.ttl)
			for id, sess := range st.sessions {
				sess.mu.Lock()
				idle := sess.lastUsed.Before(cutoff)
				sess.mu.Unlock()
				if idle {
					delete(st.sessions, id)
				}
			}
			st.mu.Unlock()
		}
	}
}

// EventWriter emits progress events for one session to an append-only
// JSON-lines file, implementing workflow.ProgressSink. A dedicated
// per-session mutex makes the single-writer guarantee explicit rather
// than relying on caller discipline.
type EventWriter struct {
	mu   sync.Mutex
	path string // empty: events are dropped after construction failure
	file *os.File
}

// NewEventWriter opens (creating if absent) storeDir/sessions/<id>.jsonl
// for append. If storeDir is empty, events are accepted but discarded —
// useful for tests and for callers that only want the in-memory Session
// state updated via SessionUpdatingSink.
func NewEventWriter(storeDir, sessionID string) (*EventWriter, error) {
	if storeDir == "" {
		return &EventWriter{}, nil
	}
	dir := filepath.Join(storeDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionplane: create session dir: %w", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sessionplane: open session log: %w", err)
	}
	return &EventWriter{path: path, file: f}, nil
}

// Emit implements workflow.ProgressSink.
func (w *EventWriter) Emit(eventType string, payload map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return
	}
	event := map[string]any{"type": eventType}
	for k, v := range payload {
		event[k] = v
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	w.file.Write(append(raw, '\n'))
}

// Close releases the underlying file handle, if any.
func (w *EventWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// SessionUpdatingSink wraps an inner ProgressSink and additionally applies
// every event's effect to sess, so a single Emit call keeps both the
// on-disk event log and the in-memory Session's progress_percentage /
// status fields in sync.
type SessionUpdatingSink struct {
	inner interface {
		Emit(eventType string, payload map[string]any)
	}
	sess *Session
}

func NewSessionUpdatingSink(inner interface {
	Emit(eventType string, payload map[string]any)
}, sess *Session) *SessionUpdatingSink {
	return &SessionUpdatingSink{inner: inner, sess: sess}
}

func (s *SessionUpdatingSink) Emit(eventType string, payload map[string]any) {
	if s.inner != nil {
		s.inner.Emit(eventType, payload)
	}
	switch eventType {
	case "agent_progress":
		if pct, ok := payload["progress_percentage"].(int); ok {
			s.sess.SetProgress(float64(pct))
		}
	case "agent_query_completed":
		if result, ok := payload["final_result"].(string); ok {
			s.sess.Complete(result)
		}
	case "agent_error":
		if msg, ok := payload["error"].(string); ok {
			s.sess.Fail(msg)
		}
	}
}

// Snapshot returns a copy of sess safe for external reads (e.g. a
// systemStatus call from the Coordinator).
func Snapshot(sess *Session) Session {
	return sess.snapshot()
}
