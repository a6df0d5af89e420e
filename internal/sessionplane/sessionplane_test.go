package sessionplane

import (
	"os"
	"testing"
	"time"
)

func TestSession_CompleteIsIdempotent(t *testing.T) {
	sess := newSession("s1")
	sess.Begin("do x", "chain-1", nil)
	sess.Complete("done")
	sess.Complete("done again") // second call must be a no-op

	if sess.FinalResult != "done" {
		t.Fatalf("expected first Complete to win, got %q", sess.FinalResult)
	}
	if sess.ProgressPercentage != 100 {
		t.Fatalf("expected terminal progress_percentage=100, got %v", sess.ProgressPercentage)
	}
}

func TestSession_FailAfterCompleteIsNoop(t *testing.T) {
	sess := newSession("s1")
	sess.Complete("done")
	sess.Fail("boom")

	if sess.Status != StatusCompleted {
		t.Fatalf("expected status to remain completed, got %s", sess.Status)
	}
}

func TestSession_CancelInvokesCancelFunc(t *testing.T) {
	called := false
	sess := newSession("s1")
	sess.Begin("do x", "chain-1", func() { called = true })
	sess.Cancel()

	if !called {
		t.Fatal("expected Cancel to invoke the registered cancel func")
	}
	if sess.Status != StatusCancelled {
		t.Fatalf("expected status cancelled, got %s", sess.Status)
	}
	if sess.ProgressPercentage != 100 {
		t.Fatalf("expected terminal progress_percentage=100, got %v", sess.ProgressPercentage)
	}
}

func TestStore_GetEvictsExpiredSession(t *testing.T) {
	store := NewStore(10*time.Millisecond, "")
	defer store.Close()

	sess := store.Create()
	time.Sleep(30 * time.Millisecond)

	_, ok := store.Get(sess.ID)
	if ok {
		t.Fatal("expected session to be evicted as expired on access")
	}
}

func TestEventWriter_AppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	w, err := NewEventWriter(dir, "sess-1")
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}
	w.Emit("agent_query_started", map[string]any{"session_id": "sess-1", "query": "hi"})
	w.Emit("agent_query_completed", map[string]any{"session_id": "sess-1", "success": true})
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(dir + "/sessions/sess-1.jsonl")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := 0
	for _, b := range raw {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 event lines, got %d", lines)
	}
}

func TestSessionUpdatingSink_AppliesProgressAndCompletion(t *testing.T) {
	sess := newSession("s1")
	sess.Begin("do x", "chain-1", nil)
	sink := NewSessionUpdatingSink(nil, sess)

	sink.Emit("agent_progress", map[string]any{"progress_percentage": 30})
	if sess.ProgressPercentage != 30 {
		t.Fatalf("expected progress 30, got %v", sess.ProgressPercentage)
	}

	sink.Emit("agent_query_completed", map[string]any{"final_result": "all done"})
	if sess.Status != StatusCompleted || sess.FinalResult != "all done" {
		t.Fatalf("expected session completed with final result, got %+v", sess)
	}
}
