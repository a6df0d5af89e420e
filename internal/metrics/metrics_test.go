package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQueryCompleted_IncrementsCountersAndHistogram(t *testing.T) {
	initialProcessed := testutil.ToFloat64(QueriesProcessedTotal)
	initialFailed := testutil.ToFloat64(QueriesFailedTotal)

	RecordQueryCompleted(true, 250*time.Millisecond)

	if got := testutil.ToFloat64(QueriesProcessedTotal); got != initialProcessed+1 {
		t.Fatalf("expected processed counter to increment by 1, got %v", got)
	}
	if got := testutil.ToFloat64(QueriesFailedTotal); got != initialFailed {
		t.Fatalf("expected failed counter unchanged on success, got %v", got)
	}

	RecordQueryCompleted(false, 100*time.Millisecond)
	if got := testutil.ToFloat64(QueriesFailedTotal); got != initialFailed+1 {
		t.Fatalf("expected failed counter to increment by 1 on failure, got %v", got)
	}
}

func TestRecordToolExecuted_IncrementsPerToolLabel(t *testing.T) {
	initial := testutil.ToFloat64(ToolsExecutedTotal.WithLabelValues("write_file"))
	RecordToolExecuted("write_file")
	if got := testutil.ToFloat64(ToolsExecutedTotal.WithLabelValues("write_file")); got != initial+1 {
		t.Fatalf("expected write_file counter to increment by 1, got %v", got)
	}
}

func TestSetActiveSessions_PublishesGaugeValue(t *testing.T) {
	SetActiveSessions(7)
	if got := testutil.ToFloat64(ActiveSessionsGauge); got != 7 {
		t.Fatalf("expected gauge value 7, got %v", got)
	}
}
