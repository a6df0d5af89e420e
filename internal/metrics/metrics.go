// Package metrics registers the process-wide Prometheus collectors the
// Coordinator mirrors its rolling counters to: package-level
// promauto-registered collectors plus small exported Record* functions,
// rather than a collector struct threaded through every caller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocket_omega_queries_processed_total",
		Help: "Total number of queries processed to completion (success or failure).",
	})

	QueriesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocket_omega_queries_failed_total",
		Help: "Total number of queries that ended in a failed reasoning chain.",
	})

	ToolsExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pocket_omega_tools_executed_total",
		Help: "Total number of tool invocations dispatched through the Tool Bridge, by tool name.",
	}, []string{"tool_name"})

	QueryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pocket_omega_query_duration_seconds",
		Help:    "End-to-end wall-clock duration of a processed query.",
		Buckets: prometheus.DefBuckets,
	})

	ActiveSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pocket_omega_active_sessions",
		Help: "Number of sessions currently registered in the session store.",
	})
)

// RecordQueryCompleted records one finished query's duration and outcome.
func RecordQueryCompleted(success bool, duration time.Duration) {
	QueriesProcessedTotal.Inc()
	if !success {
		QueriesFailedTotal.Inc()
	}
	QueryDurationSeconds.Observe(duration.Seconds())
}

// RecordToolExecuted records one tool dispatch.
func RecordToolExecuted(toolName string) {
	ToolsExecutedTotal.WithLabelValues(toolName).Inc()
}

// SetActiveSessions publishes the current session-store size.
func SetActiveSessions(n int) {
	ActiveSessionsGauge.Set(float64(n))
}
