package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Transaction lifecycle metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metacoord_transactions_total",
			Help: "Total number of transactions by outcome (commit, rollback, partial_failure, commit_error, rollback_error)",
		},
		[]string{"outcome"},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metacoord_commit_duration_seconds",
			Help:    "Time taken to run the full commit protocol (Phases A-F)",
			Buckets: prometheus.DefBuckets,
		},
	)

	RollbackDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metacoord_rollback_duration_seconds",
			Help:    "Time taken to run rollback (prepared or write-intent-only)",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Action log metrics
	ActionsBuffered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metacoord_actions_buffered",
			Help: "Number of actions currently buffered by kind",
		},
		[]string{"kind"},
	)

	ActionConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metacoord_action_conflicts_total",
			Help: "Total number of TRANSACTION_CONFLICT errors raised while registering actions",
		},
		[]string{"entity"},
	)

	// Rename pipeline metrics
	RenamesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metacoord_renames_submitted_total",
			Help: "Total number of file renames submitted to the rename pipeline",
		},
	)

	RenamesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metacoord_renames_failed_total",
			Help: "Total number of file renames that failed",
		},
	)

	RenamesCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metacoord_renames_cancelled_total",
			Help: "Total number of file renames skipped because the cancel flag was set",
		},
	)

	// Committer phase metrics
	PartitionBatchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metacoord_partition_batch_retries_total",
			Help: "Total number of partition-add batches that required a post-failure existence check",
		},
	)

	IrreversibleDeleteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metacoord_irreversible_delete_failures_total",
			Help: "Total number of Phase E irreversible catalog deletes that failed",
		},
	)

	CleanupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metacoord_cleanup_failures_total",
			Help: "Total number of best-effort cleanup failures, logged and swallowed, by phase",
		},
		[]string{"phase"},
	)

	RecursiveDeleteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metacoord_recursive_delete_duration_seconds",
			Help:    "Time taken for a predicate recursive delete walk",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		TransactionsTotal,
		CommitDuration,
		RollbackDuration,
		ActionsBuffered,
		ActionConflictsTotal,
		RenamesSubmitted,
		RenamesFailed,
		RenamesCancelled,
		PartitionBatchRetries,
		IrreversibleDeleteFailures,
		CleanupFailuresTotal,
		RecursiveDeleteDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
