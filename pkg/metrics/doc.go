/*
Package metrics exposes Prometheus instrumentation for the metastore
coordinator: transaction outcomes, commit/rollback latency, rename-pipeline
throughput, and cleanup-failure counters.

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	err := buffer.Commit(ctx)
	timer.ObserveDuration(metrics.CommitDuration)
	outcome := "commit"
	if err != nil {
		outcome = "commit_failed"
	}
	metrics.TransactionsTotal.WithLabelValues(outcome).Inc()

All metrics are registered at package init via prometheus.MustRegister, so a
process that imports this package exactly once gets a working /metrics
endpoint with no further setup.
*/
package metrics
