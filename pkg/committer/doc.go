/*
Package committer implements the Committer (C5), the protocol core of the
coordinator: Commit walks the buffered ActionLog once (Phase A, Prepare)
to build every forward and undo step up front, joins the async rename
pipeline (Phase B), applies catalog mutations in a fixed order (Phase C),
rolls everything back on any failure up to that point (Phase D), then
executes irreversible drops (Phase E) and best-effort cleanup (Phase F).

# Phase ordering

Phase C applies add-table, alter-table, alter-partition, partition-adder,
then stats ops, in that order; undo in Phase D runs the reverse dependency
order (stats, then partition adders, then add-table), followed by
filesystem cleanup, directory-rename undo, and finally alter undo. Once
Phase E begins the transaction is considered committed: a failed drop
aggregates into a METASTORE_ERROR but no longer triggers rollback.

# Partial-success tolerance

The per-table partitionAdder (§4.8) treats a batch call that failed but
actually persisted (checked by re-querying each partition's query-id tag)
as having succeeded, so a catalog that doesn't honor all-or-none batch
semantics doesn't cause a spurious rollback of already-durable partitions.

# Test-mode cleanup escalation

Every best-effort cleanup step (Phase D-3 filesystem cleanup, Phase D-4
directory-rename undo, Phase D-5 alter undo, the write-intent rollback that
ends Phase D, and Phase F) swallows its errors behind a log line unless the
buffer-wide TestFailOnCleanupError flag is set. With the flag set, the first
such failure during rollback is returned together with the original commit
error as causes of one METASTORE_ERROR, and a Phase F failure is returned
from an otherwise successful commit unless Phase E already failed.
*/
package committer
