/*
Package renamepipeline implements the parallel rename pipeline (C4): the
only source of concurrency inside a single transaction's commit.

# Ordering guarantees

Phase B of the commit protocol (pkg/committer) must observe every rename
completion before any catalog mutation runs. JoinAllPropagate gives that:
it blocks until every submitted handle resolves and surfaces the first
failure, so the Committer never proceeds to Phase C with renames still in
flight.

# Cancellation

There is no per-task cancellation; Cancel flips one shared flag. A task
already past its cancel check will complete its rename regardless. The
flag only prevents new filesystem work from starting. JoinAllQuiet is the
rollback-path counterpart to JoinAllPropagate: once Phase D calls Cancel,
outstanding renames are drained and their results discarded, because the
directories involved are about to be cleaned up anyway.
*/
package renamepipeline
