/*
Package txcontroller implements the TxController (C7): the single mutex
gate around one transaction's buffer, its TxState state machine, and the
Buffer facade every read and write call goes through.

# State machine

	EMPTY --setShared(any write)--> SHARED_BUFFERED
	EMPTY --setExclusive--> EXCLUSIVE_BUFFERED
	SHARED_BUFFERED --setExclusive--> fail NOT_SUPPORTED
	EXCLUSIVE_BUFFERED --read/write--> fail NOT_SUPPORTED
	any --commit|rollback--> FINISHED (unconditional, even on failure)
	FINISHED --anything--> fail

TxState never decreases and FINISHED is absorbing: a second commit or
rollback call always fails, with no side effects, regardless of how the
first one ended.

# Lock discipline

Every exported Buffer method takes the mutex for its full duration,
including any blocking catalog or filesystem call made while holding it;
contention is not the design point here, deterministic ordering against a
single in-flight transaction is. Private helpers that touch buffer state
call assertLocked, which panics if invoked outside a lock()/unlock() span,
catching a missing lock acquisition at the point it happens rather than as
a data race much later.

# Delegation

Buffer owns one ActionLog, one WriteIntentRegistry, and a ReadView layered
over both plus the Catalog. Shared writes (createTable, addPartition, ...)
validate through ActionLog and leave the actual catalog/filesystem
mutation to the Committer at commit time. Exclusive writes (create
database, grant, rename table, ...) are buffered as a single opaque
ExclusiveOp and run once, directly, at commit. Reads always go through the
ReadView so a transaction sees its own pending mutations layered over
whatever the external catalog reports.
*/
package txcontroller
