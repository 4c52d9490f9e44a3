// Package txcontroller implements the TxController (C7): the single lock
// guarding one transaction's buffer, the TxState state machine, and the
// public Buffer facade that every other component sits behind.
//
// Grounded on pkg/manager/manager.go's Manager struct-of-subsystems-with-one-
// owner shape (one mutex, one set of collaborators, public methods that lock
// for their full duration) and pkg/manager/fsm.go's lock-held assertion
// discipline, generalized from "apply one committed raft command" to
// "register one buffered action or read through the overlay."
package txcontroller

import (
	"context"
	"sync"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/committer"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/log"
	"github.com/cuemby/metacoord/pkg/metrics"
	"github.com/cuemby/metacoord/pkg/readview"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
	"github.com/cuemby/metacoord/pkg/writeintent"
)

// Config is the buffer-wide configuration surface (§6): skipDeletionForAlter,
// skipTargetCleanupOnRollback, partitionCommitBatchSize, and the rename
// pipeline's concurrency, plus the testing-only cleanup escalation flag.
type Config = committer.Config

// ExclusiveOp is an opaque deferred catalog mutation buffered by
// setExclusive and invoked exactly once, at commit. Schema operations that
// touch multiple catalogs or paths (create/drop database, rename table,
// add/drop column, grant/revoke, role ops, setTableStatistics,
// setPartitionStatistics, replaceTable, truncateUnpartitionedTable) are all
// expressed as one of these rather than as ActionLog entries, since none of
// them participate in the Phase A-F buffered-action protocol.
type ExclusiveOp func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error

// Buffer is the per-transaction coordinator: one TxState machine, one
// ActionLog, one WriteIntentRegistry, guarded by a single mutex for the
// full duration of every public call.
type Buffer struct {
	mu sync.Mutex
	// held is set true immediately after mu.Lock() and false immediately
	// before mu.Unlock(), so private helpers can assert the lock is
	// actually held by their caller rather than merely hoping so.
	held bool

	state TxState

	cat catalog.Catalog
	fs  fs.Fs
	cfg Config

	log      *actionlog.Log
	registry *writeintent.Registry
	view     *readview.View

	exclusiveOp ExclusiveOp

	queryID string
}

// TxState re-exports types.TxState under the package that owns its
// transitions.
type TxState = types.TxState

const (
	Empty             = types.TxEmpty
	SharedBuffered    = types.TxSharedBuffered
	ExclusiveBuffered = types.TxExclusiveBuffered
	Finished          = types.TxFinished
)

// New creates a Buffer over cat and f for the transaction identified by
// queryID. queryID is threaded into every PartitionAdder and Committer call
// that needs to tag or verify ownership of written data.
func New(cat catalog.Catalog, f fs.Fs, cfg Config, queryID string) *Buffer {
	l := actionlog.New()
	return &Buffer{
		state:    Empty,
		cat:      cat,
		fs:       f,
		cfg:      cfg,
		log:      l,
		registry: writeintent.New(),
		view:     readview.New(cat, l),
		queryID:  queryID,
	}
}

// lock acquires the buffer mutex and marks it held for the assertion
// helpers; unlock does the reverse. Every exported method wraps its body
// between these two calls.
func (b *Buffer) lock() {
	b.mu.Lock()
	b.held = true
}

func (b *Buffer) unlock() {
	b.held = false
	b.mu.Unlock()
}

// assertLocked panics if called outside a lock()/unlock() span. It is the
// runtime assertion spec §4.1 requires at every private helper entry; a
// panic here means a code path forgot to take the buffer lock, which is a
// programming error, not a caller error.
func (b *Buffer) assertLocked() {
	if !b.held {
		panic("txcontroller: buffer mutex not held")
	}
}

// State returns the current TxState.
func (b *Buffer) State() TxState {
	b.lock()
	defer b.unlock()
	return b.state
}

// assertReadable requires EMPTY or SHARED_BUFFERED, failing NOT_SUPPORTED
// from EXCLUSIVE_BUFFERED and from FINISHED alike (FINISHED additionally
// carries the stronger "already finished" message per invariant 10).
func (b *Buffer) assertReadable() error {
	b.assertLocked()
	switch b.state {
	case Empty, SharedBuffered:
		return nil
	case Finished:
		return txerrors.New(txerrors.NotSupported, "transaction already finished")
	default:
		return txerrors.New(txerrors.NotSupported, "read not allowed while an exclusive op is buffered")
	}
}

// assertWritable requires EMPTY or SHARED_BUFFERED and, on success,
// advances EMPTY to SHARED_BUFFERED: the first buffered write is what
// commits the transaction to the shared (ActionLog-buffered) mode.
func (b *Buffer) assertWritable() error {
	b.assertLocked()
	switch b.state {
	case Empty:
		b.state = SharedBuffered
		return nil
	case SharedBuffered:
		return nil
	case Finished:
		return txerrors.New(txerrors.NotSupported, "transaction already finished")
	default:
		return txerrors.New(txerrors.NotSupported, "write not allowed while an exclusive op is buffered")
	}
}

// SetExclusive buffers op as the transaction's single exclusive operation.
// Only legal from EMPTY: a transaction that has already buffered shared
// actions, or another exclusive op, or has finished, cannot also buffer an
// exclusive op (§4.1's SHARED_BUFFERED -setExclusive-> fail NOT_SUPPORTED,
// and FINISHED -anything-> fail).
func (b *Buffer) SetExclusive(ctx context.Context, op ExclusiveOp) error {
	b.lock()
	defer b.unlock()
	b.assertLocked()

	switch b.state {
	case Empty:
		b.state = ExclusiveBuffered
		b.exclusiveOp = op
		return nil
	case Finished:
		return txerrors.New(txerrors.NotSupported, "transaction already finished")
	default:
		return txerrors.New(txerrors.NotSupported, "an exclusive op cannot be buffered alongside shared actions")
	}
}

// Commit runs the appropriate protocol for the current state and
// unconditionally transitions to FINISHED, even on failure, per §4.1's
// "any -commit|rollback-> FINISHED (unconditional, even on thrown
// failure)".
func (b *Buffer) Commit(ctx context.Context) error {
	b.lock()
	defer b.unlock()
	b.assertLocked()

	if b.state == Finished {
		return txerrors.New(txerrors.NotSupported, "transaction already finished")
	}
	defer func() { b.state = Finished }()

	timer := metrics.NewTimer()
	var err error
	switch b.state {
	case Empty:
		// Nothing was ever buffered; commit is a no-op success.
	case ExclusiveBuffered:
		err = b.commitExclusive(ctx)
	case SharedBuffered:
		err = b.commitShared(ctx)
	}

	outcome := "commit"
	if err != nil {
		outcome = "commit_error"
		log.WithComponent("txcontroller").Warn().Err(err).Str("query_id", b.queryID).Msg("commit failed")
	}
	metrics.TransactionsTotal.WithLabelValues(outcome).Inc()
	timer.ObserveDuration(metrics.CommitDuration)
	return err
}

func (b *Buffer) commitExclusive(ctx context.Context) error {
	if b.exclusiveOp == nil {
		return nil
	}
	if err := b.exclusiveOp(ctx, b.cat, b.fs); err != nil {
		return txerrors.Wrap(txerrors.MetastoreError, "exclusive op failed", err)
	}
	return nil
}

func (b *Buffer) commitShared(ctx context.Context) error {
	c := committer.New(b.cat, b.fs, b.cfg)
	return c.Commit(ctx, b.log, b.registry, b.queryID)
}

// Rollback discards the buffer and unconditionally transitions to
// FINISHED. A transaction in SHARED_BUFFERED has never had its ActionLog
// applied to the catalog (Commit is what runs the Phase A-F protocol), so
// rollback here only needs to undo declared write intents (§4.5); an
// EXCLUSIVE_BUFFERED op never ran either, so its rollback is a pure no-op.
func (b *Buffer) Rollback(ctx context.Context) error {
	b.lock()
	defer b.unlock()
	b.assertLocked()

	if b.state == Finished {
		return txerrors.New(txerrors.NotSupported, "transaction already finished")
	}
	defer func() { b.state = Finished }()

	timer := metrics.NewTimer()
	var err error
	if b.state == SharedBuffered {
		err = b.registry.Rollback(ctx, b.cat, b.fs, writeintent.RollbackOptions{
			SkipTargetCleanupOnRollback: b.cfg.SkipTargetCleanupOnRollback,
			TestFailOnCleanupError:      b.cfg.TestFailOnCleanupError,
		})
	}

	outcome := "rollback"
	if err != nil {
		outcome = "rollback_error"
		log.WithComponent("txcontroller").Warn().Err(err).Str("query_id", b.queryID).Msg("rollback cleanup failed")
	}
	metrics.TransactionsTotal.WithLabelValues(outcome).Inc()
	timer.ObserveDuration(metrics.RollbackDuration)
	return err
}

// DeclareIntentionToWrite registers intent with the WriteIntentRegistry.
// DIRECT_EXISTING is refused once any partition action is already buffered
// for intent.Table, matching §4.3's "if mode=DIRECT_EXISTING and table has
// any partition action -> unsupported" precondition.
func (b *Buffer) DeclareIntentionToWrite(ctx context.Context, intent types.WriteIntent) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	if intent.Mode == types.WriteModeDirectExisting {
		if err := b.log.CheckDirectExisting(intent.Table); err != nil {
			return err
		}
	}
	b.registry.Declare(intent)
	return nil
}
