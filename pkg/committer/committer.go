// Package committer implements the Committer (C5): translation of the
// action log into ordered forward and undo steps, and the commit/rollback
// protocol of spec §4.4 (Phases A-F).
//
// Grounded on pkg/manager/fsm.go's Apply/Snapshot/Restore shape (forward
// op / undo op / replay) and the retry-and-reconcile idiom of the
// teacher's reconciler: re-query external state to decide whether a
// partially-applied batch actually succeeded, rather than trusting a
// single RPC's reported outcome.
package committer

import (
	"context"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/log"
	"github.com/cuemby/metacoord/pkg/metrics"
	"github.com/cuemby/metacoord/pkg/renamepipeline"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
	"github.com/cuemby/metacoord/pkg/writeintent"
)

// DefaultPartitionCommitBatchSize is the default batch size for
// PartitionAdder flushes.
const DefaultPartitionCommitBatchSize = 8

// Config is the buffer-wide configuration surface §6 exposes to the
// Committer.
type Config struct {
	SkipDeletionForAlter        bool
	SkipTargetCleanupOnRollback bool
	PartitionCommitBatchSize    int
	TestFailOnCleanupError      bool
	RenamePipelineConcurrency   int
}

// Committer owns the commit/rollback protocol for one transaction.
type Committer struct {
	cat catalog.Catalog
	f   fs.Fs
	cfg Config
}

// New creates a Committer over cat and f.
func New(cat catalog.Catalog, f fs.Fs, cfg Config) *Committer {
	if cfg.PartitionCommitBatchSize < 1 {
		cfg.PartitionCommitBatchSize = DefaultPartitionCommitBatchSize
	}
	if cfg.RenamePipelineConcurrency < 1 {
		cfg.RenamePipelineConcurrency = 8
	}
	return &Committer{cat: cat, f: f, cfg: cfg}
}

// prepared accumulates every list Phase A builds, owned for the duration
// of one Commit call.
type prepared struct {
	renamesInProgress  []*renamepipeline.Handle
	deletionsOnSuccess []string
	cleanupsOnAbort    []cleanupEntry
	dirRenamesOnAbort  []dirRename

	addTableOps       []*addTableOp
	alterTableOps     []*alterTableOp
	alterPartitionOps []*alterPartitionOp
	statsOps          []*statsOp
	partitionAdders   map[types.TableKey]*partitionAdder
	irreversibleOps   []irreversibleOp
}

func newPrepared() *prepared {
	return &prepared{partitionAdders: make(map[types.TableKey]*partitionAdder)}
}

// Commit runs the full Phase A-F protocol against txLog and registry.
//
// On a Phase A/B/C failure, Phase D rolls back and the original error is
// returned; if a cleanup failure is observed during rollback while
// TestFailOnCleanupError is set, the returned error is instead a
// METASTORE_ERROR whose causes are the original error followed by that
// cleanup failure. Past Phase E, commit is considered successful
// regardless of cleanup outcome: Phase E failures aggregate into a
// returned METASTORE_ERROR, and Phase F failures are swallowed (logged)
// unless TestFailOnCleanupError is set.
func (c *Committer) Commit(ctx context.Context, txLog *actionlog.Log, registry *writeintent.Registry, queryID string) error {
	timer := metrics.NewTimer()
	pipeline := renamepipeline.New(c.f, c.cfg.RenamePipelineConcurrency)

	p := newPrepared()
	if err := c.phaseA(ctx, txLog, pipeline, p, queryID); err != nil {
		return c.abort(ctx, pipeline, p, registry, timer, err)
	}

	if err := renamepipeline.JoinAllPropagate(p.renamesInProgress); err != nil {
		return c.abort(ctx, pipeline, p, registry, timer, err)
	}

	if err := c.phaseC(ctx, p); err != nil {
		return c.abort(ctx, pipeline, p, registry, timer, err)
	}

	phaseEErr := c.phaseE(ctx, p)
	phaseFErr := c.phaseF(ctx, p, registry)

	timer.ObserveDuration(metrics.CommitDuration)
	metrics.TransactionsTotal.WithLabelValues("commit").Inc()
	if phaseEErr != nil {
		return phaseEErr
	}
	return phaseFErr
}

// abort runs Phase D and returns the original Phase A/B/C error or, when a
// test-mode cleanup failure was observed during rollback, a METASTORE_ERROR
// carrying the original error and that failure as its causes.
func (c *Committer) abort(ctx context.Context, pipeline *renamepipeline.Pipeline, p *prepared, registry *writeintent.Registry, timer *metrics.Timer, original error) error {
	cleanupErr := c.rollback(ctx, pipeline, p, registry)
	timer.ObserveDuration(metrics.RollbackDuration)
	metrics.TransactionsTotal.WithLabelValues("rollback").Inc()
	if cleanupErr != nil {
		cause := txerrors.NewMultiCause("rollback cleanup also failed")
		cause.Add(original)
		cause.Add(cleanupErr)
		return cause.Err()
	}
	return original
}

// rollback runs Phase D: cancel and drain in-flight renames, undo forward
// steps in reverse dependency order, clean up, undo directory renames,
// undo alter ops, and finally roll back the write-intent registry. It
// returns the first test-mode cleanup failure observed, or nil.
func (c *Committer) rollback(ctx context.Context, pipeline *renamepipeline.Pipeline, p *prepared, registry *writeintent.Registry) error {
	pipeline.Cancel()
	renamepipeline.JoinAllQuiet(p.renamesInProgress)

	c.undoStatsOps(ctx, p)
	c.undoPartitionAdders(ctx, p)
	c.undoAddTableOps(ctx, p)

	var cleanupErr error
	if err := c.runCleanupsOnAbort(ctx, p); err != nil && cleanupErr == nil {
		cleanupErr = err
	}
	if err := c.undoDirRenames(ctx, p); err != nil && cleanupErr == nil {
		cleanupErr = err
	}

	if err := c.undoAlterTableOps(ctx, p); err != nil && cleanupErr == nil {
		cleanupErr = err
	}
	if err := c.undoAlterPartitionOps(ctx, p); err != nil && cleanupErr == nil {
		cleanupErr = err
	}

	opts := writeintent.RollbackOptions{
		SkipTargetCleanupOnRollback: c.cfg.SkipTargetCleanupOnRollback,
		TestFailOnCleanupError:      c.cfg.TestFailOnCleanupError,
	}
	if err := registry.Rollback(ctx, c.cat, c.f, opts); err != nil {
		if cleanupErr == nil {
			cleanupErr = err
		}
	}
	return cleanupErr
}

// logCleanupFailure logs and swallows a best-effort cleanup failure,
// unless TestFailOnCleanupError is set, in which case it is returned so
// the caller can surface it.
func (c *Committer) logCleanupFailure(phase string, err error) error {
	metrics.CleanupFailuresTotal.WithLabelValues(phase).Inc()
	log.WithComponent("committer").Warn().Err(err).Str("phase", phase).Msg("cleanup failed")
	if c.cfg.TestFailOnCleanupError {
		return err
	}
	return nil
}

func (c *Committer) runCleanupsOnAbort(ctx context.Context, p *prepared) error {
	var first error
	for _, entry := range p.cleanupsOnAbort {
		ok, err := c.f.Delete(ctx, types.OpContext{}, entry.path, entry.recursive)
		if err != nil {
			if cerr := c.logCleanupFailure("phase_d_cleanup", err); cerr != nil && first == nil {
				first = cerr
			}
			continue
		}
		if !ok {
			if cerr := c.logCleanupFailure("phase_d_cleanup", txerrors.Newf(txerrors.FilesystemError, "delete %s failed", entry.path)); cerr != nil && first == nil {
				first = cerr
			}
		}
	}
	return first
}

func (c *Committer) undoDirRenames(ctx context.Context, p *prepared) error {
	var first error
	for _, dr := range p.dirRenamesOnAbort {
		exists, err := c.f.Exists(ctx, types.OpContext{}, dr.from)
		if err != nil || !exists {
			continue
		}
		if _, err := c.f.Rename(ctx, types.OpContext{}, dr.from, dr.to); err != nil {
			if cerr := c.logCleanupFailure("phase_d_dir_rename_undo", err); cerr != nil && first == nil {
				first = cerr
			}
		}
	}
	return first
}
