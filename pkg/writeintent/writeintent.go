// Package writeintent implements the WriteIntentRegistry (C3): an
// ordered, append-only list of declared write intentions, plus the
// rollback-without-a-prepared-commit logic of spec §4.5.
//
// Registry has no mutex of its own; like pkg/actionlog it is owned and
// serialized by pkg/txcontroller, generalizing the ordered, mutex-guarded
// subscriber list of pkg/events.Broker into an append-only intent log with
// deterministic rollback iteration.
package writeintent

import (
	"context"
	"strings"

	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/log"
	"github.com/cuemby/metacoord/pkg/metrics"
	"github.com/cuemby/metacoord/pkg/recursivedelete"
	"github.com/cuemby/metacoord/pkg/types"
)

// partitionBatchSize is the batch size for DIRECT_EXISTING partition
// enumeration against the catalog during rollback (§4.5).
const partitionBatchSize = 10

// Registry is the ordered list of write intentions declared in one
// transaction.
type Registry struct {
	intents []types.WriteIntent
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Declare appends a write intent in registration order.
func (r *Registry) Declare(intent types.WriteIntent) {
	r.intents = append(r.intents, intent)
}

// Intents returns every declared intent, in registration order.
func (r *Registry) Intents() []types.WriteIntent {
	return r.intents
}

// RollbackOptions configures rollback-time cleanup behavior, mirroring the
// buffer-wide configuration surface (§6).
type RollbackOptions struct {
	SkipTargetCleanupOnRollback bool
	TestFailOnCleanupError      bool
}

// Rollback runs the §4.5 cleanup for every declared intent, in registration
// order. Cleanup failures are logged and swallowed unless
// TestFailOnCleanupError is set, in which case the first failure is
// returned.
func (r *Registry) Rollback(ctx context.Context, cat catalog.Catalog, f fs.Fs, opts RollbackOptions) error {
	for _, intent := range r.intents {
		if err := r.rollbackOne(ctx, cat, f, intent, opts); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) rollbackOne(ctx context.Context, cat catalog.Catalog, f fs.Fs, intent types.WriteIntent, opts RollbackOptions) error {
	switch intent.Mode {
	case types.WriteModeStageAndMove:
		return r.deleteQueryScoped(ctx, f, intent, intent.StagingRoot, true, opts)

	case types.WriteModeDirectNew:
		if opts.SkipTargetCleanupOnRollback {
			return nil
		}
		return r.deleteQueryScoped(ctx, f, intent, intent.StagingRoot, true, opts)

	case types.WriteModeDirectExisting:
		return r.rollbackDirectExisting(ctx, cat, f, intent, opts)
	}
	return nil
}

func (r *Registry) rollbackDirectExisting(ctx context.Context, cat catalog.Catalog, f fs.Fs, intent types.WriteIntent, opts RollbackOptions) error {
	baseDirectory := intent.StagingRoot
	paths := map[string]bool{baseDirectory: true}

	names, err := cat.GetPartitionNames(ctx, intent.Table)
	if err != nil {
		if catalog.IsNotFound(err) {
			log.WithComponent("writeintent").Warn().
				Str("table", intent.Table.Schema+"/"+intent.Table.Table).
				Msg("table vanished during DIRECT_EXISTING rollback cleanup, skipping")
			return nil
		}
		logCleanupFailure("writeintent.rollback.direct_existing", err, opts)
		if opts.TestFailOnCleanupError {
			return err
		}
		return nil
	}

	for start := 0; start < len(names); start += partitionBatchSize {
		end := start + partitionBatchSize
		if end > len(names) {
			end = len(names)
		}
		partitions, err := cat.GetPartitionsByNames(ctx, intent.Table, names[start:end])
		if err != nil {
			logCleanupFailure("writeintent.rollback.direct_existing", err, opts)
			if opts.TestFailOnCleanupError {
				return err
			}
			continue
		}
		for _, p := range partitions {
			if !isSubtree(p.Location, baseDirectory) {
				paths[p.Location] = true
			}
		}
	}

	for path := range paths {
		// DIRECT_EXISTING cleanup never deletes containing directories: the
		// registry does not own them, only the files this transaction wrote.
		if err := r.deleteQueryScoped(ctx, f, intent, path, false, opts); err != nil {
			return err
		}
	}
	return nil
}

// isSubtree reports whether location is path-equal to or nested under
// root, using a pure string/depth comparison with no filesystem access.
func isSubtree(location, root string) bool {
	location = strings.TrimRight(location, "/")
	root = strings.TrimRight(root, "/")
	return location == root || strings.HasPrefix(location, root+"/")
}

func (r *Registry) deleteQueryScoped(ctx context.Context, f fs.Fs, intent types.WriteIntent, path string, deleteEmptyDirs bool, opts RollbackOptions) error {
	_, notDeleted, err := recursivedelete.Delete(ctx, f, intent.Ctx, path, []string{intent.QueryID}, deleteEmptyDirs)
	if err != nil {
		logCleanupFailure("writeintent.rollback", err, opts)
		if opts.TestFailOnCleanupError {
			return err
		}
		return nil
	}
	if len(notDeleted) > 0 {
		log.WithComponent("writeintent").Warn().
			Strs("not_deleted", notDeleted).
			Msg("rollback cleanup left files behind")
	}
	return nil
}

func logCleanupFailure(phase string, err error, opts RollbackOptions) {
	metrics.CleanupFailuresTotal.WithLabelValues(phase).Inc()
	log.WithComponent("writeintent").Warn().Err(err).Str("phase", phase).Msg("cleanup failed")
}
