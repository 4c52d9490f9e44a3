package committer

import (
	"context"
	"path/filepath"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/log"
	"github.com/cuemby/metacoord/pkg/metrics"
	"github.com/cuemby/metacoord/pkg/recursivedelete"
	"github.com/cuemby/metacoord/pkg/renamepipeline"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
	"github.com/cuemby/metacoord/pkg/writeintent"
)

// phaseA walks txLog and populates p with every forward/undo step the
// remaining phases need, in action-log iteration order.
func (c *Committer) phaseA(ctx context.Context, txLog *actionlog.Log, pipeline *renamepipeline.Pipeline, p *prepared, queryID string) error {
	for key, action := range txLog.TableActions() {
		if err := c.prepareTableAction(ctx, pipeline, p, key, action); err != nil {
			return err
		}
	}
	for key, action := range txLog.PartitionActions() {
		if err := c.preparePartitionAction(ctx, pipeline, p, key, action, queryID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Committer) prepareTableAction(ctx context.Context, pipeline *renamepipeline.Pipeline, p *prepared, key types.TableKey, action *types.TableAction) error {
	switch action.Kind {
	case types.ActionAdd:
		return c.prepareAddTable(ctx, p, key, action)
	case types.ActionAlter:
		return c.prepareAlterTable(ctx, p, key, action)
	case types.ActionInsertExisting:
		return c.prepareInsertExistingTable(ctx, pipeline, p, key, action)
	case types.ActionDrop:
		p.irreversibleOps = append(p.irreversibleOps, irreversibleOp{kind: irreversibleDropTable, tableKey: key})
		return nil
	}
	return nil
}

// prepareAddTable stages a Table ADD. An unmanaged table gets no directory
// work at all and is only created in the catalog. A managed table carrying
// staged data (Extras.CurrentLocation set) is moved into place with one
// directory rename; any other managed table (partitioned, or no staged data
// yet) just needs the target directory to exist and be unclaimed.
func (c *Committer) prepareAddTable(ctx context.Context, p *prepared, key types.TableKey, action *types.TableAction) error {
	table := action.Payload
	if !table.Managed {
		p.addTableOps = append(p.addTableOps, &addTableOp{key: key, table: table})
		return nil
	}
	target := table.Location
	current := action.Extras.CurrentLocation

	if !table.Partitioned && current != "" {
		if current != target {
			if _, err := c.f.Rename(ctx, action.Ctx, current, target); err != nil {
				return err
			}
		}
		p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: target, recursive: true})
		p.addTableOps = append(p.addTableOps, &addTableOp{key: key, table: table})
		return nil
	}

	exists, err := c.f.Exists(ctx, action.Ctx, target)
	if err != nil {
		return err
	}
	if exists && (current == "" || current != target) {
		return txerrors.Newf(txerrors.PathAlreadyExists, "target path %s already exists", target)
	}
	if !exists {
		if err := c.f.Mkdirs(ctx, action.Ctx, target); err != nil {
			return err
		}
	}
	p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: target, recursive: true})
	p.addTableOps = append(p.addTableOps, &addTableOp{key: key, table: table})
	return nil
}

func (c *Committer) prepareAlterTable(ctx context.Context, p *prepared, key types.TableKey, action *types.TableAction) error {
	oldTable, err := c.cat.GetTable(ctx, key)
	if err != nil {
		if catalog.IsNotFound(err) {
			return txerrors.Newf(txerrors.TransactionConflict, "table %s/%s vanished during alter", key.Schema, key.Table)
		}
		return err
	}
	newTable := action.Payload

	if newTable.Location == oldTable.Location {
		staging := fs.StagingPath(filepath.Dir(oldTable.Location), filepath.Base(oldTable.Location), action.Ctx.QueryID)
		if _, err := c.f.Rename(ctx, action.Ctx, oldTable.Location, staging); err != nil {
			return err
		}
		p.dirRenamesOnAbort = append(p.dirRenamesOnAbort, dirRename{from: staging, to: oldTable.Location})
		if !c.cfg.SkipDeletionForAlter {
			p.deletionsOnSuccess = append(p.deletionsOnSuccess, staging)
		}
	} else if !c.cfg.SkipDeletionForAlter {
		p.deletionsOnSuccess = append(p.deletionsOnSuccess, oldTable.Location)
	}

	current := action.Extras.CurrentLocation
	if current != "" && current != newTable.Location {
		if _, err := c.f.Rename(ctx, action.Ctx, current, newTable.Location); err != nil {
			return err
		}
		p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: newTable.Location, recursive: true})
	}

	oldStats, statErr := c.cat.GetTableStatistics(ctx, key)
	if statErr != nil {
		log.WithComponent("committer").Warn().Err(statErr).Msg("table statistics fetch failed during alter prepare, substituting empty")
		oldStats = types.Stats{}
	}

	p.alterTableOps = append(p.alterTableOps, &alterTableOp{key: key, oldTable: oldTable, newTable: newTable})
	p.statsOps = append(p.statsOps, &statsOp{
		target:        statsTargetTable,
		tableKey:      key,
		newStats:      action.Extras.FinalStatistics,
		oldStats:      oldStats,
		oldStatsKnown: statErr == nil,
	})
	return nil
}

func (c *Committer) prepareInsertExistingTable(ctx context.Context, pipeline *renamepipeline.Pipeline, p *prepared, key types.TableKey, action *types.TableAction) error {
	target := action.Payload.Location
	current := action.Extras.CurrentLocation

	for _, name := range action.Extras.FileNames {
		p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: filepath.Join(target, name), recursive: false})
		h := pipeline.Submit(ctx, action.Ctx, filepath.Join(current, name), filepath.Join(target, name))
		p.renamesInProgress = append(p.renamesInProgress, h)
	}

	p.statsOps = append(p.statsOps, &statsOp{
		target:   statsTargetTable,
		tableKey: key,
		newStats: action.Extras.FinalStatistics,
	})
	return nil
}

func (c *Committer) preparePartitionAction(ctx context.Context, pipeline *renamepipeline.Pipeline, p *prepared, key types.PartitionKey, action *types.PartitionAction, queryID string) error {
	switch action.Kind {
	case types.ActionAdd:
		return c.prepareAddPartition(ctx, p, key, action, queryID)
	case types.ActionAlter:
		return c.prepareAlterPartition(ctx, p, key, action)
	case types.ActionInsertExisting:
		return c.prepareInsertExistingPartition(ctx, pipeline, p, key, action)
	case types.ActionDrop:
		p.irreversibleOps = append(p.irreversibleOps, irreversibleOp{kind: irreversibleDropPartition, partitionKey: key})
		return nil
	}
	return nil
}

func (c *Committer) prepareAddPartition(ctx context.Context, p *prepared, key types.PartitionKey, action *types.PartitionAction, queryID string) error {
	partition := action.Payload
	current := action.Extras.CurrentLocation
	if current != "" && current != partition.Location {
		if _, err := c.f.Rename(ctx, action.Ctx, current, partition.Location); err != nil {
			return err
		}
		p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: partition.Location, recursive: true})
	}

	adder, ok := p.partitionAdders[key.Table]
	if !ok {
		adder = newPartitionAdder(c.cat, key.Table, c.cfg.PartitionCommitBatchSize, queryID)
		p.partitionAdders[key.Table] = adder
	}
	adder.add(partition)
	return nil
}

func (c *Committer) prepareAlterPartition(ctx context.Context, p *prepared, key types.PartitionKey, action *types.PartitionAction) error {
	oldPartition, err := c.cat.GetPartition(ctx, key)
	if err != nil {
		if catalog.IsNotFound(err) {
			return txerrors.Newf(txerrors.TransactionConflict, "partition %v vanished during alter", key.Values)
		}
		return err
	}
	newPartition := action.Payload

	if newPartition.Location == oldPartition.Location {
		base := filepath.Base(oldPartition.Location)
		staging := fs.StagingPath(filepath.Dir(oldPartition.Location), base, action.Ctx.QueryID)
		if _, err := c.f.Rename(ctx, action.Ctx, oldPartition.Location, staging); err != nil {
			return err
		}
		p.dirRenamesOnAbort = append(p.dirRenamesOnAbort, dirRename{from: staging, to: oldPartition.Location})
		if !c.cfg.SkipDeletionForAlter {
			p.deletionsOnSuccess = append(p.deletionsOnSuccess, staging)
		}
	} else if !c.cfg.SkipDeletionForAlter {
		p.deletionsOnSuccess = append(p.deletionsOnSuccess, oldPartition.Location)
	}

	current := action.Extras.CurrentLocation
	if current != "" && current != newPartition.Location {
		if _, err := c.f.Rename(ctx, action.Ctx, current, newPartition.Location); err != nil {
			return err
		}
		p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: newPartition.Location, recursive: true})
	}

	oldStats, statErr := c.cat.GetPartitionStatistics(ctx, key)
	if statErr != nil {
		if txerrors.Is(statErr, txerrors.CorruptedColumnStatistics) {
			log.WithComponent("committer").Warn().Err(statErr).Msg("corrupted partition statistics during alter prepare, substituting empty")
			oldStats = types.Stats{}
			statErr = nil
		} else {
			return statErr
		}
	}

	p.alterPartitionOps = append(p.alterPartitionOps, &alterPartitionOp{key: key, oldPartition: oldPartition, newPartition: newPartition})
	p.statsOps = append(p.statsOps, &statsOp{
		target:        statsTargetPartition,
		partitionKey:  key,
		newStats:      action.Extras.FinalStatistics,
		oldStats:      oldStats,
		oldStatsKnown: statErr == nil,
	})
	return nil
}

func (c *Committer) prepareInsertExistingPartition(ctx context.Context, pipeline *renamepipeline.Pipeline, p *prepared, key types.PartitionKey, action *types.PartitionAction) error {
	target := action.Payload.Location
	current := action.Extras.CurrentLocation

	for _, name := range action.Extras.FileNames {
		p.cleanupsOnAbort = append(p.cleanupsOnAbort, cleanupEntry{path: filepath.Join(target, name), recursive: false})
		h := pipeline.Submit(ctx, action.Ctx, filepath.Join(current, name), filepath.Join(target, name))
		p.renamesInProgress = append(p.renamesInProgress, h)
	}

	p.statsOps = append(p.statsOps, &statsOp{
		target:       statsTargetPartition,
		partitionKey: key,
		newStats:     action.Extras.FinalStatistics,
	})
	return nil
}

// phaseC applies every reversible catalog op, in the fixed order the
// protocol requires: add-table, alter-table, alter-partition, partition
// adders, stats. The first failure stops processing; everything already
// applied in this call is left done=true so Phase D knows what to undo.
func (c *Committer) phaseC(ctx context.Context, p *prepared) error {
	for _, op := range p.addTableOps {
		if err := c.cat.CreateTable(ctx, op.table); err != nil {
			return err
		}
		op.done = true
	}
	for _, op := range p.alterTableOps {
		if err := c.cat.ReplaceTable(ctx, op.key, op.newTable); err != nil {
			return err
		}
		op.done = true
	}
	for _, op := range p.alterPartitionOps {
		if err := c.cat.AlterPartition(ctx, op.key, op.newPartition); err != nil {
			return err
		}
		op.done = true
	}
	for _, adder := range p.partitionAdders {
		if err := adder.execute(ctx); err != nil {
			return err
		}
	}
	for _, op := range p.statsOps {
		if err := c.applyStatsOp(ctx, op); err != nil {
			return err
		}
		op.done = true
	}
	return nil
}

func (c *Committer) applyStatsOp(ctx context.Context, op *statsOp) error {
	replace := func(types.Stats) types.Stats { return op.newStats }
	if op.target == statsTargetTable {
		return c.cat.UpdateTableStatistics(ctx, op.tableKey, replace)
	}
	return c.cat.UpdatePartitionStatistics(ctx, op.partitionKey, replace)
}

// phaseE runs every irreversible drop. Failures are recorded, not thrown;
// processing always continues to the end of the list.
func (c *Committer) phaseE(ctx context.Context, p *prepared) error {
	agg := txerrors.NewMultiCause("one or more irreversible drops failed")
	succeeded := 0
	for _, op := range p.irreversibleOps {
		var err error
		switch op.kind {
		case irreversibleDropTable:
			err = c.cat.DropTable(ctx, op.tableKey)
		case irreversibleDropPartition:
			err = c.cat.DropPartition(ctx, op.partitionKey)
		}
		if err != nil {
			agg.Add(err)
			continue
		}
		succeeded++
	}
	nonDeleteOps := len(p.addTableOps) + len(p.alterTableOps) + len(p.alterPartitionOps) + len(p.statsOps) + len(p.partitionAdders)
	if agg.Failed() && (succeeded > 0 || nonDeleteOps > 0) {
		metrics.TransactionsTotal.WithLabelValues("partial_failure").Inc()
		return agg.Err()
	}
	return nil
}

// phaseF always runs after Phase E, regardless of its outcome: it deletes
// everything staged for success, then sweeps every STAGE_AND_MOVE
// intent's staging root.
func (c *Committer) phaseF(ctx context.Context, p *prepared, registry *writeintent.Registry) error {
	var first error
	for _, path := range p.deletionsOnSuccess {
		ok, err := c.f.Delete(ctx, types.OpContext{}, path, true)
		if err != nil {
			if cerr := c.logCleanupFailure("phase_f_deletions_on_success", err); cerr != nil && first == nil {
				first = cerr
			}
			continue
		}
		if !ok {
			if cerr := c.logCleanupFailure("phase_f_deletions_on_success", txerrors.Newf(txerrors.FilesystemError, "delete %s failed", path)); cerr != nil && first == nil {
				first = cerr
			}
		}
	}

	for _, intent := range registry.Intents() {
		if intent.Mode != types.WriteModeStageAndMove {
			continue
		}
		_, notDeleted, err := recursivedelete.Delete(ctx, c.f, intent.Ctx, intent.StagingRoot, []string{intent.QueryID}, true)
		if err != nil {
			if cerr := c.logCleanupFailure("phase_f_staging_sweep", err); cerr != nil && first == nil {
				first = cerr
			}
			continue
		}
		if len(notDeleted) > 0 {
			log.WithComponent("committer").Warn().Strs("not_deleted", notDeleted).Msg("phase F staging sweep left files behind")
		}
	}
	return first
}

func (c *Committer) undoStatsOps(ctx context.Context, p *prepared) {
	for i := len(p.statsOps) - 1; i >= 0; i-- {
		op := p.statsOps[i]
		if !op.done || !op.oldStatsKnown {
			continue
		}
		if err := c.applyStatsOp(ctx, &statsOp{target: op.target, tableKey: op.tableKey, partitionKey: op.partitionKey, newStats: op.oldStats}); err != nil {
			log.WithComponent("committer").Warn().Err(err).Msg("failed to undo statistics op")
		}
	}
}

func (c *Committer) undoPartitionAdders(ctx context.Context, p *prepared) {
	for _, adder := range p.partitionAdders {
		for _, err := range adder.undo(ctx) {
			log.WithComponent("committer").Warn().Err(err).Msg("failed to undo a partition add")
		}
	}
}

func (c *Committer) undoAddTableOps(ctx context.Context, p *prepared) {
	for i := len(p.addTableOps) - 1; i >= 0; i-- {
		op := p.addTableOps[i]
		if !op.done {
			continue
		}
		if err := c.cat.DropTable(ctx, op.key); err != nil {
			log.WithComponent("committer").Warn().Err(err).Msg("failed to undo an add-table op")
		}
	}
}

func (c *Committer) undoAlterTableOps(ctx context.Context, p *prepared) error {
	var first error
	for i := len(p.alterTableOps) - 1; i >= 0; i-- {
		op := p.alterTableOps[i]
		if !op.done {
			continue
		}
		if err := c.cat.ReplaceTable(ctx, op.key, op.oldTable); err != nil {
			if cerr := c.logCleanupFailure("phase_d_undo_alter_table", err); cerr != nil && first == nil {
				first = cerr
			}
		}
	}
	return first
}

func (c *Committer) undoAlterPartitionOps(ctx context.Context, p *prepared) error {
	var first error
	for i := len(p.alterPartitionOps) - 1; i >= 0; i-- {
		op := p.alterPartitionOps[i]
		if !op.done {
			continue
		}
		if err := c.cat.AlterPartition(ctx, op.key, op.oldPartition); err != nil {
			if cerr := c.logCleanupFailure("phase_d_undo_alter_partition", err); cerr != nil && first == nil {
				first = cerr
			}
		}
	}
	return first
}
