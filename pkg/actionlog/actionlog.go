// Package actionlog implements ActionLog (C2): an in-memory mapping from
// entity key to pending Action, with the collapsing and conflict rules of
// spec §4.3 and data-model invariants 1-5.
//
// ActionLog has no mutex of its own. It is owned and serialized by
// pkg/txcontroller, exactly as pkg/manager/fsm.go's WarrenFSM.Apply assumed
// the caller held the Manager's lock before dispatching a command.
package actionlog

import (
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
)

// Log is the buffered action map for one transaction.
type Log struct {
	tables     map[types.TableKey]*types.TableAction
	partitions map[types.PartitionKey]*types.PartitionAction
	// partitionsByTable indexes partition actions for the "no schema+partition
	// mix" check (invariant 5) without a linear scan.
	partitionsByTable map[types.TableKey]int
}

// New returns an empty action log.
func New() *Log {
	return &Log{
		tables:            make(map[types.TableKey]*types.TableAction),
		partitions:        make(map[types.PartitionKey]*types.PartitionAction),
		partitionsByTable: make(map[types.TableKey]int),
	}
}

// TableAction returns the buffered action for key, or nil if none.
func (l *Log) TableAction(key types.TableKey) *types.TableAction {
	return l.tables[key]
}

// PartitionAction returns the buffered action for key, or nil if none.
func (l *Log) PartitionAction(key types.PartitionKey) *types.PartitionAction {
	return l.partitions[key]
}

// TableActions returns every buffered table action, for Committer Phase A
// iteration. Order is not guaranteed beyond Go's own map iteration.
func (l *Log) TableActions() map[types.TableKey]*types.TableAction {
	return l.tables
}

// PartitionActions returns every buffered partition action.
func (l *Log) PartitionActions() map[types.PartitionKey]*types.PartitionAction {
	return l.partitions
}

// HasPartitionAction reports whether table has any pending PartitionAction,
// used to enforce invariant 5 (no schema+partition mix) in
// CreateTable/DropTable and the DIRECT_EXISTING precondition of
// CheckDirectExisting.
func (l *Log) HasPartitionAction(table types.TableKey) bool {
	return l.partitionsByTable[table] > 0
}

// CreateTable registers a createTable operation per spec §4.3.
func (l *Log) CreateTable(key types.TableKey, table *types.Table, ctx types.OpContext, extras types.TableExtras) error {
	if l.HasPartitionAction(key) {
		return txerrors.New(txerrors.NotSupported, "schema change with pending partition actions on the same table is not supported")
	}
	existing := l.tables[key]
	if existing == nil {
		l.tables[key] = &types.TableAction{Kind: types.ActionAdd, Payload: table, Ctx: ctx, Extras: extras}
		return nil
	}
	switch existing.Kind {
	case types.ActionDrop:
		if existing.Ctx.User != ctx.User {
			return txerrors.New(txerrors.TransactionConflict, "operation on the same table with different user in the same transaction is not supported")
		}
		// ADD after DROP collapses to ALTER (invariant 4): preserves the old
		// data directory until commit instead of losing it between the drop
		// and the create.
		l.tables[key] = &types.TableAction{Kind: types.ActionAlter, Payload: table, Ctx: ctx, Extras: extras}
		return nil
	default:
		return txerrors.Newf(txerrors.AlreadyExists, "table %s/%s already exists in this transaction", key.Schema, key.Table)
	}
}

// DropTable registers a dropTable operation.
func (l *Log) DropTable(key types.TableKey, ctx types.OpContext) error {
	if l.HasPartitionAction(key) {
		return txerrors.New(txerrors.NotSupported, "schema change with pending partition actions on the same table is not supported")
	}
	existing := l.tables[key]
	if existing == nil || existing.Kind == types.ActionAlter {
		l.tables[key] = &types.TableAction{Kind: types.ActionDrop, Ctx: ctx}
		return nil
	}
	if existing.Kind == types.ActionDrop {
		return txerrors.Newf(txerrors.TableNotFound, "table %s/%s not found", key.Schema, key.Table)
	}
	return txerrors.New(txerrors.NotSupported, "cannot drop a table created earlier in the same transaction")
}

// FinishInsertIntoExistingTable registers an INSERT_EXISTING action for an
// unpartitioned table, merging statistics with the caller-supplied current
// value.
func (l *Log) FinishInsertIntoExistingTable(key types.TableKey, table *types.Table, ctx types.OpContext, extras types.TableExtras, currentStats types.Stats) error {
	existing := l.tables[key]
	if existing != nil {
		if existing.Kind == types.ActionDrop {
			return txerrors.Newf(txerrors.TableNotFound, "table %s/%s not found", key.Schema, key.Table)
		}
		return txerrors.New(txerrors.NotSupported, "table already has a pending action in this transaction")
	}
	extras.FinalStatistics = types.Merge(currentStats, extras.StatisticsDelta)
	l.tables[key] = &types.TableAction{Kind: types.ActionInsertExisting, Payload: table, Ctx: ctx, Extras: extras}
	return nil
}

// AddPartition registers an addPartition operation.
func (l *Log) AddPartition(key types.PartitionKey, partition *types.Partition, ctx types.OpContext, extras types.PartitionExtras) error {
	existing := l.partitions[key]
	if existing == nil {
		l.setPartition(key, &types.PartitionAction{Kind: types.ActionAdd, Payload: partition, Ctx: ctx, Extras: extras})
		return nil
	}
	switch existing.Kind {
	case types.ActionDrop:
		if existing.Ctx.User != ctx.User {
			return txerrors.New(txerrors.TransactionConflict, "operation on the same partition with different user in the same transaction is not supported")
		}
		l.setPartition(key, &types.PartitionAction{Kind: types.ActionAlter, Payload: partition, Ctx: ctx, Extras: extras})
		return nil
	default:
		return txerrors.Newf(txerrors.AlreadyExists, "partition %v already exists in this transaction", key.Values)
	}
}

// DropPartition registers a dropPartition operation.
func (l *Log) DropPartition(key types.PartitionKey, ctx types.OpContext) error {
	existing := l.partitions[key]
	if existing == nil {
		l.setPartition(key, &types.PartitionAction{Kind: types.ActionDrop, Ctx: ctx})
		return nil
	}
	if existing.Kind == types.ActionDrop {
		return txerrors.Newf(txerrors.PartitionNotFound, "partition %v not found", key.Values)
	}
	return txerrors.New(txerrors.NotSupported, "cannot drop a partition created earlier in the same transaction")
}

// FinishInsertIntoExistingPartition registers an INSERT_EXISTING action for
// a partition, merging statistics with currentStats (which must already
// exist: absence is a METASTORE_ERROR per spec §4.3).
func (l *Log) FinishInsertIntoExistingPartition(key types.PartitionKey, partition *types.Partition, ctx types.OpContext, extras types.PartitionExtras, currentStats types.Stats, statsExist bool) error {
	existing := l.partitions[key]
	if existing != nil {
		if existing.Kind == types.ActionDrop {
			return txerrors.Newf(txerrors.PartitionNotFound, "partition %v not found", key.Values)
		}
		return txerrors.New(txerrors.NotSupported, "partition already has a pending action in this transaction")
	}
	if !statsExist {
		return txerrors.Newf(txerrors.MetastoreError, "cannot merge statistics for partition %v: no existing statistics", key.Values)
	}
	extras.FinalStatistics = types.Merge(currentStats, extras.StatisticsDelta)
	l.setPartition(key, &types.PartitionAction{Kind: types.ActionInsertExisting, Payload: partition, Ctx: ctx, Extras: extras})
	return nil
}

func (l *Log) setPartition(key types.PartitionKey, action *types.PartitionAction) {
	if _, exists := l.partitions[key]; !exists {
		l.partitionsByTable[key.Table]++
	}
	l.partitions[key] = action
}

// CheckDirectExisting validates the precondition for a declareIntentionToWrite
// call with WriteMode DIRECT_EXISTING: illegal if table has any pending
// partition action (invariant 8).
func (l *Log) CheckDirectExisting(table types.TableKey) error {
	if l.HasPartitionAction(table) {
		return txerrors.New(txerrors.NotSupported, "DIRECT_EXISTING write intent is not supported when the table has pending partition actions")
	}
	return nil
}

// CheckAddPartitionPreconditions verifies the partition's query-id tag is
// present, per the addPartition row of spec §4.3.
func CheckAddPartitionPreconditions(partition *types.Partition) error {
	if _, ok := types.QueryIDOf(partition.Parameters, types.DefaultQueryIDParameterKey); !ok {
		return txerrors.Newf(txerrors.NotSupported, "partition is missing the %s parameter", types.DefaultQueryIDParameterKey)
	}
	return nil
}
