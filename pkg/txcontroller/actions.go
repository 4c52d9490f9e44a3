package txcontroller

import (
	"context"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/types"
)

// CreateTable buffers an ADD or ALTER action for key, per §4.3's createTable
// row: no partition action may already be pending on key.
func (b *Buffer) CreateTable(ctx context.Context, key types.TableKey, table *types.Table, opCtx types.OpContext, extras types.TableExtras) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	return b.log.CreateTable(key, table, opCtx, extras)
}

// DropTable buffers a DROP action for key.
func (b *Buffer) DropTable(ctx context.Context, key types.TableKey, opCtx types.OpContext) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	return b.log.DropTable(key, opCtx)
}

// FinishInsertIntoExistingTable buffers an INSERT_EXISTING action for an
// unpartitioned table, merging extras.StatisticsDelta with the table's
// current statistics as read through the overlay.
func (b *Buffer) FinishInsertIntoExistingTable(ctx context.Context, key types.TableKey, table *types.Table, opCtx types.OpContext, extras types.TableExtras) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	currentStats, err := b.view.GetTableStatistics(ctx, key)
	if err != nil {
		return err
	}
	return b.log.FinishInsertIntoExistingTable(key, table, opCtx, extras, currentStats)
}

// AddPartition buffers an ADD or ALTER action for key.
// actionlog.CheckAddPartitionPreconditions checks that the partition already
// carries a query id tag before the action is recorded; extras.CurrentLocation
// and the partition values are not validated there.
func (b *Buffer) AddPartition(ctx context.Context, key types.PartitionKey, partition *types.Partition, opCtx types.OpContext, extras types.PartitionExtras) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	if err := actionlog.CheckAddPartitionPreconditions(partition); err != nil {
		return err
	}
	return b.log.AddPartition(key, partition, opCtx, extras)
}

// DropPartition buffers a DROP action for key.
func (b *Buffer) DropPartition(ctx context.Context, key types.PartitionKey, opCtx types.OpContext) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	return b.log.DropPartition(key, opCtx)
}

// FinishInsertIntoExistingPartition buffers an INSERT_EXISTING action for
// key, requiring that statistics already exist for the partition (else
// METASTORE_ERROR per §4.3).
func (b *Buffer) FinishInsertIntoExistingPartition(ctx context.Context, key types.PartitionKey, partition *types.Partition, opCtx types.OpContext, extras types.PartitionExtras) error {
	b.lock()
	defer b.unlock()
	if err := b.assertWritable(); err != nil {
		return err
	}
	currentStats, err := b.view.GetPartitionStatistics(ctx, key)
	statsExist := err == nil
	if err != nil {
		currentStats = types.Stats{}
	}
	return b.log.FinishInsertIntoExistingPartition(key, partition, opCtx, extras, currentStats, statsExist)
}

// Read-path delegation. Every method below requires EMPTY or
// SHARED_BUFFERED and otherwise forwards straight to the ReadView overlay.

func (b *Buffer) GetTable(ctx context.Context, key types.TableKey) (*types.Table, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.GetTable(ctx, key)
}

func (b *Buffer) GetTableStatistics(ctx context.Context, key types.TableKey) (types.Stats, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return types.Stats{}, err
	}
	return b.view.GetTableStatistics(ctx, key)
}

func (b *Buffer) ListTablePrivileges(ctx context.Context, key types.TableKey, principal string) ([]string, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.ListTablePrivileges(ctx, key, principal)
}

func (b *Buffer) GetAllTables(ctx context.Context, schema string) ([]string, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.GetAllTables(ctx, schema)
}

func (b *Buffer) GetAllViews(ctx context.Context, schema string) ([]string, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.GetAllViews(ctx, schema)
}

func (b *Buffer) GetPartition(ctx context.Context, key types.PartitionKey) (*types.Partition, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.GetPartition(ctx, key)
}

func (b *Buffer) GetPartitionStatistics(ctx context.Context, key types.PartitionKey) (types.Stats, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return types.Stats{}, err
	}
	return b.view.GetPartitionStatistics(ctx, key)
}

func (b *Buffer) GetPartitionsByNames(ctx context.Context, table types.TableKey, names []string) ([]*types.Partition, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.GetPartitionsByNames(ctx, table, names)
}

func (b *Buffer) GetPartitionNames(ctx context.Context, table types.TableKey, parts []string) ([]string, error) {
	b.lock()
	defer b.unlock()
	if err := b.assertReadable(); err != nil {
		return nil, err
	}
	return b.view.GetPartitionNames(ctx, table, parts)
}
