package committer

import (
	"context"

	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/metrics"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
)

// partitionAdder batches AddPartitions calls for a single table (§4.8),
// flushing in fixed-size batches. When a batch call fails, it tolerates a
// catalog that persisted some or all of the batch despite reporting
// failure: each partition in the failed batch is re-queried and treated as
// successfully added if it now exists tagged with the query id this
// transaction used.
type partitionAdder struct {
	cat          catalog.Catalog
	table        types.TableKey
	batchSize    int
	queryID      string
	pending      []*types.Partition
	addedBatches [][]*types.Partition
}

func newPartitionAdder(cat catalog.Catalog, table types.TableKey, batchSize int, queryID string) *partitionAdder {
	if batchSize < 1 {
		batchSize = 8
	}
	return &partitionAdder{cat: cat, table: table, batchSize: batchSize, queryID: queryID}
}

func (a *partitionAdder) add(p *types.Partition) {
	a.pending = append(a.pending, p)
}

// execute flushes every pending partition in batches, tolerating partial
// success per §4.8.
func (a *partitionAdder) execute(ctx context.Context) error {
	for len(a.pending) > 0 {
		n := a.batchSize
		if n > len(a.pending) {
			n = len(a.pending)
		}
		batch := a.pending[:n]
		a.pending = a.pending[n:]

		err := a.cat.AddPartitions(ctx, a.table, batch)
		if err != nil {
			if !a.batchActuallyPersisted(ctx, batch) {
				if catalog.IsNotFound(err) {
					return txerrors.Wrap(txerrors.TableDroppedDuringQuery, "table dropped during partition add", err)
				}
				return err
			}
			metrics.PartitionBatchRetries.Inc()
		}
		a.addedBatches = append(a.addedBatches, batch)
	}
	return nil
}

// batchActuallyPersisted re-queries every partition in a failed batch and
// reports true only if every one of them now exists, tagged with this
// transaction's query id.
func (a *partitionAdder) batchActuallyPersisted(ctx context.Context, batch []*types.Partition) bool {
	for _, p := range batch {
		got, err := a.cat.GetPartition(ctx, types.PartitionKey{Table: a.table, Values: p.Values})
		if err != nil {
			return false
		}
		gotQueryID, ok := types.QueryIDOf(got.Parameters, types.DefaultQueryIDParameterKey)
		if !ok || gotQueryID != a.queryID {
			return false
		}
	}
	return true
}

// undo drops every successfully-added partition best-effort, returning the
// ones that failed to drop.
func (a *partitionAdder) undo(ctx context.Context) []error {
	var failures []error
	for _, batch := range a.addedBatches {
		for _, p := range batch {
			key := types.PartitionKey{Table: a.table, Values: p.Values}
			if err := a.cat.DropPartition(ctx, key); err != nil {
				failures = append(failures, err)
			}
		}
	}
	return failures
}
