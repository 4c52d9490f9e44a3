package committer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/catalog/boltcatalog"
	"github.com/cuemby/metacoord/pkg/types"
)

// flakyAddCatalog lets a batch actually persist in the underlying catalog
// while still reporting failure, to exercise the partial-success
// tolerance of scenario S4.
type flakyAddCatalog struct {
	*boltcatalog.Catalog
	failOnCall int // 0-indexed AddPartitions call to report a spurious failure for
	calls      int
}

func (f *flakyAddCatalog) AddPartitions(ctx context.Context, table types.TableKey, partitions []*types.Partition) error {
	idx := f.calls
	f.calls++
	if err := f.Catalog.AddPartitions(ctx, table, partitions); err != nil {
		return err
	}
	if idx == f.failOnCall {
		return assert.AnError
	}
	return nil
}

func newPartitionForQuery(values []string, queryID string) *types.Partition {
	return &types.Partition{Values: values, Location: filepath.Join("w", "t", "p="+values[0]), Parameters: map[string]string{"query_id": queryID}}
}

// TestPartitionAdderTreatsActuallyPersistedBatchAsSucceeded exercises
// scenario S4: a catalog that reports failure on the third of several
// batches despite having actually written it. The adder must not raise
// once it confirms every partition in that batch carries this
// transaction's query id.
func TestPartitionAdderTreatsActuallyPersistedBatchAsSucceeded(t *testing.T) {
	cat, err := boltcatalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	flaky := &flakyAddCatalog{Catalog: cat, failOnCall: 2}
	table := types.TableKey{Schema: "db", Table: "t"}
	ctx := context.Background()

	adder := newPartitionAdder(flaky, table, 8, "Q4")
	for i := 0; i < 20; i++ {
		adder.add(newPartitionForQuery([]string{string(rune('a' + i))}, "Q4"))
	}

	require.NoError(t, adder.execute(ctx))
	assert.Equal(t, 3, flaky.calls)

	names, err := cat.GetPartitionNames(ctx, table)
	require.NoError(t, err)
	assert.Len(t, names, 20)
}

// TestPartitionAdderUndoDropsEverySuccessfullyAddedBatch verifies that a
// rollback drops every partition the adder actually persisted, including
// ones from a batch that reported failure but was tolerated.
func TestPartitionAdderUndoDropsEverySuccessfullyAddedBatch(t *testing.T) {
	cat, err := boltcatalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	table := types.TableKey{Schema: "db", Table: "t"}
	ctx := context.Background()

	adder := newPartitionAdder(&flakyAddCatalog{Catalog: cat, failOnCall: 1}, table, 4, "Q5")
	for i := 0; i < 8; i++ {
		adder.add(newPartitionForQuery([]string{string(rune('a' + i))}, "Q5"))
	}
	require.NoError(t, adder.execute(ctx))

	failures := adder.undo(ctx)
	assert.Empty(t, failures)

	names, err := cat.GetPartitionNames(ctx, table)
	require.NoError(t, err)
	assert.Empty(t, names)
}
