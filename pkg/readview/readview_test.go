package readview

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/catalog/boltcatalog"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
)

func newTestCatalog(t *testing.T) *boltcatalog.Catalog {
	t.Helper()
	cat, err := boltcatalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestGetPartitionNamesOverlayScenarioS6(t *testing.T) {
	cat := newTestCatalog(t)
	table := types.TableKey{Schema: "db", Table: "t"}
	ctx := context.Background()

	require.NoError(t, cat.AddPartitions(ctx, table, []*types.Partition{
		{Values: []string{"1"}, Location: "/w/t/p=1"},
		{Values: []string{"2"}, Location: "/w/t/p=2"},
		{Values: []string{"3"}, Location: "/w/t/p=3"},
	}))

	log := actionlog.New()
	require.NoError(t, log.DropPartition(types.PartitionKey{Table: table, Values: []string{"2"}}, types.OpContext{}))
	require.NoError(t, log.AddPartition(types.PartitionKey{Table: table, Values: []string{"4"}}, &types.Partition{Values: []string{"4"}}, types.OpContext{}, types.PartitionExtras{}))

	view := New(cat, log)

	names, err := view.GetPartitionNames(ctx, table, []string{""})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"db/t/1", "db/t/3", "db/t/4"}, names)

	names, err = view.GetPartitionNames(ctx, table, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"db/t/1"}, names)
}

func TestGetPartitionNamesConflictsOnAddedByOtherTransaction(t *testing.T) {
	cat := newTestCatalog(t)
	table := types.TableKey{Schema: "db", Table: "t"}
	ctx := context.Background()
	require.NoError(t, cat.AddPartitions(ctx, table, []*types.Partition{
		{Values: []string{"1"}, Location: "/w/t/p=1"},
	}))

	log := actionlog.New()
	require.NoError(t, log.AddPartition(types.PartitionKey{Table: table, Values: []string{"1"}}, &types.Partition{}, types.OpContext{}, types.PartitionExtras{}))

	view := New(cat, log)
	_, err := view.GetPartitionNames(ctx, table, nil)
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.TransactionConflict))
}

func TestGetTableOverlayDrop(t *testing.T) {
	cat := newTestCatalog(t)
	table := types.TableKey{Schema: "db", Table: "t"}
	ctx := context.Background()
	require.NoError(t, cat.CreateTable(ctx, &types.Table{Schema: "db", Name: "t"}))

	log := actionlog.New()
	require.NoError(t, log.DropTable(table, types.OpContext{}))

	view := New(cat, log)
	_, err := view.GetTable(ctx, table)
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.TableNotFound))
}

func TestGetTableOverlayAddReturnsBuffered(t *testing.T) {
	cat := newTestCatalog(t)
	table := types.TableKey{Schema: "db", Table: "t"}
	ctx := context.Background()

	log := actionlog.New()
	buffered := &types.Table{Schema: "db", Name: "t", Location: "/w/t"}
	require.NoError(t, log.CreateTable(table, buffered, types.OpContext{}, types.TableExtras{}))

	view := New(cat, log)
	got, err := view.GetTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, "/w/t", got.Location)
}

func TestGetPartitionAugmentsLocation(t *testing.T) {
	table := types.TableKey{Schema: "db", Table: "t"}
	log := actionlog.New()
	key := types.PartitionKey{Table: table, Values: []string{"1"}}
	require.NoError(t, log.AddPartition(key, &types.Partition{Values: []string{"1"}, Location: "/w/t/p=1"}, types.OpContext{}, types.PartitionExtras{CurrentLocation: "/stg/p=1"}))

	view := New(newTestCatalog(t), log)
	p, err := view.GetPartition(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "/stg/p=1", p.Location)
}

func TestGetAllTablesFailsWithPendingAction(t *testing.T) {
	cat := newTestCatalog(t)
	log := actionlog.New()
	require.NoError(t, log.DropTable(types.TableKey{Schema: "db", Table: "t"}, types.OpContext{}))

	view := New(cat, log)
	_, err := view.GetAllTables(context.Background(), "db")
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.NotSupported))
}
