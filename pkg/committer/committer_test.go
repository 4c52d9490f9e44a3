package committer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/catalog/boltcatalog"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/types"
	"github.com/cuemby/metacoord/pkg/writeintent"
)

func newTestCatalog(t *testing.T) *boltcatalog.Catalog {
	t.Helper()
	cat, err := boltcatalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func newTestFs(t *testing.T) (*fs.LocalFs, string) {
	t.Helper()
	root := t.TempDir()
	lf, err := fs.NewLocalFs(root)
	require.NoError(t, err)
	return lf, root
}

func writeFile(t *testing.T, root, relPath string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
}

// TestCommitStageAndMoveAndInsertExistingPartitions exercises scenario S1:
// one partition moved into place wholesale from staging, one existing
// partition topped up file by file, both visible in the catalog after
// commit and the staging root swept clean afterward.
func TestCommitStageAndMoveAndInsertExistingPartitions(t *testing.T) {
	cat := newTestCatalog(t)
	lf, root := newTestFs(t)
	ctx := context.Background()
	table := types.TableKey{Schema: "db", Table: "t"}

	require.NoError(t, cat.CreateTable(ctx, &types.Table{Schema: "db", Name: "t", Location: "warehouse/t", Managed: true, Partitioned: true}))
	require.NoError(t, cat.AddPartitions(ctx, table, []*types.Partition{
		{Values: []string{"b"}, Location: "warehouse/t/p=b", Statistics: types.Stats{NumRows: 10}},
	}))

	writeFile(t, root, "stg/p=a/part-0.parquet")
	writeFile(t, root, "stg/p=b/f1")
	writeFile(t, root, "stg/p=b/f2")

	opCtx := types.OpContext{User: "alice", QueryID: "Q1"}
	log := actionlog.New()
	require.NoError(t, log.AddPartition(
		types.PartitionKey{Table: table, Values: []string{"a"}},
		&types.Partition{Values: []string{"a"}, Location: "warehouse/t/p=a", Parameters: map[string]string{"query_id": "Q1"}},
		opCtx,
		types.PartitionExtras{CurrentLocation: "stg/p=a"},
	))
	require.NoError(t, log.FinishInsertIntoExistingPartition(
		types.PartitionKey{Table: table, Values: []string{"b"}},
		&types.Partition{Values: []string{"b"}, Location: "warehouse/t/p=b"},
		opCtx,
		types.PartitionExtras{CurrentLocation: "stg/p=b", FileNames: []string{"f1", "f2"}, StatisticsDelta: types.Stats{NumRows: 5}},
		types.Stats{NumRows: 10},
		true,
	))

	registry := writeintent.New()
	registry.Declare(types.WriteIntent{Mode: types.WriteModeStageAndMove, Ctx: opCtx, QueryID: "Q1", StagingRoot: "stg", Table: table})

	c := New(cat, lf, Config{})
	err := c.Commit(ctx, log, registry, "Q1")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "warehouse/t/p=a/part-0.parquet"))
	assert.FileExists(t, filepath.Join(root, "warehouse/t/p=b/f1"))
	assert.FileExists(t, filepath.Join(root, "warehouse/t/p=b/f2"))

	got, err := cat.GetPartition(ctx, types.PartitionKey{Table: table, Values: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "warehouse/t/p=a", got.Location)

	stats, err := cat.GetPartitionStatistics(ctx, types.PartitionKey{Table: table, Values: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(15), stats.NumRows)

	_, err = os.Stat(filepath.Join(root, "stg"))
	assert.True(t, os.IsNotExist(err), "staging root should be swept after commit")
}

// wrappedCatalog lets a single test override one catalog method while
// delegating everything else to a real boltcatalog.Catalog.
type wrappedCatalog struct {
	*boltcatalog.Catalog
	failTableStats bool
}

func (w *wrappedCatalog) UpdateTableStatistics(ctx context.Context, key types.TableKey, transform func(types.Stats) types.Stats) error {
	if w.failTableStats {
		return assert.AnError
	}
	return w.Catalog.UpdateTableStatistics(ctx, key, transform)
}

// TestCommitAlterRollbackPath exercises scenario S2: a createTable that
// collapses to ALTER after a prior DROP on the same table, where the
// reversible catalog phase gets as far as replaceTable before a
// statistics update fails, forcing Phase D to undo both the directory
// rename-aside and the replaceTable.
func TestCommitAlterRollbackPath(t *testing.T) {
	cat := newTestCatalog(t)
	lf, root := newTestFs(t)
	ctx := context.Background()
	table := types.TableKey{Schema: "db", Table: "t"}

	oldTable := &types.Table{Schema: "db", Name: "t", Location: "w/t", Managed: true}
	require.NoError(t, cat.CreateTable(ctx, oldTable))
	writeFile(t, root, "w/t/existing.parquet")

	wrapped := &wrappedCatalog{Catalog: cat, failTableStats: true}

	opCtx := types.OpContext{User: "alice", QueryID: "Q2"}
	log := actionlog.New()
	require.NoError(t, log.DropTable(table, opCtx))
	newTable := &types.Table{Schema: "db", Name: "t", Location: "w/t", Managed: true}
	require.NoError(t, log.CreateTable(table, newTable, opCtx, types.TableExtras{}))

	registry := writeintent.New()
	c := New(wrapped, lf, Config{})
	err := c.Commit(ctx, log, registry, "Q2")
	require.Error(t, err)

	assert.DirExists(t, filepath.Join(root, "w/t"))
	assert.FileExists(t, filepath.Join(root, "w/t/existing.parquet"))

	entries, err := os.ReadDir(filepath.Join(root, "w"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the rename-aside staging directory should have been renamed back, leaving only the original")

	got, err := cat.GetTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, oldTable.Location, got.Location)
}

// TestCommitDropTablePhaseE exercises the irreversible-drop path: a
// buffered DROP reaches Phase E and the table is actually gone afterward.
func TestCommitDropTablePhaseE(t *testing.T) {
	cat := newTestCatalog(t)
	lf, _ := newTestFs(t)
	ctx := context.Background()
	table := types.TableKey{Schema: "db", Table: "t"}
	require.NoError(t, cat.CreateTable(ctx, &types.Table{Schema: "db", Name: "t", Location: "w/t"}))

	log := actionlog.New()
	require.NoError(t, log.DropTable(table, types.OpContext{User: "alice", QueryID: "Q3"}))

	c := New(cat, lf, Config{})
	err := c.Commit(ctx, log, writeintent.New(), "Q3")
	require.NoError(t, err)

	_, err = cat.GetTable(ctx, table)
	assert.Error(t, err)
}
