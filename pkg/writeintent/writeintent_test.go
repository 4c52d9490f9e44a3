package writeintent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/catalog/boltcatalog"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/types"
)

func newTestDeps(t *testing.T) (*boltcatalog.Catalog, *fs.LocalFs, string) {
	t.Helper()
	dir := t.TempDir()
	cat, err := boltcatalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	lf, err := fs.NewLocalFs(dir)
	require.NoError(t, err)
	return cat, lf, dir
}

func write(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
}

func TestRollbackStageAndMoveCleansQueryScopedFiles(t *testing.T) {
	cat, lf, root := newTestDeps(t)
	ctx := context.Background()
	write(t, root, "stg/q1_a.txt")
	write(t, root, "stg/other.txt")

	r := New()
	r.Declare(types.WriteIntent{
		Mode:        types.WriteModeStageAndMove,
		Ctx:         types.OpContext{},
		QueryID:     "q1",
		StagingRoot: "stg",
		Table:       types.TableKey{Schema: "db", Table: "t"},
	})

	require.NoError(t, r.Rollback(ctx, cat, lf, RollbackOptions{}))

	exists, _ := lf.Exists(ctx, types.OpContext{}, "stg/q1_a.txt")
	assert.False(t, exists)
	exists, _ = lf.Exists(ctx, types.OpContext{}, "stg/other.txt")
	assert.True(t, exists)
}

func TestRollbackDirectNewSkippedWhenOptedOut(t *testing.T) {
	cat, lf, root := newTestDeps(t)
	ctx := context.Background()
	write(t, root, "tgt/q1_a.txt")

	r := New()
	r.Declare(types.WriteIntent{
		Mode:        types.WriteModeDirectNew,
		QueryID:     "q1",
		StagingRoot: "tgt",
		Table:       types.TableKey{Schema: "db", Table: "t"},
	})

	require.NoError(t, r.Rollback(ctx, cat, lf, RollbackOptions{SkipTargetCleanupOnRollback: true}))

	exists, _ := lf.Exists(ctx, types.OpContext{}, "tgt/q1_a.txt")
	assert.True(t, exists)
}

func TestRollbackDirectExistingNeverDeletesContainingDirectory(t *testing.T) {
	cat, lf, root := newTestDeps(t)
	ctx := context.Background()
	table := types.TableKey{Schema: "db", Table: "t"}

	write(t, root, "w/t/p=a/q1_file.txt")
	write(t, root, "outside/p=b/q1_file.txt")

	require.NoError(t, cat.AddPartitions(ctx, table, []*types.Partition{
		{Values: []string{"a"}, Location: "w/t/p=a"},
		{Values: []string{"b"}, Location: "outside/p=b"},
	}))

	r := New()
	r.Declare(types.WriteIntent{
		Mode:        types.WriteModeDirectExisting,
		QueryID:     "q1",
		StagingRoot: "w/t",
		Table:       table,
	})

	require.NoError(t, r.Rollback(ctx, cat, lf, RollbackOptions{}))

	exists, _ := lf.Exists(ctx, types.OpContext{}, "w/t/p=a/q1_file.txt")
	assert.False(t, exists)
	exists, _ = lf.Exists(ctx, types.OpContext{}, "outside/p=b/q1_file.txt")
	assert.False(t, exists)
	// containing directories themselves must survive
	exists, _ = lf.Exists(ctx, types.OpContext{}, "w/t/p=a")
	assert.True(t, exists)
	exists, _ = lf.Exists(ctx, types.OpContext{}, "outside/p=b")
	assert.True(t, exists)
}

func TestIsSubtree(t *testing.T) {
	assert.True(t, isSubtree("/w/t/p=a", "/w/t"))
	assert.True(t, isSubtree("/w/t", "/w/t"))
	assert.False(t, isSubtree("/x/p=b", "/w/t"))
	assert.False(t, isSubtree("/w/tother", "/w/t"))
}
