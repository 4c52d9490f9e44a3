package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/types"
)

func newTestLocalFs(t *testing.T) *LocalFs {
	t.Helper()
	root := t.TempDir()
	lf, err := NewLocalFs(root)
	require.NoError(t, err)
	return lf
}

func TestLocalFsMkdirsAndExists(t *testing.T) {
	lf := newTestLocalFs(t)
	ctx := context.Background()
	creds := types.OpContext{User: "alice"}

	ok, err := lf.Exists(ctx, creds, "a/b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lf.Mkdirs(ctx, creds, "a/b"))

	ok, err = lf.Exists(ctx, creds, "a/b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalFsRenameSucceeds(t *testing.T) {
	lf := newTestLocalFs(t)
	ctx := context.Background()
	creds := types.OpContext{User: "alice"}

	require.NoError(t, lf.Mkdirs(ctx, creds, "src"))
	require.NoError(t, os.WriteFile(filepath.Join(lf.root, "src", "f.txt"), []byte("x"), 0o644))

	ok, err := lf.Rename(ctx, creds, "src", "dst")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := lf.Exists(ctx, creds, "dst/f.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFsRenameFalseWhenTargetExists(t *testing.T) {
	lf := newTestLocalFs(t)
	ctx := context.Background()
	creds := types.OpContext{User: "alice"}

	require.NoError(t, lf.Mkdirs(ctx, creds, "src"))
	require.NoError(t, lf.Mkdirs(ctx, creds, "dst"))

	ok, err := lf.Rename(ctx, creds, "src", "dst")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalFsDeleteIsIdempotent(t *testing.T) {
	lf := newTestLocalFs(t)
	ctx := context.Background()
	creds := types.OpContext{User: "alice"}

	ok, err := lf.Delete(ctx, creds, "never-existed", true)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lf.Mkdirs(ctx, creds, "dir"))
	ok, err = lf.Delete(ctx, creds, "dir", true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lf.Delete(ctx, creds, "dir", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalFsListStatus(t *testing.T) {
	lf := newTestLocalFs(t)
	ctx := context.Background()
	creds := types.OpContext{User: "alice"}

	require.NoError(t, lf.Mkdirs(ctx, creds, "parent/child"))
	require.NoError(t, os.WriteFile(filepath.Join(lf.root, "parent", "file.txt"), []byte("x"), 0o644))

	statuses, err := lf.ListStatus(ctx, creds, "parent")
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]FileStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.True(t, byName["child"].IsDirectory)
	assert.True(t, byName["file.txt"].IsFile)
}

func TestLocalFsListStatusMissingDirReturnsEmpty(t *testing.T) {
	lf := newTestLocalFs(t)
	statuses, err := lf.ListStatus(context.Background(), types.OpContext{}, "missing")
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestStagingPath(t *testing.T) {
	got := StagingPath("/warehouse/db/table", "part=1", "q123")
	assert.Equal(t, "/warehouse/db/table/_temp_part=1_q123", got)
}
