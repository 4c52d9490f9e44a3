package recursivedelete

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/types"
)

func newTestFs(t *testing.T) (*fs.LocalFs, string) {
	t.Helper()
	root := t.TempDir()
	lf, err := fs.NewLocalFs(root)
	require.NoError(t, err)
	return lf, root
}

func write(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
}

func TestDeleteOnlyEligibleFiles(t *testing.T) {
	lf, root := newTestFs(t)
	write(t, root, "dir/q1_file.txt")
	write(t, root, "dir/file_q1.txt")
	write(t, root, "dir/other.txt")

	ctx := context.Background()
	creds := types.OpContext{}
	gone, notDeleted, err := Delete(ctx, lf, creds, "dir", []string{"q1"}, false)
	require.NoError(t, err)
	assert.Empty(t, notDeleted)
	assert.False(t, gone)

	exists, _ := lf.Exists(ctx, creds, "dir/q1_file.txt")
	assert.False(t, exists)
	exists, _ = lf.Exists(ctx, creds, "dir/file_q1.txt")
	assert.False(t, exists)
	exists, _ = lf.Exists(ctx, creds, "dir/other.txt")
	assert.True(t, exists)
}

func TestDeleteSkipsReservedPrefix(t *testing.T) {
	lf, root := newTestFs(t)
	write(t, root, "dir/.hidden_q1")
	write(t, root, "dir/q1_visible")

	ctx := context.Background()
	creds := types.OpContext{}
	_, _, err := Delete(ctx, lf, creds, "dir", []string{"q1"}, false)
	require.NoError(t, err)

	exists, _ := lf.Exists(ctx, creds, "dir/.hidden_q1")
	assert.True(t, exists)
	exists, _ = lf.Exists(ctx, creds, "dir/q1_visible")
	assert.False(t, exists)
}

func TestDeleteEmptyQueryIDsDeletesNothing(t *testing.T) {
	lf, root := newTestFs(t)
	write(t, root, "dir/file.txt")

	gone, notDeleted, err := Delete(context.Background(), lf, types.OpContext{}, "dir", nil, false)
	require.NoError(t, err)
	assert.Empty(t, notDeleted)
	assert.False(t, gone)

	exists, _ := lf.Exists(context.Background(), types.OpContext{}, "dir/file.txt")
	assert.True(t, exists)
}

func TestDeleteEmptyStringQueryIDMatchesEverything(t *testing.T) {
	lf, root := newTestFs(t)
	write(t, root, "dir/anything.txt")

	gone, notDeleted, err := Delete(context.Background(), lf, types.OpContext{}, "dir", []string{""}, true)
	require.NoError(t, err)
	assert.Empty(t, notDeleted)
	assert.True(t, gone)

	exists, _ := lf.Exists(context.Background(), types.OpContext{}, "dir")
	assert.False(t, exists)
}

func TestDeleteGCsEmptyDirectoriesRecursively(t *testing.T) {
	lf, root := newTestFs(t)
	write(t, root, "dir/sub/q1_file.txt")

	gone, notDeleted, err := Delete(context.Background(), lf, types.OpContext{}, "dir", []string{"q1"}, true)
	require.NoError(t, err)
	assert.Empty(t, notDeleted)
	assert.True(t, gone)

	exists, _ := lf.Exists(context.Background(), types.OpContext{}, "dir")
	assert.False(t, exists)
}

func TestDeleteMissingDirIsGone(t *testing.T) {
	lf, _ := newTestFs(t)
	gone, notDeleted, err := Delete(context.Background(), lf, types.OpContext{}, "missing", []string{"q1"}, true)
	require.NoError(t, err)
	assert.Empty(t, notDeleted)
	assert.True(t, gone)
}
