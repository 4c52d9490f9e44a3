package renamepipeline

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

func TestPipelineRenamesAllFiles(t *testing.T) {
	lf, root := newTestFs(t)
	ctx := context.Background()
	creds := types.OpContext{}

	require.NoError(t, lf.Mkdirs(ctx, creds, "src"))
	require.NoError(t, lf.Mkdirs(ctx, creds, "dst"))
	for _, name := range []string{"f1", "f2", "f3"} {
		f, err := os.Create(filepath.Join(root, "src", name))
		require.NoError(t, err)
		f.Close()
	}

	p := New(lf, 2)
	var handles []*Handle
	for _, name := range []string{"f1", "f2", "f3"} {
		handles = append(handles, p.Submit(ctx, creds, "src/"+name, "dst/"+name))
	}

	require.NoError(t, JoinAllPropagate(handles))

	for _, name := range []string{"f1", "f2", "f3"} {
		exists, err := lf.Exists(ctx, creds, "dst/"+name)
		require.NoError(t, err)
		assert.True(t, exists)
	}
}

func TestPipelineCancelSkipsUnstartedTasks(t *testing.T) {
	lf, _ := newTestFs(t)
	ctx := context.Background()
	creds := types.OpContext{}

	p := New(lf, 1)
	p.Cancel()
	h := p.Submit(ctx, creds, "src/f1", "dst/f1")
	require.NoError(t, JoinAllPropagate([]*Handle{h}))

	exists, err := lf.Exists(ctx, creds, "dst/f1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipelineFailureOnExistingTarget(t *testing.T) {
	lf, _ := newTestFs(t)
	ctx := context.Background()
	creds := types.OpContext{}
	require.NoError(t, lf.Mkdirs(ctx, creds, "src"))
	require.NoError(t, lf.Mkdirs(ctx, creds, "dst"))

	p := New(lf, 1)
	h := p.Submit(ctx, creds, "src", "dst")
	err := JoinAllPropagate([]*Handle{h})
	require.Error(t, err)
	var renameErr *RenameError
	assert.ErrorAs(t, err, &renameErr)
}

func TestJoinAllQuietIgnoresFailures(t *testing.T) {
	lf, _ := newTestFs(t)
	ctx := context.Background()
	creds := types.OpContext{}
	require.NoError(t, lf.Mkdirs(ctx, creds, "dst"))

	p := New(lf, 1)
	h := p.Submit(ctx, creds, "missing-src", "dst")
	assert.NotPanics(t, func() { JoinAllQuiet([]*Handle{h}) })
}
