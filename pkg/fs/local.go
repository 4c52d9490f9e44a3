// Package fs defines the Fs contract (C1): the coordinator's filesystem
// dependency, plus localfs, a reference implementation over the local
// on-disk filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/metacoord/pkg/types"
)

// FileStatus describes one directory entry, as returned by ListStatus.
type FileStatus struct {
	Path        string
	Name        string
	IsFile      bool
	IsDirectory bool
}

// Fs is the filesystem dependency the coordinator stages renames and
// deletes against. Implementations should be safe for concurrent use by a
// single coordinator transaction; the coordinator itself serializes calls
// under its own mutex, but rename-pipeline workers call it from multiple
// goroutines within one transaction.
type Fs interface {
	// Exists reports whether path exists.
	Exists(ctx context.Context, creds types.OpContext, path string) (bool, error)

	// Mkdirs creates path and any missing parents. It is not an error for
	// path to already exist.
	Mkdirs(ctx context.Context, creds types.OpContext, path string) error

	// Rename moves src to dst. It returns false (not an error) on benign
	// rename failure (e.g. dst already exists on a filesystem without
	// atomic overwrite semantics); callers treat false as a signal to run
	// Phase D, not as a Go error per se.
	Rename(ctx context.Context, creds types.OpContext, src, dst string) (bool, error)

	// Delete removes path. If recursive, directory contents are removed
	// too. A FileNotFound condition counts as success (idempotent delete).
	Delete(ctx context.Context, creds types.OpContext, path string, recursive bool) (bool, error)

	// ListStatus lists the immediate children of dir.
	ListStatus(ctx context.Context, creds types.OpContext, dir string) ([]FileStatus, error)
}

// DefaultRootPath is the base directory localfs resolves relative paths
// against when none is supplied.
const DefaultRootPath = "/var/lib/metacoord/data"

// LocalFs implements Fs over the local on-disk filesystem. It ignores
// types.OpContext.FsCredentials: local paths carry no separate credential
// concept, but the parameter is part of the Fs contract so that other
// implementations (e.g. an object-store-backed Fs) can use it.
type LocalFs struct {
	root string
}

// NewLocalFs creates a LocalFs rooted at root (DefaultRootPath if empty),
// creating the root directory if it does not already exist.
func NewLocalFs(root string) (*LocalFs, error) {
	if root == "" {
		root = DefaultRootPath
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fs: create root %s: %w", root, err)
	}
	return &LocalFs{root: root}, nil
}

var _ Fs = (*LocalFs)(nil)

func (f *LocalFs) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.root, path)
}

func (f *LocalFs) Exists(ctx context.Context, creds types.OpContext, path string) (bool, error) {
	_, err := os.Stat(f.resolve(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fs: stat %s: %w", path, err)
	}
	return true, nil
}

func (f *LocalFs) Mkdirs(ctx context.Context, creds types.OpContext, path string) error {
	if err := os.MkdirAll(f.resolve(path), 0o755); err != nil {
		return fmt.Errorf("fs: mkdirs %s: %w", path, err)
	}
	return nil
}

func (f *LocalFs) Rename(ctx context.Context, creds types.OpContext, src, dst string) (bool, error) {
	resolvedSrc, resolvedDst := f.resolve(src), f.resolve(dst)
	if err := os.MkdirAll(filepath.Dir(resolvedDst), 0o755); err != nil {
		return false, fmt.Errorf("fs: mkdirs parent of %s: %w", dst, err)
	}
	if _, err := os.Stat(resolvedDst); err == nil {
		return false, nil
	}
	if err := os.Rename(resolvedSrc, resolvedDst); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("fs: rename %s -> %s: %w", src, dst, err)
	}
	return true, nil
}

func (f *LocalFs) Delete(ctx context.Context, creds types.OpContext, path string, recursive bool) (bool, error) {
	resolved := f.resolve(path)
	var err error
	if recursive {
		err = os.RemoveAll(resolved)
	} else {
		err = os.Remove(resolved)
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("fs: delete %s: %w", path, err)
	}
	return true, nil
}

func (f *LocalFs) ListStatus(ctx context.Context, creds types.OpContext, dir string) ([]FileStatus, error) {
	entries, err := os.ReadDir(f.resolve(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fs: listStatus %s: %w", dir, err)
	}
	statuses := make([]FileStatus, 0, len(entries))
	for _, e := range entries {
		statuses = append(statuses, FileStatus{
			Path:        filepath.Join(dir, e.Name()),
			Name:        e.Name(),
			IsFile:      !e.IsDir(),
			IsDirectory: e.IsDir(),
		})
	}
	return statuses, nil
}

// StagingPath builds the "<parent>/_temp_<origName>_<queryId>" pattern used
// for safe rename-aside staging directories.
func StagingPath(parent, origName, queryID string) string {
	return filepath.Join(parent, fmt.Sprintf("_temp_%s_%s", origName, queryID))
}
