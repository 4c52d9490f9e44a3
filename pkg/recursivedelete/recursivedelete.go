// Package recursivedelete implements the predicate recursive delete helper
// (C8): a bounded recursive walk that only removes files matching a
// query-id prefix/suffix set, never touches names under the reserved
// engine prefix, and may optionally garbage-collect directories left empty
// by the walk.
package recursivedelete

import (
	"context"
	"strings"

	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/types"
)

// ReservedPrefix marks names the walk never deletes or recurses into,
// mirroring the source engine's hidden dot-file convention.
const ReservedPrefix = "."

// Delete walks dir, deleting files eligible under queryIDs (a name is
// eligible iff it starts or ends with one of the strings in queryIDs; an
// empty queryIDs slice makes nothing eligible, while a slice holding the
// empty string makes everything eligible since every name has "" as both
// prefix and suffix). Names starting with ReservedPrefix are never deleted
// and never recursed into. If deleteEmptyDirs is set and dir ends up with
// no remaining children, dir itself is deleted.
//
// It returns whether dir no longer exists afterward, and the list of
// paths that were eligible for deletion but could not be removed (listing
// and delete failures are captured here rather than returned as an error).
func Delete(ctx context.Context, f fs.Fs, creds types.OpContext, dir string, queryIDs []string, deleteEmptyDirs bool) (gone bool, notDeleted []string, err error) {
	exists, err := f.Exists(ctx, creds, dir)
	if err != nil {
		return false, nil, err
	}
	if !exists {
		return true, nil, nil
	}

	entries, err := f.ListStatus(ctx, creds, dir)
	if err != nil {
		return false, []string{dir}, nil
	}

	leftover := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name, ReservedPrefix) {
			leftover++
			continue
		}
		if entry.IsDirectory {
			subGone, subRemaining, subErr := Delete(ctx, f, creds, entry.Path, queryIDs, deleteEmptyDirs)
			if subErr != nil {
				notDeleted = append(notDeleted, subRemaining...)
				leftover++
				continue
			}
			notDeleted = append(notDeleted, subRemaining...)
			if !subGone {
				leftover++
			}
			continue
		}
		if !eligible(entry.Name, queryIDs) {
			leftover++
			continue
		}
		ok, delErr := f.Delete(ctx, creds, entry.Path, false)
		if delErr != nil || !ok {
			notDeleted = append(notDeleted, entry.Path)
			leftover++
		}
	}

	gone = leftover == 0 && deleteEmptyDirs
	if gone {
		ok, delErr := f.Delete(ctx, creds, dir, false)
		if delErr != nil || !ok {
			gone = false
			notDeleted = append(notDeleted, dir)
		}
	}
	return gone, notDeleted, nil
}

// eligible reports whether name starts or ends with any of queryIDs.
func eligible(name string, queryIDs []string) bool {
	for _, id := range queryIDs {
		if strings.HasPrefix(name, id) || strings.HasSuffix(name, id) {
			return true
		}
	}
	return false
}
