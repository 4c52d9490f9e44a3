/*
Package fs defines the Fs contract (C1): the coordinator's filesystem
dependency, covering exactly the primitives the commit protocol needs
(Exists, Mkdirs, Rename, Delete, ListStatus), and ships localfs, a reference
implementation over the local on-disk filesystem.

# Rename semantics

Rename returns (false, nil) rather than an error on benign failure (e.g. the
destination already exists). Phase D of the committer treats a false return
the same way it treats an error: it stops forward progress and begins undo.
This mirrors how a real distributed filesystem reports "rename lost the
race" without raising an exception.

# Delete idempotence

Delete treats a missing path as success. Rollback and best-effort cleanup
both call Delete on paths that may already be gone (because a partial
rename succeeded, or a previous cleanup attempt got there first), so
requiring callers to pre-check Exists would just move the race rather than
remove it.

# Staging paths

StagingPath builds the "<parent>/_temp_<origName>_<queryId>" layout. The
committer uses it when a table or partition ALTER keeps its location: during
prepare the old directory is renamed aside to this sibling, tagged with the
query id; Phase D renames it back, and Phase F deletes it unless
SkipDeletionForAlter is set.
*/
package fs
