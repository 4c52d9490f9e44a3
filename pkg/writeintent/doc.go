/*
Package writeintent implements the WriteIntentRegistry (C3): an ordered
record of every declareIntentionToWrite call in a transaction, and the
rollback cleanup that runs when a transaction never reaches a prepared
commit.

# Rollback per write mode

STAGE_AND_MOVE and DIRECT_NEW both clean up by recursively deleting
everything under the intent's staging root that matches the transaction's
query id, garbage-collecting directories left empty. DIRECT_NEW additionally
honors SkipTargetCleanupOnRollback, since its target may be a
pre-existing, externally-owned location that the intent only reserved a
corner of.

DIRECT_EXISTING is the delicate case: the write touched an existing table's
partitions directly, some of which may live outside the table's own
directory tree. Rollback enumerates the table's current partitions,
classifies each by whether its location falls under the base directory
(a pure string/depth comparison; isSubtree never touches the filesystem),
and predicate-deletes query-id-tagged files everywhere, but never deletes
a containing directory it does not itself own.
*/
package writeintent
