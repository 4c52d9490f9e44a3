/*
Package recursivedelete implements the predicate recursive delete helper
(C8) used by rollback (§4.5), the Committer's cleanup phases (§4.4 Phase D
and F), and truncateUnpartitionedTable's unconditional delete.

# Eligibility

A file is eligible for deletion iff its name starts or ends with one of the
caller-supplied query ids. An empty query-id set makes nothing eligible. A
query-id set containing the empty string makes everything eligible, since
every string has "" as both a prefix and a suffix. This is how
truncateUnpartitionedTable expresses "delete unconditionally."

# Hidden-prefix immunity

Any name starting with ReservedPrefix is skipped outright: not deleted and
not recursed into. It still counts as a remaining child, so a directory
holding one is never treated as empty or deleted. This matches
invariant 9 and protects engine bookkeeping files from a transaction's own
cleanup.
*/
package recursivedelete
