/*
Package actionlog implements the in-memory pending-mutation map (C2): one
Action per TableKey, one Action per PartitionKey, collapsed and validated
per the rules in data-model invariants 1-5.

# Collapsing rules

A second registration on a key that already has an action does not always
fail: ADD following a same-user DROP collapses to ALTER (the dropped
table's directory survives until commit, rather than being deleted between
the drop and the create). ADD following a DROP registered by a different
user is a TRANSACTION_CONFLICT, not an AlreadyExists: another writer, not
this transaction's own ordering, caused the clash. ADD following an ADD,
ALTER or INSERT_EXISTING is an AlreadyExists whichever user registered it.

# Schema/partition exclusivity

HasPartitionAction backs invariant 5: CreateTable/DropTable check it and
refuse a table-level ADD/DROP while the table has any pending partition
action. Partition registrations do not check for a pending table action.
CheckDirectExisting uses the same check to refuse a DIRECT_EXISTING write
intent on a table with pending partition actions.
*/
package actionlog
