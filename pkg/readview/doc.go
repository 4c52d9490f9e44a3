/*
Package readview implements the read-through overlay (C6) that answers
every read operation a transaction can perform by merging Catalog state
with the in-transaction ActionLog.

# Overlay rules

Tables: no pending action delegates straight to the catalog. An
ADD/ALTER/INSERT_EXISTING action returns the buffered value; a DROP
reports not found, even though the catalog may still have the row.

Partitions follow the same shape, with one addition: a partition returned
from a pending ADD/ALTER/INSERT_EXISTING is augmented, meaning its storage
location is overridden with the write's staging location so in-transaction
readers see files that have not been renamed into their final place yet.

GetPartitionNames is the interesting case. It starts from the catalog's
answer (or the empty set, for a table this transaction itself created),
drops names with a pending DROP, fails with TRANSACTION_CONFLICT on a name
with a pending ADD from elsewhere, and finally appends this transaction's
own pending ADDs that the catalog doesn't know about yet.

Listing calls (GetAllTables/GetAllViews) are not reconciled with the
overlay at all: any pending table action in the transaction makes them
fail, since there's no overlay story for "some subset of names I'd return
might be stale."
*/
package readview
