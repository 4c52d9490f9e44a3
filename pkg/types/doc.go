/*
Package types defines the core data model shared by every component of the
metastore coordinator.

This package contains the entity keys, buffered-action variants, write
intentions, and statistics value type that flow between the ActionLog, the
ReadView, the Committer, and the external Catalog/Fs collaborators. It holds
no behavior of its own beyond Merge/Subtract on Stats and the QueryIDOf
parameter lookup.

# Core Types

Entity keys:
  - TableKey: (schema, table)
  - PartitionKey: (TableKey, ordered partition values)

Catalog values:
  - Table: storage location, columns, owner, parameters
  - Partition: storage location, parameters, statistics

Buffered mutations:
  - ActionKind: ADD | ALTER | INSERT_EXISTING | DROP
  - TableAction / PartitionAction: a tagged Action carrying a nil-iff-DROP
    payload, an OpContext, and kind-specific extras (TableExtras /
    PartitionExtras)

Write intentions:
  - WriteMode: STAGE_AND_MOVE | DIRECT_NEW | DIRECT_EXISTING
  - WriteIntent: (mode, ctx, queryId, stagingRoot, TableKey)

Transaction state:
  - TxState: EMPTY | SHARED_BUFFERED | EXCLUSIVE_BUFFERED | FINISHED

# Design Patterns

Enumeration pattern: every enum is a typed string constant block, e.g.

	type ActionKind string
	const (
	    ActionAdd  ActionKind = "ADD"
	    ActionDrop ActionKind = "DROP"
	)

Optional fields: TableAction.Payload and PartitionAction.Payload are nil iff
Kind == ActionDrop (invariant 2 in the spec); all other optional fields use
the zero value of their type (empty string, nil slice) rather than pointers,
since the coordinator always knows from context whether a field applies.

# Thread Safety

Values in this package carry no synchronization of their own. The ActionLog,
WriteIntentRegistry, and Committer that hold collections of these values are
responsible for guarding concurrent access (see pkg/txcontroller, which holds
the single mutex for an entire transaction's lifetime).

# See Also

  - pkg/actionlog for the keyed map of pending Actions
  - pkg/committer for how Actions become forward/undo steps
  - pkg/txcontroller for the state machine that gates every public operation
*/
package types
