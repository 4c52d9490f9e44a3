/*
Package catalog defines the Catalog contract (C1) and ships one reference
implementation, boltcatalog, backed by BoltDB (bbolt).

# Architecture

Catalog is deliberately narrow and non-transactional: every method is a
single remote call with no cross-call atomicity, matching spec §1's framing
of the catalog as "a remote, non-transactional service that may fail or
observe concurrent mutations." All two-phase-commit machinery that makes a
transaction out of a sequence of these calls lives in pkg/committer, not here.

	┌────────────────────── CATALOG CONTRACT ──────────────────────┐
	│                                                                │
	│  Databases   Tables   Partitions   Statistics   Roles/Privs   │
	│     │           │          │            │             │       │
	│     └───────────┴──────────┴────────────┴─────────────┘       │
	│                         Catalog interface                     │
	│                                │                               │
	│              ┌─────────────────┴─────────────────┐            │
	│              ▼                                   ▼            │
	│     boltcatalog.Catalog                  (production adapter, │
	│     (bbolt-backed reference                external to this   │
	│      implementation for tests              module's scope)    │
	│      and the CLI demo)                                         │
	└────────────────────────────────────────────────────────────────┘

# boltcatalog

One BoltDB bucket per entity kind ("databases", "tables", "partitions",
"roles", "role_grants", "privileges", "table_stats", "partition_stats"),
JSON-encoded values, keyed by a
deterministic string form of the entity's key (e.g. "schema/table" for
TableKey, "schema/table/v1/v2" for PartitionKey). Reads use db.View, writes
use db.Update; there is no cross-call transaction, so two boltcatalog calls
made back to back are exactly as non-atomic as a real remote catalog would
be, which is the point: it exercises the coordinator's own two-phase-commit
logic rather than hiding behind a transactional backing store.

# See Also

  - pkg/committer for how Catalog calls are sequenced into forward/undo steps
  - pkg/readview for how Catalog state is merged with buffered actions
*/
package catalog
