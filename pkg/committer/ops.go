package committer

import "github.com/cuemby/metacoord/pkg/types"

// addTableOp is the forward/undo pair for a Table ADD action: forward
// creates the catalog row, undo drops it. done is false until the forward
// catalog call actually succeeds, so undo is a no-op if forward never ran.
type addTableOp struct {
	key   types.TableKey
	table *types.Table
	done  bool
}

// alterTableOp is the forward/undo pair for a Table ALTER action: forward
// replaces the catalog row with the new value, undo replaces it back with
// the value read at prepare time.
type alterTableOp struct {
	key      types.TableKey
	oldTable *types.Table
	newTable *types.Table
	done     bool
}

// alterPartitionOp mirrors alterTableOp for partitions.
type alterPartitionOp struct {
	key          types.PartitionKey
	oldPartition *types.Partition
	newPartition *types.Partition
	done         bool
}

// statsTarget distinguishes whether a statsOp targets a table or a
// partition key.
type statsTarget int

const (
	statsTargetTable statsTarget = iota
	statsTargetPartition
)

// statsOp is the forward/undo pair for a statistics replace-or-merge:
// forward sets the key's statistics to newStats, undo restores oldStats.
type statsOp struct {
	target        statsTarget
	tableKey      types.TableKey
	partitionKey  types.PartitionKey
	newStats      types.Stats
	oldStats      types.Stats
	oldStatsKnown bool
	done          bool
}

// irreversibleKind distinguishes a table-drop from a partition-drop
// irreversible op.
type irreversibleKind int

const (
	irreversibleDropTable irreversibleKind = iota
	irreversibleDropPartition
)

// irreversibleOp is a Phase E catalog mutation that is never undone: once
// Phase C has succeeded, a drop is allowed to actually take effect.
type irreversibleOp struct {
	kind         irreversibleKind
	tableKey     types.TableKey
	partitionKey types.PartitionKey
}

// dirRename is a rename-back entry for Phase D-4: undo a synchronous
// directory rename performed during prepare, provided the source still
// exists.
type dirRename struct {
	from, to string
}

// cleanupEntry is one Phase D-3 abort-path delete. recursive is false for
// an INSERT_EXISTING target, where only the specific files this
// transaction renamed in should go, never the rest of an existing
// partition/table directory.
type cleanupEntry struct {
	path      string
	recursive bool
}
