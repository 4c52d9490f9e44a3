// Package types defines the core data model shared by every component of the
// metastore coordinator: entity keys, buffered actions, write intentions, and
// the statistics value type. Nothing in this package talks to a catalog or a
// filesystem; it only describes the shapes that flow between them.
package types

import "time"

// TableKey identifies a table by its containing schema and name.
type TableKey struct {
	Schema string
	Table  string
}

// PartitionKey identifies a partition by its table and ordered partition
// values (e.g. ["2024", "01"] for a two-column partitioning scheme).
type PartitionKey struct {
	Table  TableKey
	Values []string
}

// OpContext carries the identity of the caller across every catalog and
// filesystem call: user, query id, and an opaque filesystem credential blob.
// The coordinator never interprets FsCredentials; it only threads it through
// to the Fs implementation.
type OpContext struct {
	User           string
	QueryID        string
	FsCredentials  []byte
}

// Stats holds the subset of table/partition statistics the coordinator needs
// to merge or subtract at commit time. Real statistics arithmetic (column
// histograms, NDVs, etc.) lives outside the core per spec §1; this is the
// reduced shape the transformation-function contract in §6 operates on.
type Stats struct {
	NumRows     int64
	NumFiles    int64
	RawDataSize int64
}

// Merge adds two statistics values field by field.
func Merge(a, b Stats) Stats {
	return Stats{
		NumRows:     a.NumRows + b.NumRows,
		NumFiles:    a.NumFiles + b.NumFiles,
		RawDataSize: a.RawDataSize + b.RawDataSize,
	}
}

// Subtract removes b from a, flooring every field at zero so a SUBTRACT
// transformation never produces a negative count.
func Subtract(a, b Stats) Stats {
	return Stats{
		NumRows:     floorZero(a.NumRows - b.NumRows),
		NumFiles:    floorZero(a.NumFiles - b.NumFiles),
		RawDataSize: floorZero(a.RawDataSize - b.RawDataSize),
	}
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Table is the catalog-visible value for a TableKey.
type Table struct {
	Schema     string
	Name       string
	Location   string
	Columns    []Column
	Owner      string
	Parameters map[string]string
	Managed    bool // MANAGED vs EXTERNAL storage
	Partitioned bool
	CreatedAt  time.Time
}

// Column describes one column of a table.
type Column struct {
	Name string
	Type string
}

// Partition is the catalog-visible value for a PartitionKey.
type Partition struct {
	Values     []string
	Location   string
	Parameters map[string]string
	Statistics Stats
}

// ActionKind tags the variant of a buffered Action.
type ActionKind string

const (
	ActionAdd            ActionKind = "ADD"
	ActionAlter          ActionKind = "ALTER"
	ActionInsertExisting ActionKind = "INSERT_EXISTING"
	ActionDrop           ActionKind = "DROP"
)

// TableExtras carries the table-specific fields of an Action.
type TableExtras struct {
	PrincipalPrivileges []string // optional; nil if not granted as part of this action
	CurrentLocation     string   // staging path; empty if none
	FileNames           []string // files to rename from CurrentLocation to target; nil if none
	IgnoreExisting      bool
	FinalStatistics     Stats
	StatisticsDelta     Stats
}

// PartitionExtras carries the partition-specific fields of an Action.
type PartitionExtras struct {
	CurrentLocation string
	FileNames       []string
	FinalStatistics Stats
	StatisticsDelta Stats
}

// TableAction is a pending mutation against a TableKey.
type TableAction struct {
	Kind    ActionKind
	Payload *Table // nil iff Kind == ActionDrop
	Ctx     OpContext
	Extras  TableExtras
}

// PartitionAction is a pending mutation against a PartitionKey.
type PartitionAction struct {
	Kind    ActionKind
	Payload *Partition // nil iff Kind == ActionDrop
	Ctx     OpContext
	Extras  PartitionExtras
}

// WriteMode classifies how a WriteIntent's staged files relate to the final
// table location.
type WriteMode string

const (
	// StageAndMove: files are written under a staging root and renamed into
	// the target location at commit time.
	WriteModeStageAndMove WriteMode = "STAGE_AND_MOVE"
	// DirectNew: files are written directly under a brand-new table's final
	// location; rollback must clean that location up.
	WriteModeDirectNew WriteMode = "DIRECT_NEW"
	// DirectExisting: files are written directly under an existing table's
	// location; rollback must not delete directories it doesn't own.
	WriteModeDirectExisting WriteMode = "DIRECT_EXISTING"
)

// WriteIntent is a declared write intention, registered before any data is
// written, that determines how rollback-without-commit cleans up.
type WriteIntent struct {
	Mode        WriteMode
	Ctx         OpContext
	QueryID     string
	StagingRoot string
	Table       TableKey
}

// TxState is the top-level buffer state.
type TxState string

const (
	TxEmpty            TxState = "EMPTY"
	TxSharedBuffered   TxState = "SHARED_BUFFERED"
	TxExclusiveBuffered TxState = "EXCLUSIVE_BUFFERED"
	TxFinished         TxState = "FINISHED"
)

// DefaultQueryIDParameterKey is the table/partition parameter key the
// coordinator consults to recover the query id that wrote a given entity,
// mirroring "getPrestoQueryId" from spec §6.
const DefaultQueryIDParameterKey = "query_id"

// QueryIDOf extracts the query id tag from a parameter map using the given
// key (pass DefaultQueryIDParameterKey unless the caller configured another).
func QueryIDOf(parameters map[string]string, key string) (string, bool) {
	if parameters == nil {
		return "", false
	}
	v, ok := parameters[key]
	return v, ok && v != ""
}
