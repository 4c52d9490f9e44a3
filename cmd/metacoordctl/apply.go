package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/metacoord/pkg/txcontroller"
	"github.com/cuemby/metacoord/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply -f FILE",
	Short: "Run one transaction manifest against the coordinator",
	Long: `Apply reads a YAML transaction manifest describing a query id, an
operator identity, a set of declared write intentions, and a sequence of
buffered actions, then runs the whole thing through one coordinator Buffer:
every action is registered in order, then the transaction commits (or, with
--rollback, is rolled back instead).

Example manifest:

  queryId: Q1
  user: alice
  intents:
    - mode: STAGE_AND_MOVE
      stagingRoot: stg
      table: {schema: db, table: t}
  actions:
    - op: addPartition
      table: {schema: db, table: t}
      partition: {values: [a], location: warehouse/t/p=a, parameters: {query_id: Q1}}
`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "transaction manifest YAML file (required)")
	applyCmd.Flags().Bool("rollback", false, "roll back instead of committing")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// manifest is the on-disk shape of one transaction. Every action carries
// the full union of fields any op might need; unused fields are simply
// left zero.
type manifest struct {
	QueryID string           `yaml:"queryId"`
	User    string           `yaml:"user"`
	Config  manifestConfig   `yaml:"config"`
	Intents []manifestIntent `yaml:"intents"`
	Actions []manifestAction `yaml:"actions"`
}

type manifestConfig struct {
	SkipDeletionForAlter        bool `yaml:"skipDeletionForAlter"`
	SkipTargetCleanupOnRollback bool `yaml:"skipTargetCleanupOnRollback"`
	PartitionCommitBatchSize    int  `yaml:"partitionCommitBatchSize"`
}

type manifestIntent struct {
	Mode        string           `yaml:"mode"`
	StagingRoot string           `yaml:"stagingRoot"`
	Table       manifestTableKey `yaml:"table"`
}

type manifestTableKey struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

type manifestTable struct {
	Schema      string            `yaml:"schema"`
	Name        string            `yaml:"name"`
	Location    string            `yaml:"location"`
	Managed     bool              `yaml:"managed"`
	Partitioned bool              `yaml:"partitioned"`
	Owner       string            `yaml:"owner"`
	Columns     []manifestColumn  `yaml:"columns"`
	Parameters  map[string]string `yaml:"parameters"`
}

type manifestColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type manifestPartition struct {
	Values     []string          `yaml:"values"`
	Location   string            `yaml:"location"`
	Parameters map[string]string `yaml:"parameters"`
}

type manifestStats struct {
	NumRows     int64 `yaml:"numRows"`
	NumFiles    int64 `yaml:"numFiles"`
	RawDataSize int64 `yaml:"rawDataSize"`
}

type manifestAction struct {
	Op              string             `yaml:"op"`
	Table           manifestTableKey   `yaml:"table"`
	NewTable        *manifestTable     `yaml:"newTable"`
	Partition       *manifestPartition `yaml:"partition"`
	CurrentLocation string             `yaml:"currentLocation"`
	FileNames       []string           `yaml:"fileNames"`
	StatisticsDelta manifestStats      `yaml:"statisticsDelta"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	rollback, _ := cmd.Flags().GetBool("rollback")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if m.QueryID == "" {
		m.QueryID = uuid.New().String()
	}

	cat, lf, err := openDeps()
	if err != nil {
		return fmt.Errorf("open catalog/filesystem: %w", err)
	}
	defer cat.Close()

	cfg := txcontroller.Config{
		SkipDeletionForAlter:        m.Config.SkipDeletionForAlter,
		SkipTargetCleanupOnRollback: m.Config.SkipTargetCleanupOnRollback,
		PartitionCommitBatchSize:    m.Config.PartitionCommitBatchSize,
	}
	buf := txcontroller.New(cat, lf, cfg, m.QueryID)
	ctx := context.Background()
	opCtx := types.OpContext{User: m.User, QueryID: m.QueryID}

	for _, intent := range m.Intents {
		if err := buf.DeclareIntentionToWrite(ctx, types.WriteIntent{
			Mode:        types.WriteMode(intent.Mode),
			Ctx:         opCtx,
			QueryID:     m.QueryID,
			StagingRoot: intent.StagingRoot,
			Table:       types.TableKey{Schema: intent.Table.Schema, Table: intent.Table.Table},
		}); err != nil {
			return fmt.Errorf("declare intent: %w", err)
		}
	}

	for i, action := range m.Actions {
		if err := applyAction(ctx, buf, opCtx, action); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, action.Op, err)
		}
	}

	if rollback {
		if err := buf.Rollback(ctx); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		fmt.Println("transaction rolled back")
		return nil
	}
	if err := buf.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	fmt.Println("transaction committed")
	return nil
}

func applyAction(ctx context.Context, buf *txcontroller.Buffer, opCtx types.OpContext, a manifestAction) error {
	tableKey := types.TableKey{Schema: a.Table.Schema, Table: a.Table.Table}

	switch a.Op {
	case "createTable":
		if a.NewTable == nil {
			return fmt.Errorf("createTable requires newTable")
		}
		return buf.CreateTable(ctx, tableKey, toTable(a.NewTable), opCtx, types.TableExtras{
			CurrentLocation: a.CurrentLocation,
			FileNames:       a.FileNames,
		})

	case "dropTable":
		return buf.DropTable(ctx, tableKey, opCtx)

	case "finishInsertIntoExistingTable":
		if a.NewTable == nil {
			return fmt.Errorf("finishInsertIntoExistingTable requires newTable")
		}
		return buf.FinishInsertIntoExistingTable(ctx, tableKey, toTable(a.NewTable), opCtx, types.TableExtras{
			CurrentLocation: a.CurrentLocation,
			FileNames:       a.FileNames,
			StatisticsDelta: toStats(a.StatisticsDelta),
		})

	case "addPartition":
		if a.Partition == nil {
			return fmt.Errorf("addPartition requires partition")
		}
		key := types.PartitionKey{Table: tableKey, Values: a.Partition.Values}
		return buf.AddPartition(ctx, key, toPartition(a.Partition), opCtx, types.PartitionExtras{
			CurrentLocation: a.CurrentLocation,
			FileNames:       a.FileNames,
		})

	case "dropPartition":
		if a.Partition == nil {
			return fmt.Errorf("dropPartition requires partition.values")
		}
		key := types.PartitionKey{Table: tableKey, Values: a.Partition.Values}
		return buf.DropPartition(ctx, key, opCtx)

	case "finishInsertIntoExistingPartition":
		if a.Partition == nil {
			return fmt.Errorf("finishInsertIntoExistingPartition requires partition")
		}
		key := types.PartitionKey{Table: tableKey, Values: a.Partition.Values}
		return buf.FinishInsertIntoExistingPartition(ctx, key, toPartition(a.Partition), opCtx, types.PartitionExtras{
			CurrentLocation: a.CurrentLocation,
			FileNames:       a.FileNames,
			StatisticsDelta: toStats(a.StatisticsDelta),
		})

	default:
		return fmt.Errorf("unknown op %q", a.Op)
	}
}

func toTable(t *manifestTable) *types.Table {
	columns := make([]types.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		columns = append(columns, types.Column{Name: c.Name, Type: c.Type})
	}
	return &types.Table{
		Schema:      t.Schema,
		Name:        t.Name,
		Location:    t.Location,
		Columns:     columns,
		Owner:       t.Owner,
		Parameters:  t.Parameters,
		Managed:     t.Managed,
		Partitioned: t.Partitioned,
	}
}

func toPartition(p *manifestPartition) *types.Partition {
	return &types.Partition{Values: p.Values, Location: p.Location, Parameters: p.Parameters}
}

func toStats(s manifestStats) types.Stats {
	return types.Stats{NumRows: s.NumRows, NumFiles: s.NumFiles, RawDataSize: s.RawDataSize}
}
