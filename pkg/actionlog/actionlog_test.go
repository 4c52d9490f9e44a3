package actionlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
)

func tk(table string) types.TableKey { return types.TableKey{Schema: "db", Table: table} }

func TestCreateTableAddThenAddFails(t *testing.T) {
	l := New()
	key := tk("t")
	require.NoError(t, l.CreateTable(key, &types.Table{}, types.OpContext{User: "alice"}, types.TableExtras{}))
	err := l.CreateTable(key, &types.Table{}, types.OpContext{User: "alice"}, types.TableExtras{})
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.AlreadyExists))
}

func TestCreateTableAfterDropCollapsesToAlter(t *testing.T) {
	l := New()
	key := tk("t")
	require.NoError(t, l.DropTable(key, types.OpContext{User: "alice"}))
	require.NoError(t, l.CreateTable(key, &types.Table{}, types.OpContext{User: "alice"}, types.TableExtras{}))
	action := l.TableAction(key)
	require.NotNil(t, action)
	assert.Equal(t, types.ActionAlter, action.Kind)
}

func TestCreateTableAfterDropDifferentUserConflicts(t *testing.T) {
	l := New()
	key := tk("t")
	require.NoError(t, l.DropTable(key, types.OpContext{User: "alice"}))
	err := l.CreateTable(key, &types.Table{}, types.OpContext{User: "bob"}, types.TableExtras{})
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.TransactionConflict))
}

func TestDropTableTwiceNotFound(t *testing.T) {
	l := New()
	key := tk("t")
	require.NoError(t, l.DropTable(key, types.OpContext{User: "alice"}))
	err := l.DropTable(key, types.OpContext{User: "alice"})
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.TableNotFound))
}

func TestCreateTableRejectedWithPendingPartitionAction(t *testing.T) {
	l := New()
	key := tk("t")
	pkey := types.PartitionKey{Table: key, Values: []string{"a"}}
	require.NoError(t, l.AddPartition(pkey, &types.Partition{}, types.OpContext{User: "alice"}, types.PartitionExtras{}))

	err := l.CreateTable(key, &types.Table{}, types.OpContext{User: "alice"}, types.TableExtras{})
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.NotSupported))
}

func TestAddPartitionCollapsingAndConflicts(t *testing.T) {
	l := New()
	key := types.PartitionKey{Table: tk("t"), Values: []string{"a"}}

	require.NoError(t, l.DropPartition(key, types.OpContext{User: "alice"}))
	require.NoError(t, l.AddPartition(key, &types.Partition{}, types.OpContext{User: "alice"}, types.PartitionExtras{}))
	assert.Equal(t, types.ActionAlter, l.PartitionAction(key).Kind)

	key2 := types.PartitionKey{Table: tk("t2"), Values: []string{"b"}}
	require.NoError(t, l.DropPartition(key2, types.OpContext{User: "alice"}))
	err := l.AddPartition(key2, &types.Partition{}, types.OpContext{User: "bob"}, types.PartitionExtras{})
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.TransactionConflict))
}

func TestFinishInsertIntoExistingPartitionRequiresStats(t *testing.T) {
	l := New()
	key := types.PartitionKey{Table: tk("t"), Values: []string{"a"}}
	err := l.FinishInsertIntoExistingPartition(key, &types.Partition{}, types.OpContext{}, types.PartitionExtras{}, types.Stats{}, false)
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.MetastoreError))
}

func TestFinishInsertIntoExistingPartitionMergesStats(t *testing.T) {
	l := New()
	key := types.PartitionKey{Table: tk("t"), Values: []string{"a"}}
	current := types.Stats{NumRows: 10, NumFiles: 1, RawDataSize: 100}
	delta := types.Stats{NumRows: 5, NumFiles: 1, RawDataSize: 50}
	err := l.FinishInsertIntoExistingPartition(key, &types.Partition{}, types.OpContext{}, types.PartitionExtras{StatisticsDelta: delta}, current, true)
	require.NoError(t, err)
	action := l.PartitionAction(key)
	assert.Equal(t, types.Stats{NumRows: 15, NumFiles: 2, RawDataSize: 150}, action.Extras.FinalStatistics)
}

func TestCheckDirectExistingRejectsPendingPartitionAction(t *testing.T) {
	l := New()
	table := tk("t")
	pkey := types.PartitionKey{Table: table, Values: []string{"a"}}
	require.NoError(t, l.AddPartition(pkey, &types.Partition{}, types.OpContext{}, types.PartitionExtras{}))
	err := l.CheckDirectExisting(table)
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.NotSupported))
}

func TestCheckAddPartitionPreconditionsRequiresQueryID(t *testing.T) {
	err := CheckAddPartitionPreconditions(&types.Partition{Parameters: map[string]string{}})
	require.Error(t, err)
	assert.True(t, txerrors.Is(err, txerrors.NotSupported))

	err = CheckAddPartitionPreconditions(&types.Partition{Parameters: map[string]string{types.DefaultQueryIDParameterKey: "q1"}})
	require.NoError(t, err)
}
