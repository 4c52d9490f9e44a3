// Package readview implements the ReadView overlay (C6): a read-through
// merge of Catalog state and ActionLog, reinterpreting the teacher's
// direct-store CRUD narrative (get/list semantics, not-found errors) as an
// overlay instead of a direct store.
package readview

import (
	"context"
	"strings"

	"github.com/cuemby/metacoord/pkg/actionlog"
	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
)

// View answers reads by merging a Catalog with an in-transaction ActionLog.
type View struct {
	cat catalog.Catalog
	log *actionlog.Log
}

// New returns a View over cat, overlaid with log.
func New(cat catalog.Catalog, log *actionlog.Log) *View {
	return &View{cat: cat, log: log}
}

// GetTable answers getTable(key) per spec §4.2: no action delegates to the
// catalog; ADD/ALTER/INSERT_EXISTING return the buffered table; DROP
// reports not found.
func (v *View) GetTable(ctx context.Context, key types.TableKey) (*types.Table, error) {
	action := v.log.TableAction(key)
	if action == nil {
		return v.cat.GetTable(ctx, key)
	}
	if action.Kind == types.ActionDrop {
		return nil, txerrors.Newf(txerrors.TableNotFound, "table %s/%s not found", key.Schema, key.Table)
	}
	return action.Payload, nil
}

// GetTableStatistics overlays table statistics the same way as GetTable.
func (v *View) GetTableStatistics(ctx context.Context, key types.TableKey) (types.Stats, error) {
	action := v.log.TableAction(key)
	if action == nil {
		return v.cat.GetTableStatistics(ctx, key)
	}
	if action.Kind == types.ActionDrop {
		return types.Stats{}, txerrors.Newf(txerrors.TableNotFound, "table %s/%s not found", key.Schema, key.Table)
	}
	return action.Extras.FinalStatistics, nil
}

// ListTablePrivileges overlays table privileges the same way as GetTable.
func (v *View) ListTablePrivileges(ctx context.Context, key types.TableKey, principal string) ([]string, error) {
	action := v.log.TableAction(key)
	if action == nil {
		return v.cat.ListTablePrivileges(ctx, key, principal)
	}
	if action.Kind == types.ActionDrop {
		return nil, txerrors.Newf(txerrors.TableNotFound, "table %s/%s not found", key.Schema, key.Table)
	}
	return action.Extras.PrincipalPrivileges, nil
}

// GetAllTables lists tables in schema. Listing is not reconciled with the
// overlay: if any table action is pending anywhere in the transaction, the
// call fails rather than risk returning a view inconsistent with pending
// writes.
func (v *View) GetAllTables(ctx context.Context, schema string) ([]string, error) {
	if len(v.log.TableActions()) > 0 {
		return nil, txerrors.New(txerrors.NotSupported, "listing tables is not supported while this transaction has pending table actions")
	}
	return v.cat.GetAllTables(ctx, schema)
}

// GetAllViews is GetAllTables's counterpart for views.
func (v *View) GetAllViews(ctx context.Context, schema string) ([]string, error) {
	if len(v.log.TableActions()) > 0 {
		return nil, txerrors.New(txerrors.NotSupported, "listing views is not supported while this transaction has pending table actions")
	}
	return v.cat.GetAllViews(ctx, schema)
}

// GetPartition overlays a single partition, augmenting its location with
// the staging currentLocation when one is pending.
func (v *View) GetPartition(ctx context.Context, key types.PartitionKey) (*types.Partition, error) {
	action := v.log.PartitionAction(key)
	if action == nil {
		return v.cat.GetPartition(ctx, key)
	}
	if action.Kind == types.ActionDrop {
		return nil, txerrors.Newf(txerrors.PartitionNotFound, "partition %v not found", key.Values)
	}
	return augment(action), nil
}

// GetPartitionStatistics overlays partition statistics like GetTableStatistics.
func (v *View) GetPartitionStatistics(ctx context.Context, key types.PartitionKey) (types.Stats, error) {
	action := v.log.PartitionAction(key)
	if action == nil {
		return v.cat.GetPartitionStatistics(ctx, key)
	}
	if action.Kind == types.ActionDrop {
		return types.Stats{}, txerrors.Newf(txerrors.PartitionNotFound, "partition %v not found", key.Values)
	}
	return action.Extras.FinalStatistics, nil
}

// GetPartitionsByNames overlays a batch of partitions named relative to
// table. Names follow the "<schema>/<table>/<v1>/<v2>/..." encoding used
// by the boltcatalog reference implementation.
func (v *View) GetPartitionsByNames(ctx context.Context, table types.TableKey, names []string) ([]*types.Partition, error) {
	overlay := make(map[string]*types.PartitionAction, len(names))
	var toFetch []string
	for _, name := range names {
		key := types.PartitionKey{Table: table, Values: valuesFromName(table, name)}
		if action := v.log.PartitionAction(key); action != nil {
			overlay[name] = action
		} else {
			toFetch = append(toFetch, name)
		}
	}

	fetchedByName := make(map[string]*types.Partition, len(toFetch))
	if len(toFetch) > 0 {
		fetched, err := v.cat.GetPartitionsByNames(ctx, table, toFetch)
		if err != nil {
			return nil, err
		}
		for _, p := range fetched {
			fetchedByName[nameForValues(table, p.Values)] = p
		}
	}

	result := make([]*types.Partition, 0, len(names))
	for _, name := range names {
		if action, ok := overlay[name]; ok {
			if action.Kind == types.ActionDrop {
				return nil, txerrors.Newf(txerrors.PartitionNotFound, "partition %s not found", name)
			}
			result = append(result, augment(action))
			continue
		}
		p, ok := fetchedByName[name]
		if !ok {
			return nil, txerrors.Newf(txerrors.PartitionNotFound, "partition %s not found", name)
		}
		result = append(result, p)
	}
	return result, nil
}

// GetPartitionNames answers getPartitionNames(table) per spec §4.2,
// including the non-trivial ADD/DROP/ALTER overlay and optional positional
// parts filter (empty pattern slot matches anything).
func (v *View) GetPartitionNames(ctx context.Context, table types.TableKey, parts []string) ([]string, error) {
	var catalogNames []string
	if tableAction := v.log.TableAction(table); tableAction != nil && tableAction.Kind == types.ActionAdd {
		// CREATED_IN_THIS_TRANSACTION: the catalog has no entry for this
		// table yet, so its partition set starts empty.
	} else {
		names, err := v.cat.GetPartitionNames(ctx, table)
		if err != nil {
			if catalog.IsNotFound(err) {
				return nil, txerrors.New(txerrors.TransactionConflict, "table dropped by another transaction")
			}
			return nil, err
		}
		catalogNames = names
	}

	seen := make(map[string]bool, len(catalogNames))
	result := make([]string, 0, len(catalogNames))
	for _, name := range catalogNames {
		key := types.PartitionKey{Table: table, Values: valuesFromName(table, name)}
		action := v.log.PartitionAction(key)
		seen[name] = true
		if action == nil {
			result = append(result, name)
			continue
		}
		switch action.Kind {
		case types.ActionAdd:
			return nil, txerrors.Newf(txerrors.TransactionConflict, "partition %s was added by another transaction", name)
		case types.ActionDrop:
			// omitted
		default: // ALTER, INSERT_EXISTING
			result = append(result, name)
		}
	}

	for key, action := range v.log.PartitionActions() {
		if key.Table != table || action.Kind != types.ActionAdd {
			continue
		}
		name := nameForValues(table, key.Values)
		if !seen[name] {
			result = append(result, name)
		}
	}

	if len(parts) == 0 {
		return result, nil
	}
	filtered := result[:0]
	for _, name := range result {
		if partitionValuesMatch(parts, valuesFromName(table, name)) {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// augment returns a copy of action's partition payload with its storage
// location replaced by the staging currentLocation, if one is set, so
// in-transaction readers see the staged files rather than the eventual
// committed location.
func augment(action *types.PartitionAction) *types.Partition {
	p := *action.Payload
	if action.Extras.CurrentLocation != "" {
		p.Location = action.Extras.CurrentLocation
	}
	return &p
}

func tablePrefix(table types.TableKey) string {
	return table.Schema + "/" + table.Table + "/"
}

func valuesFromName(table types.TableKey, name string) []string {
	return strings.Split(strings.TrimPrefix(name, tablePrefix(table)), "/")
}

func nameForValues(table types.TableKey, values []string) string {
	return tablePrefix(table) + strings.Join(values, "/")
}

// partitionValuesMatch reports whether a partition's values satisfy a
// partial-specification predicate: each non-empty pattern slot must equal
// the corresponding value; empty slots match anything.
func partitionValuesMatch(pattern, values []string) bool {
	if len(pattern) != len(values) {
		return false
	}
	for i, p := range pattern {
		if p != "" && p != values[i] {
			return false
		}
	}
	return true
}
