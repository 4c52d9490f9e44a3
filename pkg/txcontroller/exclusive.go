package txcontroller

import (
	"context"

	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/recursivedelete"
	"github.com/cuemby/metacoord/pkg/txerrors"
	"github.com/cuemby/metacoord/pkg/types"
)

// Schema operations that touch multiple catalogs or paths (§4.3's
// create/drop database, rename table, add/drop column, grant/revoke, role
// ops, setTableStatistics, setPartitionStatistics, replaceTable,
// truncateUnpartitionedTable) go through setExclusive rather than the
// ActionLog: they don't participate in the Phase A-F buffered-action
// protocol, so each is expressed directly as a single ExclusiveOp closure.

func (b *Buffer) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.CreateDatabase(ctx, db)
	})
}

func (b *Buffer) DropDatabase(ctx context.Context, name string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.DropDatabase(ctx, name)
	})
}

func (b *Buffer) AlterDatabase(ctx context.Context, name string, db *catalog.Database) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.AlterDatabase(ctx, name, db)
	})
}

// RenameTable performs an AlterTable that only changes the key under which
// a table is known; the location and columns of newTable are expected to
// already match the old table's, since a rename is not an alter of data.
func (b *Buffer) RenameTable(ctx context.Context, key types.TableKey, newTable *types.Table) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.AlterTable(ctx, key, newTable)
	})
}

func (b *Buffer) AddColumn(ctx context.Context, key types.TableKey, column types.Column) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		table, err := cat.GetTable(ctx, key)
		if err != nil {
			return err
		}
		updated := *table
		updated.Columns = append(append([]types.Column{}, table.Columns...), column)
		return cat.AlterTable(ctx, key, &updated)
	})
}

func (b *Buffer) DropColumn(ctx context.Context, key types.TableKey, columnName string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		table, err := cat.GetTable(ctx, key)
		if err != nil {
			return err
		}
		kept := make([]types.Column, 0, len(table.Columns))
		for _, c := range table.Columns {
			if c.Name != columnName {
				kept = append(kept, c)
			}
		}
		updated := *table
		updated.Columns = kept
		return cat.AlterTable(ctx, key, &updated)
	})
}

func (b *Buffer) GrantTablePrivileges(ctx context.Context, key types.TableKey, principal string, privileges []string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.GrantTablePrivileges(ctx, key, principal, privileges)
	})
}

func (b *Buffer) RevokeTablePrivileges(ctx context.Context, key types.TableKey, principal string, privileges []string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.RevokeTablePrivileges(ctx, key, principal, privileges)
	})
}

func (b *Buffer) CreateRole(ctx context.Context, role string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.CreateRole(ctx, role)
	})
}

func (b *Buffer) DropRole(ctx context.Context, role string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.DropRole(ctx, role)
	})
}

func (b *Buffer) GrantRoles(ctx context.Context, principal string, roles []string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.GrantRoles(ctx, principal, roles)
	})
}

func (b *Buffer) RevokeRoles(ctx context.Context, principal string, roles []string) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.RevokeRoles(ctx, principal, roles)
	})
}

// SetTableStatistics replaces a table's statistics outright. It is
// buffered as an exclusive op (not an ActionLog action) because it does
// not participate in the rename/directory bookkeeping of Phase A-F; it is
// a pure catalog write.
func (b *Buffer) SetTableStatistics(ctx context.Context, key types.TableKey, stats types.Stats) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.UpdateTableStatistics(ctx, key, func(types.Stats) types.Stats { return stats })
	})
}

func (b *Buffer) SetPartitionStatistics(ctx context.Context, key types.PartitionKey, stats types.Stats) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.UpdatePartitionStatistics(ctx, key, func(types.Stats) types.Stats { return stats })
	})
}

func (b *Buffer) ReplaceTable(ctx context.Context, key types.TableKey, table *types.Table) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		return cat.ReplaceTable(ctx, key, table)
	})
}

// TruncateUnpartitionedTable replaces a table's statistics with zero and
// schedules an unconditional-match recursive delete of its data directory.
// An empty query-id prefix makes every non-reserved file eligible ("scoped
// to unconditional match"). Called against a partitioned table it fails
// precondition: there is no single data directory to truncate once rows
// live under per-partition locations instead.
func (b *Buffer) TruncateUnpartitionedTable(ctx context.Context, key types.TableKey) error {
	return b.SetExclusive(ctx, func(ctx context.Context, cat catalog.Catalog, f fs.Fs) error {
		table, err := cat.GetTable(ctx, key)
		if err != nil {
			return err
		}
		if table.Partitioned {
			return txerrors.New(txerrors.NotSupported, "truncateUnpartitionedTable requires an unpartitioned table")
		}
		if _, _, err := recursivedelete.Delete(ctx, f, types.OpContext{}, table.Location, []string{""}, false); err != nil {
			return err
		}
		return cat.UpdateTableStatistics(ctx, key, func(types.Stats) types.Stats { return types.Stats{} })
	})
}
