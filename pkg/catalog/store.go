// Package catalog defines the Catalog contract (C1): the coordinator's single
// outbound dependency besides Fs. Per spec §1 this is an out-of-scope
// collaborator, referenced only by interface: a remote, non-transactional
// service that may fail or observe concurrent mutations from other writers.
package catalog

import (
	"context"
	"errors"

	"github.com/cuemby/metacoord/pkg/types"
)

// Catalog is the external metastore the coordinator stages mutations
// against. Implementations are not expected to provide transactions,
// isolation, or atomicity across calls: the coordinator's Committer exists
// precisely because this interface doesn't.
type Catalog interface {
	// Databases
	GetDatabase(ctx context.Context, name string) (*Database, error)
	GetAllDatabases(ctx context.Context) ([]string, error)
	CreateDatabase(ctx context.Context, db *Database) error
	DropDatabase(ctx context.Context, name string) error
	AlterDatabase(ctx context.Context, name string, db *Database) error

	// Tables
	GetTable(ctx context.Context, key types.TableKey) (*types.Table, error)
	GetAllTables(ctx context.Context, schema string) ([]string, error)
	GetAllViews(ctx context.Context, schema string) ([]string, error)
	CreateTable(ctx context.Context, t *types.Table) error
	DropTable(ctx context.Context, key types.TableKey) error
	AlterTable(ctx context.Context, key types.TableKey, t *types.Table) error
	ReplaceTable(ctx context.Context, key types.TableKey, t *types.Table) error

	// Partitions
	GetPartition(ctx context.Context, key types.PartitionKey) (*types.Partition, error)
	GetPartitionNames(ctx context.Context, table types.TableKey) ([]string, error)
	GetPartitionNamesByParts(ctx context.Context, table types.TableKey, parts []string) ([]string, error)
	GetPartitionsByNames(ctx context.Context, table types.TableKey, names []string) ([]*types.Partition, error)
	AddPartitions(ctx context.Context, table types.TableKey, partitions []*types.Partition) error
	DropPartition(ctx context.Context, key types.PartitionKey) error
	AlterPartition(ctx context.Context, key types.PartitionKey, p *types.Partition) error

	// Statistics
	GetTableStatistics(ctx context.Context, key types.TableKey) (types.Stats, error)
	GetPartitionStatistics(ctx context.Context, key types.PartitionKey) (types.Stats, error)
	UpdateTableStatistics(ctx context.Context, key types.TableKey, transform func(types.Stats) types.Stats) error
	UpdatePartitionStatistics(ctx context.Context, key types.PartitionKey, transform func(types.Stats) types.Stats) error

	// Roles & privileges
	ListRoles(ctx context.Context) ([]string, error)
	ListRoleGrants(ctx context.Context, principal string) ([]string, error)
	CreateRole(ctx context.Context, role string) error
	DropRole(ctx context.Context, role string) error
	GrantRoles(ctx context.Context, principal string, roles []string) error
	RevokeRoles(ctx context.Context, principal string, roles []string) error
	ListTablePrivileges(ctx context.Context, key types.TableKey, principal string) ([]string, error)
	GrantTablePrivileges(ctx context.Context, key types.TableKey, principal string, privileges []string) error
	RevokeTablePrivileges(ctx context.Context, key types.TableKey, principal string, privileges []string) error

	// Column statistics support
	GetSupportedColumnStatistics(ctx context.Context, typeName string) ([]string, error)
}

// Database is the catalog-visible value for a schema/database.
type Database struct {
	Name       string
	Location   string
	Parameters map[string]string
}

// ErrNotFound is returned by Get* calls when the entity does not exist.
// Implementations should wrap it with context via fmt.Errorf("%w: ...").
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "catalog: not found" }

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
