// Package boltcatalog is a BoltDB-backed reference implementation of the
// catalog.Catalog contract, used by tests and the metacoordctl demo CLI.
//
// One bucket per entity kind, JSON-encoded values, deterministic string keys.
// Every method opens its own db.View or db.Update transaction: there is no
// cross-call atomicity, matching the non-transactional remote catalog the
// spec describes.
package boltcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/metacoord/pkg/catalog"
	"github.com/cuemby/metacoord/pkg/types"
)

var (
	bucketDatabases  = []byte("databases")
	bucketTables     = []byte("tables")
	bucketPartitions = []byte("partitions")
	bucketRoles      = []byte("roles")
	bucketGrants     = []byte("role_grants")
	bucketPrivileges = []byte("privileges")
	bucketTableStats = []byte("table_stats")
	bucketPartStats  = []byte("partition_stats")
)

var allBuckets = [][]byte{
	bucketDatabases, bucketTables, bucketPartitions,
	bucketRoles, bucketGrants, bucketPrivileges,
	bucketTableStats, bucketPartStats,
}

// Catalog is a bbolt-backed catalog.Catalog.
type Catalog struct {
	db *bolt.DB
}

// Open opens (creating if needed) a bbolt database at path and returns a
// Catalog with every bucket created.
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltcatalog: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltcatalog: create buckets: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying bbolt database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

var _ catalog.Catalog = (*Catalog)(nil)

func tableKeyStr(k types.TableKey) string {
	return k.Schema + "/" + k.Table
}

func partitionKeyStr(k types.PartitionKey) string {
	return tableKeyStr(k.Table) + "/" + strings.Join(k.Values, "/")
}

func tablePrefix(schema string) string {
	return schema + "/"
}

func partitionPrefix(table types.TableKey) string {
	return tableKeyStr(table) + "/"
}

func get(tx *bolt.Tx, bucket []byte, key string, out any) (bool, error) {
	data := tx.Bucket(bucket).Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("boltcatalog: unmarshal %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func put(tx *bolt.Tx, bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("boltcatalog: marshal %s/%s: %w", bucket, key, err)
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

// --- Databases ---

func (c *Catalog) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	var db catalog.Database
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = get(tx, bucketDatabases, name, &db)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("database %s: %w", name, catalog.ErrNotFound)
	}
	return &db, nil
}

func (c *Catalog) GetAllDatabases(ctx context.Context) ([]string, error) {
	var names []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatabases).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

func (c *Catalog) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketDatabases, db.Name, db)
	})
}

func (c *Catalog) DropDatabase(ctx context.Context, name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatabases).Delete([]byte(name))
	})
}

func (c *Catalog) AlterDatabase(ctx context.Context, name string, db *catalog.Database) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketDatabases, name, db)
	})
}

// --- Tables ---

func (c *Catalog) GetTable(ctx context.Context, key types.TableKey) (*types.Table, error) {
	var t types.Table
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = get(tx, bucketTables, tableKeyStr(key), &t)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("table %s: %w", tableKeyStr(key), catalog.ErrNotFound)
	}
	return &t, nil
}

func (c *Catalog) GetAllTables(ctx context.Context, schema string) ([]string, error) {
	return c.listKeysWithPrefix(bucketTables, tablePrefix(schema))
}

func (c *Catalog) GetAllViews(ctx context.Context, schema string) ([]string, error) {
	// No separate view storage in this reference implementation: views are
	// not a distinct entity kind the spec's write API touches.
	return nil, nil
}

func (c *Catalog) CreateTable(ctx context.Context, t *types.Table) error {
	key := types.TableKey{Schema: t.Schema, Table: t.Name}
	return c.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketTables, tableKeyStr(key), t)
	})
}

func (c *Catalog) DropTable(ctx context.Context, key types.TableKey) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTables).Delete([]byte(tableKeyStr(key)))
	})
}

func (c *Catalog) AlterTable(ctx context.Context, key types.TableKey, t *types.Table) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketTables, tableKeyStr(key), t)
	})
}

func (c *Catalog) ReplaceTable(ctx context.Context, key types.TableKey, t *types.Table) error {
	return c.AlterTable(ctx, key, t)
}

// --- Partitions ---

func (c *Catalog) GetPartition(ctx context.Context, key types.PartitionKey) (*types.Partition, error) {
	var p types.Partition
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = get(tx, bucketPartitions, partitionKeyStr(key), &p)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("partition %s: %w", partitionKeyStr(key), catalog.ErrNotFound)
	}
	return &p, nil
}

func (c *Catalog) GetPartitionNames(ctx context.Context, table types.TableKey) ([]string, error) {
	return c.listKeysWithPrefix(bucketPartitions, partitionPrefix(table))
}

func (c *Catalog) GetPartitionNamesByParts(ctx context.Context, table types.TableKey, parts []string) ([]string, error) {
	names, err := c.GetPartitionNames(ctx, table)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, name := range names {
		values := strings.Split(strings.TrimPrefix(name, partitionPrefix(table)), "/")
		if partitionValuesMatch(parts, values) {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// partitionValuesMatch reports whether a partition's values satisfy a
// partial-specification predicate: each position in pattern that is
// non-empty must equal the corresponding value; empty positions match
// anything.
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

func (c *Catalog) GetPartitionsByNames(ctx context.Context, table types.TableKey, names []string) ([]*types.Partition, error) {
	result := make([]*types.Partition, 0, len(names))
	err := c.db.View(func(tx *bolt.Tx) error {
		for _, name := range names {
			var p types.Partition
			found, err := get(tx, bucketPartitions, name, &p)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("partition %s: %w", name, catalog.ErrNotFound)
			}
			result = append(result, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Catalog) AddPartitions(ctx context.Context, table types.TableKey, partitions []*types.Partition) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		for _, p := range partitions {
			key := types.PartitionKey{Table: table, Values: p.Values}
			if err := put(tx, bucketPartitions, partitionKeyStr(key), p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Catalog) DropPartition(ctx context.Context, key types.PartitionKey) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPartitions).Delete([]byte(partitionKeyStr(key)))
	})
}

func (c *Catalog) AlterPartition(ctx context.Context, key types.PartitionKey, p *types.Partition) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketPartitions, partitionKeyStr(key), p)
	})
}

// --- Statistics ---

func (c *Catalog) GetTableStatistics(ctx context.Context, key types.TableKey) (types.Stats, error) {
	var s types.Stats
	err := c.db.View(func(tx *bolt.Tx) error {
		_, err := get(tx, bucketTableStats, tableKeyStr(key), &s)
		return err
	})
	return s, err
}

func (c *Catalog) GetPartitionStatistics(ctx context.Context, key types.PartitionKey) (types.Stats, error) {
	var s types.Stats
	err := c.db.View(func(tx *bolt.Tx) error {
		_, err := get(tx, bucketPartStats, partitionKeyStr(key), &s)
		return err
	})
	return s, err
}

func (c *Catalog) UpdateTableStatistics(ctx context.Context, key types.TableKey, transform func(types.Stats) types.Stats) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		var s types.Stats
		if _, err := get(tx, bucketTableStats, tableKeyStr(key), &s); err != nil {
			return err
		}
		return put(tx, bucketTableStats, tableKeyStr(key), transform(s))
	})
}

func (c *Catalog) UpdatePartitionStatistics(ctx context.Context, key types.PartitionKey, transform func(types.Stats) types.Stats) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		var s types.Stats
		if _, err := get(tx, bucketPartStats, partitionKeyStr(key), &s); err != nil {
			return err
		}
		return put(tx, bucketPartStats, partitionKeyStr(key), transform(s))
	})
}

// --- Roles & privileges ---

func (c *Catalog) ListRoles(ctx context.Context) ([]string, error) {
	var roles []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoles).ForEach(func(k, _ []byte) error {
			roles = append(roles, string(k))
			return nil
		})
	})
	sort.Strings(roles)
	return roles, err
}

func (c *Catalog) ListRoleGrants(ctx context.Context, principal string) ([]string, error) {
	var grants []string
	err := c.db.View(func(tx *bolt.Tx) error {
		_, err := get(tx, bucketGrants, principal, &grants)
		return err
	})
	return grants, err
}

func (c *Catalog) CreateRole(ctx context.Context, role string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoles).Put([]byte(role), []byte("{}"))
	})
}

func (c *Catalog) DropRole(ctx context.Context, role string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoles).Delete([]byte(role))
	})
}

func (c *Catalog) GrantRoles(ctx context.Context, principal string, roles []string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		var existing []string
		if _, err := get(tx, bucketGrants, principal, &existing); err != nil {
			return err
		}
		existing = append(existing, roles...)
		return put(tx, bucketGrants, principal, existing)
	})
}

func (c *Catalog) RevokeRoles(ctx context.Context, principal string, roles []string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		var existing []string
		if _, err := get(tx, bucketGrants, principal, &existing); err != nil {
			return err
		}
		remove := make(map[string]bool, len(roles))
		for _, r := range roles {
			remove[r] = true
		}
		kept := existing[:0]
		for _, r := range existing {
			if !remove[r] {
				kept = append(kept, r)
			}
		}
		return put(tx, bucketGrants, principal, kept)
	})
}

func privilegeKey(key types.TableKey, principal string) string {
	return tableKeyStr(key) + "/" + principal
}

func (c *Catalog) ListTablePrivileges(ctx context.Context, key types.TableKey, principal string) ([]string, error) {
	var privs []string
	err := c.db.View(func(tx *bolt.Tx) error {
		_, err := get(tx, bucketPrivileges, privilegeKey(key, principal), &privs)
		return err
	})
	return privs, err
}

func (c *Catalog) GrantTablePrivileges(ctx context.Context, key types.TableKey, principal string, privileges []string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		pk := privilegeKey(key, principal)
		var existing []string
		if _, err := get(tx, bucketPrivileges, pk, &existing); err != nil {
			return err
		}
		existing = append(existing, privileges...)
		return put(tx, bucketPrivileges, pk, existing)
	})
}

func (c *Catalog) RevokeTablePrivileges(ctx context.Context, key types.TableKey, principal string, privileges []string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		pk := privilegeKey(key, principal)
		var existing []string
		if _, err := get(tx, bucketPrivileges, pk, &existing); err != nil {
			return err
		}
		remove := make(map[string]bool, len(privileges))
		for _, p := range privileges {
			remove[p] = true
		}
		kept := existing[:0]
		for _, p := range existing {
			if !remove[p] {
				kept = append(kept, p)
			}
		}
		return put(tx, bucketPrivileges, pk, kept)
	})
}

var supportedColumnStatistics = []string{"min_value", "max_value", "null_count", "distinct_values_count"}

func (c *Catalog) GetSupportedColumnStatistics(ctx context.Context, typeName string) ([]string, error) {
	return supportedColumnStatistics, nil
}

func (c *Catalog) listKeysWithPrefix(bucket []byte, prefix string) ([]string, error) {
	var keys []string
	err := c.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bucket).Cursor()
		for k, _ := cur.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = cur.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
