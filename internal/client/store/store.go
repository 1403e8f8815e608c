// Package store implements the durable local replica: named document
// collections with secondary indexes, the pending-change queue and a
// key/value metadata table, all backed by a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/smadwh/claimsync/internal/client/models"
	"github.com/smadwh/claimsync/internal/client/store/migrations"
	"github.com/smadwh/claimsync/internal/common"
	"github.com/smadwh/claimsync/internal/dbx"
	"github.com/smadwh/claimsync/internal/docpath"
)

// Store owns all durable state of the offline subsystem. Conflicting writes
// to the same key resolve last-write-wins; no read-modify-write protection
// is provided.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the replica database at dsn and applies embedded
// migrations. Pass ":memory:" for an in-memory database (used by tests).
// Fails with common.ErrStorageUnavailable when the engine cannot be opened.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	// Single connection avoids "database is locked" under concurrent use.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrations: %v", common.ErrStorageUnavailable, err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// storageErr wraps engine failures, mapping a full disk to
// common.ErrStorageQuotaExceeded. Errors are never swallowed here; losing
// local storage disables offline capability entirely.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database or disk is full") {
		return fmt.Errorf("%s: %w", op, common.ErrStorageQuotaExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Put upserts a record by its primary key; last write wins.
func (s *Store) Put(ctx context.Context, collection string, rec models.Record) error {
	spec, ok := LookupCollection(collection)
	if !ok {
		return fmt.Errorf("put %s: %w", collection, common.ErrUnknownCollection)
	}
	return putOne(ctx, s.db, spec, rec)
}

// PutAll upserts records in a single transaction: either every record lands
// or none do. The sync coordinator relies on this during bulk refreshes.
func (s *Store) PutAll(ctx context.Context, collection string, recs []models.Record) error {
	spec, ok := LookupCollection(collection)
	if !ok {
		return fmt.Errorf("put all %s: %w", collection, common.ErrUnknownCollection)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			if err := putOne(ctx, tx, spec, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func putOne(ctx context.Context, db dbx.DBTX, spec Collection, rec models.Record) error {
	key := docpath.LookupString(rec, spec.KeyPath)
	if key == "" {
		return fmt.Errorf("put %s: record has no %q key", spec.Name, spec.KeyPath)
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("put %s[%s]: encode: %w", spec.Name, key, err)
	}

	cols := []string{"key", "doc"}
	args := []any{key, string(doc)}
	sets := []string{"doc = excluded.doc"}
	for _, idx := range spec.Indexes {
		cols = append(cols, idx.Name)
		// Absent index values store as NULL so unique indexes never
		// collide on empty strings.
		if val := docpath.LookupString(rec, idx.Path); val != "" {
			args = append(args, val)
		} else {
			args = append(args, nil)
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", idx.Name, idx.Name))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(key) DO UPDATE SET %s",
		spec.Name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(sets, ", "),
	)
	_, err = db.ExecContext(ctx, query, args...)
	return storageErr(fmt.Sprintf("put %s[%s]", spec.Name, key), err)
}

// GetByKey returns the record stored under key, or common.ErrNotFound.
func (s *Store) GetByKey(ctx context.Context, collection, key string) (models.Record, error) {
	if _, ok := LookupCollection(collection); !ok {
		return nil, fmt.Errorf("get %s: %w", collection, common.ErrUnknownCollection)
	}
	var doc string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE key = ?", collection)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get %s[%s]: %w", collection, key, common.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get %s[%s]", collection, key), err)
	}
	return decodeDoc(collection, doc)
}

// GetAll returns a snapshot of every record in the collection, ordered by key.
func (s *Store) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	if _, ok := LookupCollection(collection); !ok {
		return nil, fmt.Errorf("get all %s: %w", collection, common.ErrUnknownCollection)
	}
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY key", collection)
	return s.selectDocs(ctx, collection, query)
}

// QueryByIndex returns records whose named secondary index equals value.
func (s *Store) QueryByIndex(ctx context.Context, collection, indexName, value string) ([]models.Record, error) {
	spec, ok := LookupCollection(collection)
	if !ok {
		return nil, fmt.Errorf("query %s: %w", collection, common.ErrUnknownCollection)
	}
	idx, ok := spec.index(indexName)
	if !ok {
		return nil, fmt.Errorf("query %s: no index %q", collection, indexName)
	}
	query := fmt.Sprintf("SELECT doc FROM %s WHERE %s = ? ORDER BY key", collection, idx.Name)
	return s.selectDocs(ctx, collection, query, value)
}

func (s *Store) selectDocs(ctx context.Context, collection, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("select "+collection, err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, storageErr("scan "+collection, err)
		}
		rec, err := decodeDoc(collection, doc)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate "+collection, err)
	}
	return result, nil
}

func decodeDoc(collection, doc string) (models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", collection, err)
	}
	return rec, nil
}

// Delete removes the record under key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if _, ok := LookupCollection(collection); !ok {
		return fmt.Errorf("delete %s: %w", collection, common.ErrUnknownCollection)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", collection)
	_, err := s.db.ExecContext(ctx, query, key)
	return storageErr(fmt.Sprintf("delete %s[%s]", collection, key), err)
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	if _, ok := LookupCollection(collection); !ok {
		return 0, fmt.Errorf("count %s: %w", collection, common.ErrUnknownCollection)
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", collection)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, storageErr("count "+collection, err)
	}
	return n, nil
}

// ClearAll wipes every collection, the referential snapshots, the pending
// queue and all metadata. Used only for full reset flows.
func (s *Store) ClearAll(ctx context.Context) error {
	tables := []string{"claims", "contracts", "clients", "sites", "referentials", "pending_changes", "metadata"}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return storageErr("clear "+table, err)
			}
		}
		return nil
	})
}

// Stats counts records per collection plus the pending backlog.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(Collections)+1)
	for _, c := range Collections {
		n, err := s.Count(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		stats[c.Name] = n
	}
	n, err := s.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	stats["pending_changes"] = n
	return stats, nil
}
