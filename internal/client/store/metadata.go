package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SetMeta upserts a metadata value. Small cached blobs with no dedicated
// collection (addresses, contract history) live here alongside facts like
// the last-sync timestamp.
func (s *Store) SetMeta(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated = excluded.updated`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return storageErr(fmt.Sprintf("set metadata[%s]", key), err)
}

// GetMeta returns the stored value, or (nil, nil) when the key is absent.
func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get metadata[%s]", key), err)
	}
	return value, nil
}

// DeleteMeta removes a key; deleting an absent key is a no-op.
func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	return storageErr(fmt.Sprintf("delete metadata[%s]", key), err)
}

// ListMeta returns all metadata pairs.
func (s *Store) ListMeta(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return nil, storageErr("list metadata", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, storageErr("scan metadata row", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate metadata rows", err)
	}
	return result, nil
}
