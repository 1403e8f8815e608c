package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PutReferential overwrites a reference-set snapshot wholesale. Snapshots
// are stored whole rather than item-by-item.
func (s *Store) PutReferential(ctx context.Context, name string, data any) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("put referential %s: encode: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO referentials (type, doc, updated) VALUES (?, ?, ?)
		ON CONFLICT(type) DO UPDATE SET doc = excluded.doc, updated = excluded.updated`,
		name, string(doc), time.Now().UTC().Format(time.RFC3339Nano))
	return storageErr(fmt.Sprintf("put referential %s", name), err)
}

// GetReferential returns the snapshot for name, or (nil, nil) when no
// snapshot exists. Missing snapshots are a documented weak fallback, not an
// error.
func (s *Store) GetReferential(ctx context.Context, name string) (any, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM referentials WHERE type = ?`, name).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get referential %s", name), err)
	}
	var data any
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, fmt.Errorf("decode referential %s: %w", name, err)
	}
	return data, nil
}
