package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smadwh/claimsync/internal/client/models"
)

// Enqueue appends a change to the pending queue and returns the assigned,
// monotonically increasing id. A zero Timestamp is filled in with now.
func (s *Store) Enqueue(ctx context.Context, change *models.PendingChange) (int64, error) {
	ts := change.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	data, err := json.Marshal(change.Data)
	if err != nil {
		return 0, fmt.Errorf("enqueue change: encode: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_changes (entity_type, entity_id, operation, data, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		change.EntityType, change.EntityID, change.Operation, string(data), ts.Format(time.RFC3339Nano))
	if err != nil {
		return 0, storageErr("enqueue change", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("enqueue change", err)
	}
	change.ID = id
	change.Timestamp = ts
	return id, nil
}

// ListPending returns every queued change ordered by id ascending (FIFO by
// creation). Conflicted changes are included; the coordinator skips them.
func (s *Store) ListPending(ctx context.Context) ([]models.PendingChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, operation, data, timestamp, conflict
		FROM pending_changes ORDER BY id ASC`)
	if err != nil {
		return nil, storageErr("list pending changes", err)
	}
	defer rows.Close()

	var result []models.PendingChange
	for rows.Next() {
		var (
			c        models.PendingChange
			data, ts string
			conflict int
		)
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.Operation, &data, &ts, &conflict); err != nil {
			return nil, storageErr("scan pending change", err)
		}
		if err := json.Unmarshal([]byte(data), &c.Data); err != nil {
			return nil, fmt.Errorf("decode pending change %d: %w", c.ID, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			c.Timestamp = t
		}
		c.Conflict = conflict != 0
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate pending changes", err)
	}
	return result, nil
}

// RemovePending deletes a drained change from the queue.
func (s *Store) RemovePending(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE id = ?`, id)
	return storageErr(fmt.Sprintf("remove pending change %d", id), err)
}

// MarkConflict flags a change as needing manual resolution. Flagged changes
// stay in the queue but are never retried automatically.
func (s *Store) MarkConflict(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_changes SET conflict = 1, conflict_time = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	return storageErr(fmt.Sprintf("mark conflict on change %d", id), err)
}

// CountPending returns the size of the queue, conflicted items included.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_changes`).Scan(&n); err != nil {
		return 0, storageErr("count pending changes", err)
	}
	return n, nil
}
