package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smadwh/claimsync/internal/client/models"
	"github.com/smadwh/claimsync/internal/common"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func claim(number string, extra map[string]any) models.Record {
	rec := models.Record{
		"claim_number": number,
		"status":       "declared",
		"contract_id":  float64(1),
	}
	for k, v := range extra {
		rec[k] = v
	}
	return rec
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := claim("CLM-001", map[string]any{
		"amount": 1250.5,
		"client": map[string]any{"last_name": "Dupont"},
	})
	require.NoError(t, s.Put(ctx, "claims", rec))

	got, err := s.GetByKey(ctx, "claims", "CLM-001")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPut_NumericKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := models.Record{"id": float64(7), "name": "Dupont BTP"}
	require.NoError(t, s.Put(ctx, "clients", rec))

	got, err := s.GetByKey(ctx, "clients", "7")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPut_MissingKeyField(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), "claims", models.Record{"status": "open"})
	assert.Error(t, err)
}

func TestPut_UnknownCollection(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), "widgets", models.Record{"id": float64(1)})
	assert.ErrorIs(t, err, common.ErrUnknownCollection)
}

func TestPut_UpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", map[string]any{"status": "declared"})))
	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", map[string]any{"status": "closed"})))
	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", map[string]any{"status": "closed"})))

	n, err := s.Count(ctx, "claims")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetByKey(ctx, "claims", "CLM-001")
	require.NoError(t, err)
	assert.Equal(t, "closed", got["status"], "last write wins")
}

func TestGetByKey_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByKey(context.Background(), "claims", "CLM-404")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetAll_OrderedByKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", claim("CLM-002", nil)))
	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", nil)))
	require.NoError(t, s.Put(ctx, "claims", claim("CLM-003", nil)))

	recs, err := s.GetAll(ctx, "claims")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "CLM-001", recs[0]["claim_number"])
	assert.Equal(t, "CLM-002", recs[1]["claim_number"])
	assert.Equal(t, "CLM-003", recs[2]["claim_number"])
}

func TestGetAll_Empty(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.GetAll(context.Background(), "claims")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestQueryByIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", models.Record{
		"claim_number": "CLM-001", "contract_id": float64(10), "status": "declared",
	}))
	require.NoError(t, s.Put(ctx, "claims", models.Record{
		"claim_number": "CLM-002", "contract_id": float64(10), "status": "closed",
	}))
	require.NoError(t, s.Put(ctx, "claims", models.Record{
		"claim_number": "CLM-003", "contract_id": float64(20), "status": "declared",
	}))

	recs, err := s.QueryByIndex(ctx, "claims", "contract_id", "10")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = s.QueryByIndex(ctx, "claims", "status", "declared")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestQueryByIndex_UnknownIndex(t *testing.T) {
	s := newTestStore(t)
	_, err := s.QueryByIndex(context.Background(), "claims", "nope", "x")
	assert.Error(t, err)
}

func TestQueryByIndex_UpdatedIndexValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", models.Record{
		"claim_number": "CLM-001", "status": "declared",
	}))
	require.NoError(t, s.Put(ctx, "claims", models.Record{
		"claim_number": "CLM-001", "status": "closed",
	}))

	recs, err := s.QueryByIndex(ctx, "claims", "status", "declared")
	require.NoError(t, err)
	assert.Empty(t, recs, "stale index value must not match")

	recs, err = s.QueryByIndex(ctx, "claims", "status", "closed")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestPut_AbsentUniqueIndexValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two clients without a client_number must not collide on the
	// unique index.
	require.NoError(t, s.Put(ctx, "clients", models.Record{"id": float64(1)}))
	require.NoError(t, s.Put(ctx, "clients", models.Record{"id": float64(2)}))

	n, err := s.Count(ctx, "clients")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPutAll_Atomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []models.Record{
		claim("CLM-001", nil),
		claim("CLM-002", nil),
		{"status": "broken"}, // no key, fails mid-batch
	}
	err := s.PutAll(ctx, "claims", recs)
	require.Error(t, err)

	n, err := s.Count(ctx, "claims")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "failed batch must not partially apply")
}

func TestPutAll_Success(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutAll(ctx, "claims", []models.Record{
		claim("CLM-001", nil),
		claim("CLM-002", nil),
	}))
	n, err := s.Count(ctx, "claims")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", nil)))
	require.NoError(t, s.Delete(ctx, "claims", "CLM-001"))

	_, err := s.GetByKey(ctx, "claims", "CLM-001")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Absent key is a no-op.
	assert.NoError(t, s.Delete(ctx, "claims", "CLM-001"))
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", nil)))
	require.NoError(t, s.Put(ctx, "clients", models.Record{"id": float64(1)}))
	require.NoError(t, s.SetMeta(ctx, "last_sync", []byte("x")))
	_, err := s.Enqueue(ctx, &models.PendingChange{
		EntityType: "claim", EntityID: "CLM-001", Operation: models.OpUpdate,
	})
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	for name, n := range stats {
		assert.Zero(t, n, "collection %s", name)
	}
	v, err := s.GetMeta(ctx, "last_sync")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "claims", claim("CLM-001", nil)))
	require.NoError(t, s.Put(ctx, "claims", claim("CLM-002", nil)))
	require.NoError(t, s.Put(ctx, "contracts", models.Record{"id": float64(1)}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["claims"])
	assert.Equal(t, int64(1), stats["contracts"])
	assert.Equal(t, int64(0), stats["clients"])
	assert.Equal(t, int64(0), stats["pending_changes"])
}

func TestStore_ClosedDB(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Close())

	assert.Error(t, s.Put(ctx, "claims", claim("CLM-001", nil)))
	_, err := s.GetAll(ctx, "claims")
	assert.Error(t, err)
	_, err = s.Count(ctx, "claims")
	assert.Error(t, err)
}
