package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smadwh/claimsync/internal/client/models"
	"github.com/smadwh/claimsync/internal/client/store"
	"github.com/smadwh/claimsync/internal/common"
	"github.com/smadwh/claimsync/internal/docpath"
)

// fallback reconstructs the response shape the endpoint would have returned,
// from cached data only. An error means "no cached data" and the original
// network failure propagates instead.
func (g *Gateway) fallback(ctx context.Context, route Route) (any, error) {
	switch route.Kind {
	case RouteSingleItem:
		return g.store.GetByKey(ctx, route.Collection, route.Key)

	case RouteList:
		recs, err := g.listRecords(ctx, route)
		if err != nil {
			return nil, err
		}
		return listEnvelope(recs), nil

	case RouteSearch:
		// No server-side relevance ranking to reproduce offline: return the
		// full collection dump and let the caller filter locally.
		recs, err := g.store.GetAll(ctx, route.Collection)
		if err != nil {
			return nil, err
		}
		return recordsToAny(recs), nil

	case RouteStats:
		return g.statsFromCache(ctx)

	case RouteReferential:
		return g.referentialFromCache(ctx, route)

	case RouteMetaBlob:
		blob, err := g.store.GetMeta(ctx, route.MetaKey)
		if err != nil {
			return nil, err
		}
		if blob == nil {
			return nil, fmt.Errorf("blob %s: %w", route.MetaKey, common.ErrNotFound)
		}
		var data any
		if err := json.Unmarshal(blob, &data); err != nil {
			return nil, fmt.Errorf("decode %s blob: %w", route.MetaKey, err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("endpoint shape: %w", common.ErrNotFound)
	}
}

func (g *Gateway) listRecords(ctx context.Context, route Route) ([]models.Record, error) {
	if route.FilterIndex == "" {
		return g.store.GetAll(ctx, route.Collection)
	}
	spec, ok := store.LookupCollection(route.Collection)
	if ok && spec.HasIndex(route.FilterIndex) {
		return g.store.QueryByIndex(ctx, route.Collection, route.FilterIndex, route.FilterValue)
	}
	// No index for this filter: scan the snapshot and match on the document.
	recs, err := g.store.GetAll(ctx, route.Collection)
	if err != nil {
		return nil, err
	}
	filtered := recs[:0]
	for _, rec := range recs {
		if docpath.LookupString(rec, route.FilterIndex) == route.FilterValue {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// listEnvelope reconstructs the paginated list shape. The query string was
// stripped during normalization, so the envelope describes everything the
// cache holds: total == len(items), a single page.
func listEnvelope(recs []models.Record) map[string]any {
	return map[string]any{
		"items": recordsToAny(recs),
		"total": len(recs),
		"skip":  0,
		"limit": len(recs),
		"page":  1,
		"pages": 1,
	}
}

func recordsToAny(recs []models.Record) []any {
	items := make([]any, len(recs))
	for i, rec := range recs {
		items[i] = rec
	}
	return items
}

// statsFromCache computes aggregates from the cached collections rather
// than from a separately cached stats blob.
func (g *Gateway) statsFromCache(ctx context.Context) (any, error) {
	counts, err := g.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats := map[string]any{
		"total_claims":    counts["claims"],
		"total_contracts": counts["contracts"],
		"total_clients":   counts["clients"],
		"total_sites":     counts["sites"],
		"pending_changes": counts["pending_changes"],
		"offline":         true,
	}
	if raw, err := g.store.GetMeta(ctx, "last_sync"); err == nil && raw != nil {
		stats["last_sync"] = string(raw)
	}
	return stats, nil
}

// referentialFromCache serves a reference-set snapshot. An unrecognized set
// yields an explicit empty result rather than an error; a single-code
// lookup misses when the code is absent from the snapshot.
func (g *Gateway) referentialFromCache(ctx context.Context, route Route) (any, error) {
	snapshot, err := g.store.GetReferential(ctx, route.Set)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		if route.Code != "" {
			return nil, fmt.Errorf("referential %s[%s]: %w", route.Set, route.Code, common.ErrNotFound)
		}
		return []any{}, nil
	}
	if route.Code == "" {
		return snapshot, nil
	}
	if items, ok := snapshot.([]any); ok {
		for _, item := range items {
			if rec, isMap := item.(map[string]any); isMap && docpath.LookupString(rec, "code") == route.Code {
				return rec, nil
			}
		}
	}
	return nil, fmt.Errorf("referential %s[%s]: %w", route.Set, route.Code, common.ErrNotFound)
}

// queueOfflineWrite applies a failed write to the local replica, records a
// pending change for later replay and synthesizes a success response. The
// synthesized response carries the submitted payload plus "offline": true
// so callers can flag unsynced state.
func (g *Gateway) queueOfflineWrite(ctx context.Context, method string, route Route, body any) (any, error) {
	if route.Collection == "" {
		return nil, fmt.Errorf("%w: cannot queue write for unclassified endpoint", common.ErrNetworkUnavailable)
	}

	payload, _ := body.(map[string]any)
	if payload == nil {
		payload = models.Record{}
	}

	spec, _ := store.LookupCollection(route.Collection)
	op, key, err := g.applyLocal(ctx, method, route, spec, payload)
	if err != nil {
		return nil, err
	}

	change := &models.PendingChange{
		EntityType: entityType(route.Collection),
		EntityID:   key,
		Operation:  op,
		Data:       payload,
		Timestamp:  time.Now().UTC(),
	}
	if _, err := g.store.Enqueue(ctx, change); err != nil {
		return nil, err
	}
	g.log.Info(ctx, "write queued for sync", "entity", change.EntityType, "id", key, "op", op)

	response := models.Record{}
	for k, v := range payload {
		response[k] = v
	}
	if op != models.OpDelete {
		response[spec.KeyPath] = keyValue(key)
	}
	response["offline"] = true
	return response, nil
}

// applyLocal mutates the replica so reads after an offline write observe it.
func (g *Gateway) applyLocal(ctx context.Context, method string, route Route, spec store.Collection, payload models.Record) (op, key string, err error) {
	now := time.Now().UTC().Format(time.RFC3339)

	switch method {
	case "DELETE":
		if route.Key == "" {
			return "", "", fmt.Errorf("%w: delete without a key", common.ErrNetworkUnavailable)
		}
		return models.OpDelete, route.Key, g.store.Delete(ctx, route.Collection, route.Key)

	case "POST":
		rec := models.Record{}
		for k, v := range payload {
			rec[k] = v
		}
		key = docpath.LookupString(rec, spec.KeyPath)
		if key == "" {
			// The server would have assigned the id; use a local surrogate
			// until the create is replayed.
			key = newLocalKey()
			rec[spec.KeyPath] = key
		}
		rec["modified"] = now
		return models.OpCreate, key, g.store.Put(ctx, route.Collection, rec)

	default: // PUT and other body-mutating methods are updates
		key = route.Key
		if key == "" {
			key = docpath.LookupString(payload, spec.KeyPath)
		}
		if key == "" {
			return "", "", fmt.Errorf("%w: update without a key", common.ErrNetworkUnavailable)
		}
		rec, gerr := g.store.GetByKey(ctx, route.Collection, key)
		if gerr != nil {
			if !errors.Is(gerr, common.ErrNotFound) {
				return "", "", gerr
			}
			rec = models.Record{spec.KeyPath: keyValue(key)}
		}
		for k, v := range payload {
			rec[k] = v
		}
		rec["modified"] = now
		return models.OpUpdate, key, g.store.Put(ctx, route.Collection, rec)
	}
}

// newLocalKey generates a surrogate key for records created offline. The
// prefix keeps local keys out of the server's numeric id space.
func newLocalKey() string {
	return "local-" + uuid.NewString()
}

// keyValue restores the JSON type of a key extracted as a string: numeric
// surrogate ids go back to numbers, business numbers stay strings.
func keyValue(key string) any {
	var n float64
	if _, err := fmt.Sscanf(key, "%g", &n); err == nil && docpath.String(n) == key {
		return n
	}
	return key
}
