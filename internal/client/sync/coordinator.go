// Package sync drains the pending-change queue against the remote API and
// keeps the local replica fresh, without overlapping runs.
package sync

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smadwh/claimsync/internal/client/gateway"
	"github.com/smadwh/claimsync/internal/client/models"
	"github.com/smadwh/claimsync/internal/client/store"
	"github.com/smadwh/claimsync/internal/common"
	"github.com/smadwh/claimsync/internal/logging"
)

const lastSyncKey = "last_sync"

// Notifier is a fire-and-forget callback for user-facing messages. The
// coordinator works without one; messages are then logged only.
type Notifier func(message, level string)

// entityEndpoints maps pending-change entity types to their API prefixes.
var entityEndpoints = map[string]string{
	"claim":    "/claims",
	"contract": "/contracts",
	"client":   "/clients",
	"site":     "/construction-sites",
}

// refreshTargets are the primary collections re-downloaded in phase 2.
var refreshTargets = []struct {
	endpoint   string
	collection string
}{
	{"/claims/?limit=1000", "claims"},
	{"/contracts/?limit=1000", "contracts"},
	{"/clients/?limit=1000", "clients"},
	{"/construction-sites/", "sites"},
}

// referentialSets are the reference tables refreshed in phase 2.
var referentialSets = []string{
	"contract-types",
	"guarantees",
	"clauses",
	"building-categories",
	"work-categories",
	"professions",
}

// Coordinator owns the sync state machine: Idle or Syncing, perpetually
// re-enterable. Its only in-memory state is the in-flight flag; everything
// durable lives in the store.
type Coordinator struct {
	gw         *gateway.Gateway
	store      *store.Store
	log        logging.Logger
	notify     Notifier
	inProgress atomic.Bool
}

func New(gw *gateway.Gateway, st *store.Store, notify Notifier, log logging.Logger) *Coordinator {
	return &Coordinator{
		gw:     gw,
		store:  st,
		notify: notify,
		log:    log.With("component", "sync"),
	}
}

// SyncAll runs one full sync: drain the pending queue, then re-download the
// primary collections and referential sets. A call while a run is in flight
// is a logged no-op. The in-flight flag is always released, success or not;
// last_sync is only advanced after a fully successful run.
func (c *Coordinator) SyncAll(ctx context.Context) error {
	if !c.inProgress.CompareAndSwap(false, true) {
		c.log.Info(ctx, "sync already in progress, skipping trigger")
		return nil
	}
	defer c.inProgress.Store(false)

	c.log.Info(ctx, "sync started")

	if err := c.drainPending(ctx); err != nil {
		c.log.Error(ctx, "sync aborted while draining queue", "err", err)
		c.notifyUser("Synchronization failed", "error")
		return err
	}

	if err := c.refreshFromServer(ctx); err != nil {
		c.log.Error(ctx, "sync aborted during refresh", "err", err)
		c.notifyUser("Synchronization failed", "error")
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := c.store.SetMeta(ctx, lastSyncKey, []byte(now)); err != nil {
		return err
	}

	c.log.Info(ctx, "sync finished")
	c.notifyUser("Synchronization finished", "success")
	return nil
}

// drainPending dispatches queued changes sequentially in creation order.
// Sequential dispatch is a deliberate ordering guarantee: concurrent
// replays of changes to the same entity could apply out of order at the
// server. A per-item failure leaves the item and moves on; a conflict-class
// rejection flags the item for manual resolution instead of retrying.
func (c *Coordinator) drainPending(ctx context.Context) error {
	changes, err := c.store.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		c.log.Info(ctx, "no pending changes")
		return nil
	}

	var drained, failed int
	for _, change := range changes {
		if change.Conflict {
			// Awaiting manual resolution, never retried automatically.
			continue
		}

		if err := c.dispatch(ctx, change); err != nil {
			failed++
			if gateway.IsConflict(err) {
				c.log.Warn(ctx, "change conflicts with server state",
					"id", change.ID, "entity", change.EntityType, "entity_id", change.EntityID)
				if merr := c.store.MarkConflict(ctx, change.ID); merr != nil {
					return merr
				}
				continue
			}
			c.log.Warn(ctx, "change replay failed, keeping it queued", "id", change.ID, "err", err)
			continue
		}

		if err := c.cleanupLocalKey(ctx, change); err != nil {
			return err
		}
		if err := c.store.RemovePending(ctx, change.ID); err != nil {
			return err
		}
		drained++
	}

	c.log.Info(ctx, "queue drained", "drained", drained, "failed", failed)
	return nil
}

// dispatch replays one change through the gateway's network path only.
func (c *Coordinator) dispatch(ctx context.Context, change models.PendingChange) error {
	prefix, ok := entityEndpoints[change.EntityType]
	if !ok {
		return fmt.Errorf("unhandled entity type %q: %w", change.EntityType, common.ErrUnknownCollection)
	}

	switch change.Operation {
	case models.OpCreate:
		_, err := c.gw.DoNetwork(ctx, http.MethodPost, prefix+"/", change.Data)
		return err
	case models.OpUpdate:
		_, err := c.gw.DoNetwork(ctx, http.MethodPut, prefix+"/"+change.EntityID, change.Data)
		return err
	case models.OpDelete:
		_, err := c.gw.DoNetwork(ctx, http.MethodDelete, prefix+"/"+change.EntityID, nil)
		return err
	default:
		return fmt.Errorf("unhandled operation %q", change.Operation)
	}
}

// cleanupLocalKey drops the surrogate-keyed copy of a record created
// offline once the create has been replayed; the refresh phase brings back
// the server's version under its real key.
func (c *Coordinator) cleanupLocalKey(ctx context.Context, change models.PendingChange) error {
	if change.Operation != models.OpCreate || !strings.HasPrefix(change.EntityID, "local-") {
		return nil
	}
	return c.store.Delete(ctx, change.EntityType+"s", change.EntityID)
}

// refreshFromServer re-downloads the primary collections and referential
// snapshots. Any fetch failure aborts the whole phase and leaves the
// previous cache intact; each collection is written in one transaction so
// a half-refreshed collection is impossible.
func (c *Coordinator) refreshFromServer(ctx context.Context) error {
	for _, target := range refreshTargets {
		payload, err := c.gw.DoNetwork(ctx, http.MethodGet, target.endpoint, nil)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", target.collection, err)
		}
		recs := gateway.ExtractRecords(payload)
		if err := c.store.PutAll(ctx, target.collection, recs); err != nil {
			return err
		}
		c.log.Info(ctx, "collection refreshed", "collection", target.collection, "records", len(recs))
	}

	for _, set := range referentialSets {
		payload, err := c.gw.DoNetwork(ctx, http.MethodGet, "/referentials/"+set+"/", nil)
		if err != nil {
			return fmt.Errorf("refresh referential %s: %w", set, err)
		}
		if err := c.store.PutReferential(ctx, set, payload); err != nil {
			return err
		}
	}
	c.log.Info(ctx, "referentials refreshed", "sets", len(referentialSets))
	return nil
}

// Status reports a point-in-time snapshot of the offline subsystem.
func (c *Coordinator) Status(ctx context.Context) (models.SyncStatus, error) {
	status := models.SyncStatus{
		Online:         c.gw.Online(),
		SyncInProgress: c.inProgress.Load(),
	}

	counts, err := c.store.Stats(ctx)
	if err != nil {
		return status, err
	}
	status.PendingCount = counts["pending_changes"]
	delete(counts, "pending_changes")
	status.Collections = counts

	raw, err := c.store.GetMeta(ctx, lastSyncKey)
	if err != nil {
		return status, err
	}
	if raw != nil {
		if t, perr := time.Parse(time.RFC3339, string(raw)); perr == nil {
			status.LastSync = t
		}
	}
	return status, nil
}

// ResetAndSync wipes all local data and re-downloads everything. Queued
// changes are discarded; callers are expected to confirm with the user
// first when the backlog is non-empty.
func (c *Coordinator) ResetAndSync(ctx context.Context) error {
	if !c.inProgress.CompareAndSwap(false, true) {
		return common.ErrSyncInProgress
	}
	defer c.inProgress.Store(false)

	if err := c.store.ClearAll(ctx); err != nil {
		return err
	}
	if err := c.refreshFromServer(ctx); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := c.store.SetMeta(ctx, lastSyncKey, []byte(now)); err != nil {
		return err
	}
	c.notifyUser("Local data reset and resynchronized", "success")
	return nil
}

func (c *Coordinator) notifyUser(message, level string) {
	if c.notify == nil {
		return
	}
	c.notify(message, level)
}
