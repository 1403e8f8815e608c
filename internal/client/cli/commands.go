package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smadwh/claimsync/internal/docpath"
)

// Status prints the sync snapshot.
func (a *App) Status(ctx context.Context) {
	status, err := a.coordinator.Status(ctx)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	mode := "offline"
	if status.Online {
		mode = "online"
	}
	printlnFn(fmt.Sprintf("mode: %s, sync in progress: %v, pending changes: %d", mode, status.SyncInProgress, status.PendingCount))
	if !status.LastSync.IsZero() {
		printlnFn("last sync:", status.LastSync.Format("2006-01-02 15:04:05"))
	} else {
		printlnFn("last sync: never")
	}
	for name, count := range status.Collections {
		printlnFn(fmt.Sprintf("  %s: %d records", name, count))
	}
}

// Sync forces an immediate sync run.
func (a *App) Sync(ctx context.Context) {
	if err := a.coordinator.SyncAll(ctx); err != nil {
		printlnFn("sync failed:", err.Error())
	}
}

// Pending lists queued changes, flagging conflicts.
func (a *App) Pending(ctx context.Context) {
	changes, err := a.store.ListPending(ctx)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	if len(changes) == 0 {
		printlnFn("No pending changes")
		return
	}
	for _, c := range changes {
		line := fmt.Sprintf("#%d %s %s %s (%s)", c.ID, c.Operation, c.EntityType, c.EntityID, c.Timestamp.Format("2006-01-02 15:04:05"))
		if c.Conflict {
			line += " [conflict]"
		}
		printlnFn(line)
	}
}

// List fetches a collection through the gateway, falling back to the cache
// when the network is down.
func (a *App) List(ctx context.Context, collection string) {
	endpoint, ok := listEndpoints[collection]
	if !ok {
		printlnFn("unknown collection:", collection)
		return
	}
	result, err := a.gw.Do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	printJSON(result)
}

var listEndpoints = map[string]string{
	"claims":    "/claims/",
	"clients":   "/clients/",
	"contracts": "/contracts/",
	"sites":     "/construction-sites/",
}

// Get fetches one record by key.
func (a *App) Get(ctx context.Context, collection, key string) {
	endpoint, ok := listEndpoints[collection]
	if !ok {
		printlnFn("unknown collection:", collection)
		return
	}
	result, err := a.gw.Do(ctx, http.MethodGet, endpoint+key, nil)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	printJSON(result)
}

// Search runs a server search with local phonetic fallback.
func (a *App) Search(ctx context.Context, collection, query string) {
	results, offline, err := a.search.Search(ctx, collection, query)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	if offline {
		printlnFn("(offline results, phonetic matching)")
	}
	if len(results) == 0 {
		printlnFn("No results")
		return
	}
	for _, rec := range results {
		printlnFn("-", summarize(rec))
	}
}

// Referential prints a cached or fresh reference set.
func (a *App) Referential(ctx context.Context, set string) {
	result, err := a.gw.Do(ctx, http.MethodGet, "/referentials/"+set+"/", nil)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	printJSON(result)
}

// Reset wipes local data and re-downloads everything, after confirming
// when unsynced changes would be lost.
func (a *App) Reset(ctx context.Context) {
	n, err := a.store.CountPending(ctx)
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	if n > 0 {
		printlnFn(fmt.Sprintf("You have %d unsynced changes. Type 'yes' to discard them and reset:", n))
		if !a.reader.Scan() || a.reader.Text() != "yes" {
			printlnFn("Reset cancelled")
			return
		}
	}
	if err := a.coordinator.ResetAndSync(ctx); err != nil {
		printlnFn("reset failed:", err.Error())
	}
}

func printJSON(v any) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printlnFn("error:", err.Error())
		return
	}
	printlnFn(string(encoded))
}

// summarize renders a one-line view of a record for search output.
func summarize(rec map[string]any) string {
	for _, path := range []string{"claim_number", "client_number", "contract_number", "site_reference", "id"} {
		if v := docpath.LookupString(rec, path); v != "" {
			title := docpath.LookupString(rec, "title")
			if title == "" {
				title = docpath.LookupString(rec, "company_name")
			}
			if title == "" {
				title = docpath.LookupString(rec, "last_name")
			}
			return fmt.Sprintf("%s %s", v, title)
		}
	}
	return fmt.Sprintf("%v", rec)
}
