// Package gateway is the single entry point for all remote operations. It
// implements a stale-while-revalidate-on-failure policy: the network is
// always attempted first, the local replica is the fallback for reads, and
// writes attempted while offline are applied locally and queued for replay.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smadwh/claimsync/internal/client/models"
	"github.com/smadwh/claimsync/internal/client/store"
	"github.com/smadwh/claimsync/internal/common"
	"github.com/smadwh/claimsync/internal/logging"
)

// HealthEndpoint is the reachability probe used by the online watcher.
const HealthEndpoint = "/health"

// Gateway wraps outbound calls to the remote API and keeps the local
// replica warm. It holds no durable state of its own; the advisory online
// flag is a hint only, real reachability is judged per call.
type Gateway struct {
	baseURL string
	http    *http.Client
	store   *store.Store
	log     logging.Logger
	online  atomic.Bool
}

func New(baseURL string, timeout time.Duration, st *store.Store, log logging.Logger) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		store:   st,
		log:     log.With("component", "gateway"),
	}
	g.online.Store(true)
	return g
}

// SetOnline records the advisory connectivity hint. Correctness never
// depends on it: reads always try the network, and the flag only decides
// whether a failed write is queued or surfaced.
func (g *Gateway) SetOnline(v bool) { g.online.Store(v) }

// Online reports the advisory connectivity hint.
func (g *Gateway) Online() bool { return g.online.Load() }

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// Do performs a logical operation against the remote API. On network
// failure, reads fall back to the cached shape for the endpoint and writes
// made while the advisory flag is offline are queued, applied locally and
// answered with a synthesized success carrying "offline": true.
func (g *Gateway) Do(ctx context.Context, method, endpoint string, body any) (any, error) {
	route := Classify(endpoint)

	result, err := g.DoNetwork(ctx, method, endpoint, body)
	if err == nil {
		if isRead(method) {
			if werr := g.warm(ctx, route, result); werr != nil {
				// Losing local storage disables offline capability; surface it.
				return nil, werr
			}
		}
		return result, nil
	}

	if isRead(method) {
		cached, ferr := g.fallback(ctx, route)
		if ferr != nil {
			g.log.Debug(ctx, "no cached fallback", "endpoint", endpoint, "err", ferr)
			return nil, err
		}
		g.log.Info(ctx, "served from cache", "endpoint", endpoint)
		return cached, nil
	}

	if !g.Online() {
		return g.queueOfflineWrite(ctx, method, route, body)
	}

	// Online but failing: a genuine error the user must see.
	return nil, err
}

// DoNetwork performs the call with no cache involvement. The sync
// coordinator drains pending changes through this path only.
func (g *Gateway) DoNetwork(ctx context.Context, method, endpoint string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", common.ErrNetworkUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Detail = errBody.Detail
		}
		return nil, apiErr
	}

	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// Ping probes the health endpoint through the network path.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.DoNetwork(ctx, http.MethodGet, HealthEndpoint, nil)
	return err
}

// warm writes a successful read into the replica: arrays item-by-item,
// paginated envelopes unwrapped, referential sets and metadata blobs whole.
func (g *Gateway) warm(ctx context.Context, route Route, payload any) error {
	switch route.Kind {
	case RouteList, RouteSearch:
		recs := ExtractRecords(payload)
		if len(recs) == 0 {
			return nil
		}
		return g.store.PutAll(ctx, route.Collection, recs)
	case RouteSingleItem:
		if rec, ok := payload.(map[string]any); ok {
			return g.store.Put(ctx, route.Collection, rec)
		}
		return nil
	case RouteReferential:
		if route.Code != "" {
			// Partial snapshots are never cached over the full set.
			return nil
		}
		return g.store.PutReferential(ctx, route.Set, payload)
	case RouteMetaBlob:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s blob: %w", route.MetaKey, err)
		}
		return g.store.SetMeta(ctx, route.MetaKey, encoded)
	default:
		return nil
	}
}

// ExtractRecords unwraps either a bare array or an {items: [...]} envelope
// into a slice of records, dropping non-object elements.
func ExtractRecords(payload any) []models.Record {
	items, ok := payload.([]any)
	if !ok {
		if env, isMap := payload.(map[string]any); isMap {
			items, _ = env["items"].([]any)
		}
	}
	recs := make([]models.Record, 0, len(items))
	for _, item := range items {
		if rec, isMap := item.(map[string]any); isMap {
			recs = append(recs, rec)
		}
	}
	return recs
}
