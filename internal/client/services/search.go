// Package services implements client-side use cases on top of the gateway
// and the store.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/smadwh/claimsync/internal/client/gateway"
	"github.com/smadwh/claimsync/internal/client/models"
	"github.com/smadwh/claimsync/internal/client/phonetic"
	"github.com/smadwh/claimsync/internal/client/store"
	"github.com/smadwh/claimsync/internal/common"
	"github.com/smadwh/claimsync/internal/logging"
)

// DefaultThreshold is the minimum fuzzy score kept by offline searches.
const DefaultThreshold = 0.6

// searchFields lists the dotted-path fields matched per collection.
var searchFields = map[string][]string{
	"claims":    {"claim_number", "title", "description", "client_name"},
	"clients":   {"client_number", "first_name", "last_name", "company_name", "city"},
	"contracts": {"contract_number", "product_name"},
	"sites":     {"site_reference", "name", "city"},
}

// apiPrefixes maps collection names back to their API path prefixes.
var apiPrefixes = map[string]string{
	"claims":    "claims",
	"clients":   "clients",
	"contracts": "contracts",
	"sites":     "construction-sites",
}

// SearchService answers record searches, preferring the server's relevance
// ranking and falling back to local phonetic matching when the search
// endpoint is unreachable.
type SearchService struct {
	gw    *gateway.Gateway
	store *store.Store
	log   logging.Logger
}

func NewSearchService(gw *gateway.Gateway, st *store.Store, log logging.Logger) *SearchService {
	return &SearchService{gw: gw, store: st, log: log.With("component", "search")}
}

// Search queries a collection. The offline return value reports whether the
// results came from the local fuzzy matcher instead of the server.
func (s *SearchService) Search(ctx context.Context, collection, query string) (results []models.Record, offline bool, err error) {
	prefix, ok := apiPrefixes[collection]
	if !ok {
		return nil, false, fmt.Errorf("search %s: %w", collection, common.ErrUnknownCollection)
	}

	endpoint := "/" + prefix + "/search?q=" + url.QueryEscape(query)
	payload, err := s.gw.DoNetwork(ctx, http.MethodGet, endpoint, nil)
	if err == nil {
		return gateway.ExtractRecords(payload), false, nil
	}

	s.log.Debug(ctx, "search endpoint unreachable, matching locally", "collection", collection, "err", err)
	recs, serr := s.store.GetAll(ctx, collection)
	if serr != nil {
		return nil, false, serr
	}
	return phonetic.FuzzySearch(recs, query, searchFields[collection], DefaultThreshold), true, nil
}

// PhoneticSearch matches strictly by phonetic code over the cached
// collection, never touching the network.
func (s *SearchService) PhoneticSearch(ctx context.Context, collection, query string) ([]models.Record, error) {
	fields, ok := searchFields[collection]
	if !ok {
		return nil, fmt.Errorf("search %s: %w", collection, common.ErrUnknownCollection)
	}
	recs, err := s.store.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return phonetic.Search(recs, query, fields), nil
}
