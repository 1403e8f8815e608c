package gateway

import (
	"strings"
)

// RouteKind tags the cache strategy for an endpoint. Classification is
// computed once per request and is total: every endpoint maps to exactly
// one kind, and shapes we cannot serve offline are RouteUnclassified.
type RouteKind int

const (
	RouteUnclassified RouteKind = iota
	RouteSingleItem             // one record by key, e.g. /clients/1
	RouteList                   // a paginated collection listing
	RouteSearch                 // server-side search over a collection
	RouteStats                  // aggregate statistics
	RouteReferential            // a reference-set snapshot
	RouteMetaBlob               // a blob cached under a metadata key
)

// Route is the result of classifying an endpoint.
type Route struct {
	Kind       RouteKind
	Collection string // for SingleItem, List, Search
	Key        string // for SingleItem
	Set        string // for Referential
	Code       string // for Referential single-code lookups
	MetaKey    string // for MetaBlob
	// Optional index filter for nested listings such as /clients/1/contracts.
	FilterIndex string
	FilterValue string
}

// collections maps URL path prefixes to store collection names.
var collections = map[string]string{
	"claims":             "claims",
	"clients":            "clients",
	"contracts":          "contracts",
	"construction-sites": "sites",
}

// Classify normalizes the endpoint (query string stripped, trailing slash
// trimmed) and pattern-matches it against the known shapes.
func Classify(endpoint string) Route {
	path := endpoint
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return Route{}
	}
	seg := strings.Split(path, "/")

	switch seg[0] {
	case "stats":
		return Route{Kind: RouteStats}

	case "referentials":
		return classifyReferential(seg[1:])

	case "addresses":
		if len(seg) == 1 {
			return Route{Kind: RouteMetaBlob, MetaKey: "addresses"}
		}
		// Single addresses have no per-item cache.
		return Route{}

	case "contract-history":
		if len(seg) == 1 {
			return Route{Kind: RouteMetaBlob, MetaKey: "history"}
		}
		return Route{}
	}

	col, ok := collections[seg[0]]
	if !ok {
		return Route{}
	}

	switch len(seg) {
	case 1:
		return Route{Kind: RouteList, Collection: col}
	case 2:
		if seg[1] == "search" {
			return Route{Kind: RouteSearch, Collection: col}
		}
		return Route{Kind: RouteSingleItem, Collection: col, Key: seg[1]}
	case 3:
		// Nested resources under a parent record.
		if col != "clients" && col != "contracts" {
			return Route{}
		}
		switch seg[2] {
		case "contracts":
			return Route{Kind: RouteList, Collection: "contracts", FilterIndex: "client_id", FilterValue: seg[1]}
		case "construction-sites":
			return Route{Kind: RouteList, Collection: "sites", FilterIndex: "client_id", FilterValue: seg[1]}
		case "addresses":
			return Route{Kind: RouteMetaBlob, MetaKey: "addresses"}
		case "history":
			return Route{Kind: RouteMetaBlob, MetaKey: "history"}
		}
		return Route{}
	default:
		return Route{}
	}
}

func classifyReferential(seg []string) Route {
	if len(seg) == 0 {
		return Route{}
	}
	switch len(seg) {
	case 1:
		return Route{Kind: RouteReferential, Set: seg[0]}
	case 2:
		return Route{Kind: RouteReferential, Set: seg[0], Code: seg[1]}
	case 3:
		// /referentials/contract-types/<code>/guarantees lists the
		// guarantees attached to one contract type; offline we can only
		// offer the full guarantees snapshot.
		if seg[0] == "contract-types" && seg[2] == "guarantees" {
			return Route{Kind: RouteReferential, Set: "guarantees"}
		}
		return Route{}
	default:
		return Route{}
	}
}

// entityType renders the singular entity name recorded on pending changes.
func entityType(collection string) string {
	return strings.TrimSuffix(collection, "s")
}
