// Package common defines shared sentinel errors used across the claimsync
// client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors. Both disable offline capability entirely, so they
	// always propagate to the caller.
	ErrStorageUnavailable   = errors.New("local storage unavailable")
	ErrStorageQuotaExceeded = errors.New("local storage quota exceeded")

	// A requested key has no local or remote representation.
	ErrNotFound = errors.New("not found")

	// A remote call failed and no cached fallback applied.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// A queued mutation was rejected by the server as stale or conflicting.
	// The change is flagged for manual resolution, never retried.
	ErrSyncConflict = errors.New("sync conflict")

	// An unknown collection or referential set name was used.
	ErrUnknownCollection = errors.New("unknown collection")

	// A sync run was requested while another one is in flight.
	ErrSyncInProgress = errors.New("sync already in progress")
)
