// Package models holds the plain record types shared by the store, the
// request gateway and the sync coordinator.
package models

import "time"

// Record is a decoded JSON document as received from the remote API.
// Collections store records whole; primary keys and secondary index values
// are extracted by dotted path.
type Record = map[string]any

// Operations recorded on a PendingChange.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// PendingChange is a locally-applied mutation awaiting replay against the
// server. Changes are drained strictly in id order; a change rejected by the
// server as conflicting is flagged and kept for manual resolution.
type PendingChange struct {
	ID         int64
	EntityType string
	EntityID   string
	Operation  string
	Data       Record
	Timestamp  time.Time
	Conflict   bool
}

// SyncStatus is a point-in-time snapshot of the offline subsystem.
type SyncStatus struct {
	Online         bool
	SyncInProgress bool
	LastSync       time.Time // zero when never synced
	PendingCount   int64
	Collections    map[string]int64
}
