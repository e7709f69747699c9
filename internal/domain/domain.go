package domain

import "context"

// PresenceRecord is the last known location of one client on one site.
// The pair (SiteKey, ClientID) maps to at most one record at any time;
// a later write replaces the earlier one and resets the expiry window.
// Expiry itself is carried by the store's TTL, not by the record: a
// record that has not been refreshed within the TTL is absent.
type PresenceRecord struct {
	SiteKey   string  `json:"-"`
	ClientID  string  `json:"clientId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateEvent is one inbound location update from a connected client.
type UpdateEvent struct {
	ClientID  string
	SiteKey   string
	Latitude  float64
	Longitude float64
}

// PresenceStore is the shared, TTL-capable store reachable by every
// instance. It is the sole source of cross-instance truth: the presence
// set for a site is always re-derived by scanning it, never cached.
type PresenceStore interface {
	// Put upserts a record and resets its TTL.
	Put(ctx context.Context, rec PresenceRecord) error
	// Scan returns all non-expired records for a site. Ordering is
	// unspecified; callers must not depend on it.
	Scan(ctx context.Context, siteKey string) ([]PresenceRecord, error)
	// Remove deletes a record. Removing an absent record is not an error.
	Remove(ctx context.Context, siteKey, clientID string) error
}

// Notifier propagates "site changed" signals between instances. The
// payload is only the site key: receivers re-read the authoritative
// presence set from the store, so duplicated or reordered signals are
// harmless.
type Notifier interface {
	Publish(ctx context.Context, siteKey string) error
}

// ChangeSink receives change triggers for a site. Triggers may be
// coalesced, but at least one fan-out follows the last trigger in a
// burst.
type ChangeSink interface {
	MarkChanged(siteKey string)
}
