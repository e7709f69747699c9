// Package domain defines the core domain types and interfaces.
//
// This package contains the presence data model (PresenceRecord, UpdateEvent),
// the sentinel errors of the error taxonomy, and cross-cutting interfaces.
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
