// Package coordination handles cross-instance signalling.
//
// Notifier closes the consistency gap between instances via Redis
// Pub/Sub: a presence write anywhere publishes the site key, and every
// instance re-derives that site's presence set from the store. The
// channel is a pure signal, never a data carrier, so duplicated or
// reordered messages are harmless.
//
// InstanceRegistry tracks the active fleet via heartbeats in a shared
// Redis hash, for operational visibility only.
package coordination
