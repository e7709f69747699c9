// Package redis implements the Redis-backed presence store.
//
// Provides PresenceStore (upsert with TTL, prefix scan, explicit remove)
// plus client hooks for Prometheus metrics and circuit breaker protection.
// Redis is the sole source of cross-instance truth: every broadcast
// re-derives the presence set from a scan.
package redis
