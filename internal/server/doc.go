// Package server implements the HTTP server using Echo framework.
//
// Routes: the WebSocket presence endpoint (/ws), health probes,
// Prometheus metrics, and a read-only fleet view (/api/instances).
// Connection limits (global, per-IP, dial rate) are enforced before the
// WebSocket upgrade.
package server
