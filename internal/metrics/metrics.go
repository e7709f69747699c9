// Package metrics defines the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redis Operations Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Presence Metrics
var (
	// PresenceUpdatesTotal tracks inbound location updates by outcome
	PresenceUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_updates_total",
			Help: "Inbound presence updates by outcome (ok/invalid/store_error)",
		},
		[]string{"status"},
	)

	// PresenceRemovalsTotal tracks explicit record removals on clean disconnect
	PresenceRemovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_removals_total",
			Help: "Explicit presence record removals on clean disconnect",
		},
	)
)

// Broadcaster Metrics
var (
	// BroadcasterActiveSites tracks number of sites with local subscribers
	BroadcasterActiveSites = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcaster_active_sites",
			Help: "Number of sites with at least one local subscriber",
		},
	)

	// BroadcasterConnectedClients tracks total connected WebSocket clients
	BroadcasterConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcaster_connected_clients",
			Help: "Total connected WebSocket clients across all sites",
		},
	)

	// BroadcastsTotal tracks fan-out cycles by outcome
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Broadcast cycles by outcome (ok/scan_error)",
		},
		[]string{"status"},
	)

	// SlowClientsDisconnected tracks clients evicted for full send buffers
	SlowClientsDisconnected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slow_clients_disconnected_total",
			Help: "Clients evicted because their send buffer was full",
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed WebSocket keepalive pings",
		},
	)
)

// Coordination Metrics
var (
	// PubSubMessagesReceived tracks cross-instance signals by channel
	PubSubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_received_total",
			Help: "Cross-instance pub/sub messages received by channel",
		},
		[]string{"channel"},
	)
)

// Connection Limit Metrics
var (
	// ConnectionsRejectedTotal tracks rejected connection attempts by reason
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connections_rejected_total",
			Help: "Rejected connection attempts by reason (global/per_ip/rate)",
		},
		[]string{"reason"},
	)
)
