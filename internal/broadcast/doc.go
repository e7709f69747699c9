// Package broadcast implements the per-instance connection registry and
// the site broadcaster.
//
// A single actor goroutine owns the registry state; all mutation goes
// through typed commands on a channel, so subscribe/unsubscribe/fan-out
// never race. Change triggers are coalesced: dirty sites are flushed on
// a short ticker, one store scan serving a whole burst of updates. Each
// connection gets its own writer goroutine with a buffered send channel;
// a slow or dead connection is evicted without affecting the rest of the
// site's subscribers.
package broadcast
