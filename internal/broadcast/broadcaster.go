package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/wherepulse/wherepulse/internal/domain"
	"github.com/wherepulse/wherepulse/internal/metrics"
)

const (
	storeTimeout   = 2 * time.Second // coordinated with circuit breaker threshold
	commandTimeout = 5 * time.Second // actor command timeout
	stopTimeout    = 10 * time.Second
)

type siteClients map[*websocket.Conn]*clientWriter

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type subscribeCmd struct {
	baseBroadcasterCmd
	siteKey      string
	connection   *websocket.Conn
	errorChannel chan error
}

type unsubscribeCmd struct {
	baseBroadcasterCmd
	connection *websocket.Conn
}

type markChangedCmd struct {
	baseBroadcasterCmd
	siteKey string
}

type clientCountCmd struct {
	baseBroadcasterCmd
	siteKey      string
	replyChannel chan int
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster tracks which local connections watch which site and turns
// "site X may have changed" into an outbound push of the full presence
// set to every local subscriber of X. Triggers are coalesced on a short
// window: a burst of changes costs one store scan, and the last change
// in a burst is always followed by a broadcast.
type Broadcaster struct {
	cmdCh          chan broadcasterCmd
	clock          clockwork.Clock
	store          domain.PresenceStore
	sites          map[string]siteClients
	siteOf         map[*websocket.Conn]string
	dirty          map[string]struct{}
	maxPerSite     int
	coalesceWindow time.Duration
	done           chan struct{}
}

var _ domain.ChangeSink = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster and starts its actor goroutine.
// maxPerSite limits connections per site (prevents resource exhaustion).
// coalesceWindow controls how long change triggers accumulate before one
// scan-and-push serves them all (lower = lower latency, higher store load).
func NewBroadcaster(store domain.PresenceStore, clock clockwork.Clock, maxPerSite int, coalesceWindow time.Duration) *Broadcaster {
	b := &Broadcaster{
		cmdCh:          make(chan broadcasterCmd, 256),
		clock:          clock,
		store:          store,
		sites:          make(map[string]siteClients),
		siteOf:         make(map[*websocket.Conn]string),
		dirty:          make(map[string]struct{}),
		maxPerSite:     maxPerSite,
		coalesceWindow: coalesceWindow,
		done:           make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe binds a connection to a site for its lifetime. Returns
// domain.ErrAlreadySubscribed if the connection is already bound, or an
// error if the site is at capacity (the connection is closed in that
// case).
func (b *Broadcaster) Subscribe(siteKey string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	b.cmdCh <- subscribeCmd{siteKey: siteKey, connection: conn, errorChannel: errCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("subscribe command timed out after %v", commandTimeout)
	}
}

// Unsubscribe removes a connection from its site. Idempotent: calling it
// for an unknown or already-removed connection is a no-op.
func (b *Broadcaster) Unsubscribe(conn *websocket.Conn) {
	b.cmdCh <- unsubscribeCmd{connection: conn}
}

// MarkChanged records that a site's presence set may have changed. The
// actual scan-and-push happens on the next coalescing tick.
func (b *Broadcaster) MarkChanged(siteKey string) {
	b.cmdCh <- markChangedCmd{siteKey: siteKey}
}

// ClientCount returns the number of local subscribers for a site.
// Returns -1 if the command times out.
func (b *Broadcaster) ClientCount(siteKey string) int {
	replyCh := make(chan int, 1)
	b.cmdCh <- clientCountCmd{siteKey: siteKey, replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the broadcaster, closing all client connections.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (b *Broadcaster) Stop() {
	b.cmdCh <- stopCmd{}

	timer := b.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Broadcaster stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (b *Broadcaster) run() {
	ticker := b.clock.NewTicker(b.coalesceWindow)
	defer ticker.Stop()
	defer close(b.done)

	for {
		select {
		case cmd := <-b.cmdCh:
			switch c := cmd.(type) {
			case subscribeCmd:
				b.handleSubscribe(c)
			case unsubscribeCmd:
				b.removeConnection(c.connection, "")
			case markChangedCmd:
				b.dirty[c.siteKey] = struct{}{}
			case clientCountCmd:
				c.replyChannel <- len(b.sites[c.siteKey])
			case stopCmd:
				b.handleStop()
				return
			default:
				slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-ticker.Chan():
			b.flushDirty()
		}
	}
}

func (b *Broadcaster) handleSubscribe(c subscribeCmd) {
	if _, bound := b.siteOf[c.connection]; bound {
		c.errorChannel <- domain.ErrAlreadySubscribed
		return
	}

	clients, exists := b.sites[c.siteKey]
	if !exists {
		clients = make(siteClients)
		b.sites[c.siteKey] = clients
		metrics.BroadcasterActiveSites.Set(float64(len(b.sites)))
	}

	if len(clients) >= b.maxPerSite {
		slog.Warn("Rejecting subscriber: site at capacity", "site_key", c.siteKey, "max_clients", b.maxPerSite)
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients per site (%d) reached", b.maxPerSite)
		return
	}

	clients[c.connection] = newClientWriter(c.connection, b.clock)
	b.siteOf[c.connection] = c.siteKey
	metrics.BroadcasterConnectedClients.Inc()
	slog.Debug("Subscriber registered", "site_key", c.siteKey, "total", len(clients))
	c.errorChannel <- nil
}

// removeConnection unbinds a connection from its site. reason, when
// non-empty, is sent in a close frame.
func (b *Broadcaster) removeConnection(conn *websocket.Conn, reason string) {
	siteKey, bound := b.siteOf[conn]
	if !bound {
		return
	}

	clients := b.sites[siteKey]
	cw := clients[conn]
	if reason != "" {
		cw.stopGraceful(reason)
	} else {
		cw.stop()
	}

	delete(clients, conn)
	delete(b.siteOf, conn)
	metrics.BroadcasterConnectedClients.Dec()

	if len(clients) == 0 {
		delete(b.sites, siteKey)
		metrics.BroadcasterActiveSites.Set(float64(len(b.sites)))
		slog.Debug("Last subscriber left site", "site_key", siteKey)
	}
}

// flushDirty re-derives the presence set for every dirty site with local
// subscribers and pushes it as a full-set replacement message. A failed
// scan skips that site's cycle; the next triggering event re-marks it.
func (b *Broadcaster) flushDirty() {
	for siteKey := range b.dirty {
		delete(b.dirty, siteKey)

		clients := b.sites[siteKey]
		if len(clients) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		records, err := b.store.Scan(ctx, siteKey)
		cancel()
		if err != nil {
			slog.Warn("Skipping broadcast, presence scan failed", "site_key", siteKey, "error", err)
			metrics.BroadcastsTotal.WithLabelValues("scan_error").Inc()
			continue
		}

		if records == nil {
			// full-set replacement: an empty set still serializes as []
			records = []domain.PresenceRecord{}
		}
		data, err := json.Marshal(records)
		if err != nil {
			slog.Error("Failed to marshal presence set", "site_key", siteKey, "error", err)
			continue
		}

		var slow []*websocket.Conn
		for conn, cw := range clients {
			select {
			case cw.sendChannel <- data:
			default:
				slow = append(slow, conn)
			}
		}

		for _, conn := range slow {
			slog.Warn("Disconnecting slow client", "site_key", siteKey)
			metrics.SlowClientsDisconnected.Inc()
			b.removeConnection(conn, "send buffer full")
		}

		metrics.BroadcastsTotal.WithLabelValues("ok").Inc()
	}
}

func (b *Broadcaster) handleStop() {
	for siteKey, clients := range b.sites {
		for conn, cw := range clients {
			cw.stopGraceful("server shutting down")
			delete(b.siteOf, conn)
		}
		delete(b.sites, siteKey)
	}
	metrics.BroadcasterActiveSites.Set(0)
	metrics.BroadcasterConnectedClients.Set(0)
}
