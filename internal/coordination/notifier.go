package coordination

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wherepulse/wherepulse/internal/domain"
	"github.com/wherepulse/wherepulse/internal/metrics"
)

const changeChannel = "presence:changed"

// Notifier propagates "site X changed" signals between instances. An
// update landing on instance A publishes the site key; instances B and
// C react by re-reading the presence set from the store and pushing it
// to their local subscribers. The publishing instance receives its own
// signal too; the broadcaster's coalescing absorbs the double trigger.
type Notifier struct {
	rdb  *goredis.Client
	sink domain.ChangeSink
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier that forwards received signals to sink.
func NewNotifier(rdb *goredis.Client, sink domain.ChangeSink) *Notifier {
	return &Notifier{rdb: rdb, sink: sink}
}

// Publish announces a change for a site to all instances.
func (n *Notifier) Publish(ctx context.Context, siteKey string) error {
	if err := n.rdb.Publish(ctx, changeChannel, siteKey).Err(); err != nil {
		return fmt.Errorf("failed to publish presence change: %w", err)
	}
	return nil
}

// Start begins listening for change signals.
// Blocks until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	pubsub := n.rdb.Subscribe(ctx, changeChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			n.handleSignal(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// handleSignal processes a single change signal.
func (n *Notifier) handleSignal(siteKey string) {
	metrics.PubSubMessagesReceived.WithLabelValues(changeChannel).Inc()

	if siteKey == "" {
		slog.Warn("Ignoring presence change signal with empty site key")
		return
	}

	n.sink.MarkChanged(siteKey)
	slog.Debug("Presence change signal received", "site_key", siteKey)
}
