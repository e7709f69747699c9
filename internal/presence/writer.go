// Package presence implements the entry point for inbound location updates.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/wherepulse/wherepulse/internal/domain"
	"github.com/wherepulse/wherepulse/internal/metrics"
)

// Writer validates an inbound update event, persists it as a presence
// record with a refreshed TTL, and triggers fan-out locally and on peer
// instances.
type Writer struct {
	store    domain.PresenceStore
	sink     domain.ChangeSink
	notifier domain.Notifier
}

// NewWriter creates a writer. sink receives the local broadcast trigger;
// notifier signals peer instances.
func NewWriter(store domain.PresenceStore, sink domain.ChangeSink, notifier domain.Notifier) *Writer {
	return &Writer{store: store, sink: sink, notifier: notifier}
}

// Submit processes one update event. Malformed input fails with
// domain.ErrInvalidUpdate and the event is dropped without touching the
// store. A failed store write surfaces domain.ErrStoreUnavailable to
// the caller; the writer does not retry internally, so a store outage
// is not amplified.
func (w *Writer) Submit(ctx context.Context, ev domain.UpdateEvent) error {
	if err := validate(ev); err != nil {
		metrics.PresenceUpdatesTotal.WithLabelValues("invalid").Inc()
		return err
	}

	rec := domain.PresenceRecord{
		SiteKey:   ev.SiteKey,
		ClientID:  ev.ClientID,
		Latitude:  ev.Latitude,
		Longitude: ev.Longitude,
	}
	if err := w.store.Put(ctx, rec); err != nil {
		metrics.PresenceUpdatesTotal.WithLabelValues("store_error").Inc()
		return err
	}

	w.sink.MarkChanged(ev.SiteKey)

	if err := w.notifier.Publish(ctx, ev.SiteKey); err != nil {
		// Local fan-out already happened; peers converge on the client's
		// next refresh.
		slog.Warn("Failed to publish presence change", "site_key", ev.SiteKey, "error", err)
	}

	metrics.PresenceUpdatesTotal.WithLabelValues("ok").Inc()
	return nil
}

// PublishChange signals peers that a site's presence set changed outside
// the normal update path (e.g. an explicit removal on clean disconnect).
func (w *Writer) PublishChange(ctx context.Context, siteKey string) error {
	return w.notifier.Publish(ctx, siteKey)
}

func validate(ev domain.UpdateEvent) error {
	switch {
	case ev.ClientID == "":
		return fmt.Errorf("%w: missing client id", domain.ErrInvalidUpdate)
	case ev.SiteKey == "":
		return fmt.Errorf("%w: missing site key", domain.ErrInvalidUpdate)
	case !isFinite(ev.Latitude) || ev.Latitude < -90 || ev.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidUpdate, ev.Latitude)
	case !isFinite(ev.Longitude) || ev.Longitude < -180 || ev.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidUpdate, ev.Longitude)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
