package presence

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wherepulse/wherepulse/internal/domain"
)

// fakeStore records puts and can fail on demand.
type fakeStore struct {
	mu      sync.Mutex
	records []domain.PresenceRecord
	putErr  error
}

func (f *fakeStore) Put(_ context.Context, rec domain.PresenceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) Scan(_ context.Context, _ string) ([]domain.PresenceRecord, error) {
	return nil, nil
}

func (f *fakeStore) Remove(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeSink collects MarkChanged calls.
type fakeSink struct {
	mu    sync.Mutex
	sites []string
}

func (f *fakeSink) MarkChanged(siteKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sites = append(f.sites, siteKey)
}

func (f *fakeSink) marked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sites...)
}

// fakeNotifier collects published site keys and can fail on demand.
type fakeNotifier struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (f *fakeNotifier) Publish(_ context.Context, siteKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, siteKey)
	return nil
}

func (f *fakeNotifier) publishedSites() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func validEvent() domain.UpdateEvent {
	return domain.UpdateEvent{
		ClientID:  "u1",
		SiteKey:   "example.com",
		Latitude:  37.75,
		Longitude: -122.42,
	}
}

func TestWriter_Submit_Valid(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	writer := NewWriter(store, sink, notifier)

	err := writer.Submit(context.Background(), validEvent())
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	assert.Equal(t, "example.com", store.records[0].SiteKey)
	assert.Equal(t, "u1", store.records[0].ClientID)
	assert.Equal(t, 37.75, store.records[0].Latitude)
	assert.Equal(t, -122.42, store.records[0].Longitude)

	assert.Equal(t, []string{"example.com"}, sink.marked())
	assert.Equal(t, []string{"example.com"}, notifier.publishedSites())
}

func TestWriter_Submit_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.UpdateEvent)
	}{
		{"missing client id", func(ev *domain.UpdateEvent) { ev.ClientID = "" }},
		{"missing site key", func(ev *domain.UpdateEvent) { ev.SiteKey = "" }},
		{"latitude too large", func(ev *domain.UpdateEvent) { ev.Latitude = 200 }},
		{"latitude too small", func(ev *domain.UpdateEvent) { ev.Latitude = -90.5 }},
		{"longitude too large", func(ev *domain.UpdateEvent) { ev.Longitude = 181 }},
		{"longitude too small", func(ev *domain.UpdateEvent) { ev.Longitude = -180.5 }},
		{"latitude NaN", func(ev *domain.UpdateEvent) { ev.Latitude = math.NaN() }},
		{"longitude Inf", func(ev *domain.UpdateEvent) { ev.Longitude = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			sink := &fakeSink{}
			notifier := &fakeNotifier{}
			writer := NewWriter(store, sink, notifier)

			ev := validEvent()
			tt.mutate(&ev)

			err := writer.Submit(context.Background(), ev)
			require.ErrorIs(t, err, domain.ErrInvalidUpdate)

			// Dropped events leave no trace: no write, no broadcast, no signal.
			assert.Zero(t, store.putCount())
			assert.Empty(t, sink.marked())
			assert.Empty(t, notifier.publishedSites())
		})
	}
}

func TestWriter_Submit_BoundaryCoordinates(t *testing.T) {
	store := &fakeStore{}
	writer := NewWriter(store, &fakeSink{}, &fakeNotifier{})

	for _, ev := range []domain.UpdateEvent{
		{ClientID: "u1", SiteKey: "example.com", Latitude: 90, Longitude: 180},
		{ClientID: "u1", SiteKey: "example.com", Latitude: -90, Longitude: -180},
		{ClientID: "u1", SiteKey: "example.com", Latitude: 0, Longitude: 0},
	} {
		assert.NoError(t, writer.Submit(context.Background(), ev))
	}
	assert.Equal(t, 3, store.putCount())
}

func TestWriter_Submit_StoreUnavailable(t *testing.T) {
	store := &fakeStore{putErr: domain.ErrStoreUnavailable}
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	writer := NewWriter(store, sink, notifier)

	err := writer.Submit(context.Background(), validEvent())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	// No broadcast or cross-instance signal for a write that never landed.
	assert.Empty(t, sink.marked())
	assert.Empty(t, notifier.publishedSites())
}

func TestWriter_Submit_PublishFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	notifier := &fakeNotifier{publishErr: errors.New("pubsub down")}
	writer := NewWriter(store, sink, notifier)

	// The write and local broadcast succeed even when the peer signal fails.
	err := writer.Submit(context.Background(), validEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, store.putCount())
	assert.Equal(t, []string{"example.com"}, sink.marked())
}
