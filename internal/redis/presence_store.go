package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wherepulse/wherepulse/internal/domain"
)

const scanBatchSize = 100

// PresenceStore persists presence records in Redis with a fixed TTL.
// Every write is an upsert keyed by (siteKey, clientId) that resets the
// expiry window; an unrefreshed record disappears when its TTL lapses,
// which is what removes silently dropped clients from the presence set.
type PresenceStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewPresenceStore creates a store with the given record TTL. The TTL
// must be long enough to bridge normal client update intervals and
// short enough that a dead connection vanishes promptly.
func NewPresenceStore(rdb *goredis.Client, ttl time.Duration) *PresenceStore {
	return &PresenceStore{rdb: rdb, ttl: ttl}
}

// TTL returns the configured record expiry window.
func (s *PresenceStore) TTL() time.Duration {
	return s.ttl
}

// Put upserts a record and resets its TTL.
func (s *PresenceStore) Put(ctx context.Context, rec domain.PresenceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal presence record: %w", err)
	}

	key := presenceKey(rec.SiteKey, rec.ClientID)
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Scan returns all non-expired records for a site. Keys that expire
// between the key scan and the value fetch are skipped. Ordering is
// unspecified.
func (s *PresenceStore) Scan(ctx context.Context, siteKey string) ([]domain.PresenceRecord, error) {
	pattern := presenceKeyPrefix(siteKey) + "*"

	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", domain.ErrStoreUnavailable, pattern, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: mget: %v", domain.ErrStoreUnavailable, err)
	}

	records := make([]domain.PresenceRecord, 0, len(vals))
	for i, val := range vals {
		data, ok := val.(string)
		if !ok {
			// expired between scan and fetch
			continue
		}

		var rec domain.PresenceRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			slog.Warn("Skipping corrupt presence record", "key", keys[i], "error", err)
			continue
		}
		rec.SiteKey = siteKey
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes a record. Idempotent: removing an absent record is not
// an error. Used on clean disconnect to avoid waiting out the TTL.
func (s *PresenceStore) Remove(ctx context.Context, siteKey, clientID string) error {
	key := presenceKey(siteKey, clientID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

func presenceKey(siteKey, clientID string) string {
	return presenceKeyPrefix(siteKey) + clientID
}

func presenceKeyPrefix(siteKey string) string {
	return "presence:" + siteKey + ":"
}
