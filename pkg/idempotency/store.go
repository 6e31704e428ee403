package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store deduplicates externally-triggered work (payment webhooks may be
// delivered more than once). A key is marked only after the work it guards
// has been persisted, so a failed attempt stays retryable.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func SessionKey(provider, sessionID string) string {
	return fmt.Sprintf("idem:%s:%s", provider, sessionID)
}

// Seen reports whether key was marked by an earlier successful run.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records key so later deliveries are treated as duplicates.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
