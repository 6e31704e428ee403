package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
)

const handoffKeyPrefix = "checkout:handoff:"

// HandoffStore keeps the multi-item checkout snapshot alive just long enough
// for the confirmation step to consume it. Reading and consuming are split:
// confirmation peeks before persisting the order and discards only after the
// persist lands, so a failed persist leaves the snapshot for the redelivery.
type HandoffStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewHandoffStore(client *goredis.Client, ttl time.Duration) *HandoffStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &HandoffStore{client: client, ttl: ttl}
}

func (s *HandoffStore) Save(ctx context.Context, token string, snap cartdomain.CartSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal handoff snapshot: %w", err)
	}
	return s.client.Set(ctx, handoffKeyPrefix+token, payload, s.ttl).Err()
}

func (s *HandoffStore) Peek(ctx context.Context, token string) (cartdomain.CartSnapshot, bool, error) {
	payload, err := s.client.Get(ctx, handoffKeyPrefix+token).Bytes()
	if errors.Is(err, goredis.Nil) {
		return cartdomain.CartSnapshot{}, false, nil
	}
	if err != nil {
		return cartdomain.CartSnapshot{}, false, err
	}

	var snap cartdomain.CartSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return cartdomain.CartSnapshot{}, false, fmt.Errorf("unmarshal handoff snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *HandoffStore) Discard(ctx context.Context, token string) error {
	return s.client.Del(ctx, handoffKeyPrefix+token).Err()
}
