package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/avelez/storefront/internal/cart/domain"
)

const snapshotKeyPrefix = "cart:snapshot:"

// SnapshotStore persists {lines, version, lastModified} per cart under a
// fixed namespace key. Totals are never written; they are recomputed on load.
type SnapshotStore struct {
	client *goredis.Client
}

func NewSnapshotStore(client *goredis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.CartSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKeyPrefix+snap.CartID, payload, 0).Err()
}

func (s *SnapshotStore) Load(ctx context.Context, cartID string) (domain.CartSnapshot, bool, error) {
	payload, err := s.client.Get(ctx, snapshotKeyPrefix+cartID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.CartSnapshot{}, false, nil
	}
	if err != nil {
		return domain.CartSnapshot{}, false, err
	}

	var snap domain.CartSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.CartSnapshot{}, false, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, cartID string) error {
	return s.client.Del(ctx, snapshotKeyPrefix+cartID).Err()
}
