package application

import (
	"context"
	"errors"

	"github.com/avelez/storefront/internal/cart/domain"
)

// ErrStaleSnapshot is returned by RemoteCartRepository.Put when the remote
// cart already holds a newer version than the pushed snapshot.
var ErrStaleSnapshot = errors.New("remote cart holds a newer version")

// InventoryOracle is the external authority on product stock. Read-only.
type InventoryOracle interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// SnapshotStore is the durable local snapshot: lines and bookkeeping survive
// a restart, totals are recomputed on load.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.CartSnapshot) error
	Load(ctx context.Context, cartID string) (domain.CartSnapshot, bool, error)
	Delete(ctx context.Context, cartID string) error
}

// RemoteCartRepository is the server-held cart for an authenticated actor.
// Put is an idempotent full replace guarded by the snapshot version.
type RemoteCartRepository interface {
	Get(ctx context.Context, actorID string) (domain.RemoteCart, bool, error)
	Put(ctx context.Context, actorID string, snap domain.CartSnapshot) error
}
