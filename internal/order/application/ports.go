package application

import (
	"context"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
	"github.com/avelez/storefront/internal/order/domain"
)

type OrderRepository interface {
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
}

// CartAccess is what order confirmation needs from the cart side: the live
// cart as a fallback line source, and clearing once the order is in.
type CartAccess interface {
	Cart(ctx context.Context, cartID string) (cartdomain.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

// HandoffSource reads the multi-item checkout snapshot. Peek leaves it in
// place so a failed confirmation can retry; Discard consumes it once the
// order is persisted.
type HandoffSource interface {
	Peek(ctx context.Context, token string) (cartdomain.CartSnapshot, bool, error)
	Discard(ctx context.Context, token string) error
}

// IdempotencyStore dedupes webhook deliveries. Mark happens only after the
// order is persisted; an earlier failure leaves the delivery retryable.
type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}
