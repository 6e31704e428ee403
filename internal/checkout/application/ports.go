package application

import (
	"context"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
	"github.com/avelez/storefront/internal/checkout/domain"
)

// SessionRequest is what the payment processor needs to open a session.
// Single-item and multi-item checkouts use the same shape; only the line
// cardinality differs.
type SessionRequest struct {
	Reference  string
	Lines      []cartdomain.CartLine
	SuccessURL string
	CancelURL  string
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (domain.Session, error)
}

// HandoffStore bridges the two steps of a multi-item checkout: the snapshot
// is written before session creation so the confirmation step never has to
// re-derive lines from possibly-changed local state. The confirmation side
// reads and consumes it through its own port.
type HandoffStore interface {
	Save(ctx context.Context, token string, snap cartdomain.CartSnapshot) error
}
