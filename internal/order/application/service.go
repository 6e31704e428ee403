package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
	"github.com/avelez/storefront/internal/order/domain"
	"github.com/avelez/storefront/pkg/idempotency"
	"github.com/avelez/storefront/pkg/tracing"
)

var (
	// ErrAlreadyProcessed means this payment session was confirmed before.
	// Webhook redelivery is expected; callers treat it as success.
	ErrAlreadyProcessed = errors.New("payment session already processed")

	// ErrUnhandledStatus means the webhook reported something other than a
	// completed payment. The cart stays untouched.
	ErrUnhandledStatus = errors.New("unhandled payment status")

	ErrNoPurchasedLines = errors.New("no purchased lines for confirmation")
)

// ConfirmedPayment is the payload the payment processor delivers when a
// session finishes.
type ConfirmedPayment struct {
	CartID    string
	Reference string
	SessionID string
	Status    string
}

// Service turns a paid payment session into a confirmed order. This is the
// step that finally clears the cart; checkout deliberately left it intact so
// an abandoned payment loses nothing.
type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	carts   CartAccess
	handoff HandoffSource
	idem    IdempotencyStore
}

func NewService(log *slog.Logger, repo OrderRepository, carts CartAccess, handoff HandoffSource, idem IdempotencyStore) *Service {
	return &Service{log: log, repo: repo, carts: carts, handoff: handoff, idem: idem}
}

func (s *Service) ConfirmPayment(ctx context.Context, payment ConfirmedPayment) (domain.Order, error) {
	if payment.Status != "paid" {
		return domain.Order{}, ErrUnhandledStatus
	}

	idemKey := idempotency.SessionKey("payment", payment.SessionID)
	seen, err := s.idem.Seen(ctx, idemKey)
	if err != nil {
		return domain.Order{}, fmt.Errorf("idempotency check: %w", err)
	}
	if seen {
		return domain.Order{}, ErrAlreadyProcessed
	}

	lines, fromHandoff, err := s.purchasedLines(ctx, payment)
	if err != nil {
		return domain.Order{}, err
	}
	if len(lines) == 0 {
		return domain.Order{}, ErrNoPurchasedLines
	}

	order := domain.NewOrder(uuid.NewString(), payment.CartID, payment.Reference, payment.SessionID, lines)
	event := domain.OrderConfirmed{
		OrderID:    order.ID,
		CartID:     order.CartID,
		Reference:  order.Reference,
		TotalCents: order.TotalCents,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.Order{}, err
	}

	headers := map[string]string{"source": "storefront"}
	if err := s.repo.SaveWithOutbox(ctx, order, "OrderConfirmed", payload, headers, tracing.Traceparent(ctx)); err != nil {
		// Nothing consumed yet: the handoff snapshot and the idempotency slot
		// are untouched, so the processor's redelivery gets a clean retry.
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	// Marked only after the persist lands. If the mark itself fails, the
	// unique order reference stops a redelivery from double-inserting.
	if err := s.idem.Mark(ctx, idemKey); err != nil {
		s.log.Warn("idempotency mark failed", "session_id", payment.SessionID, "err", err)
	}
	if fromHandoff {
		if err := s.handoff.Discard(ctx, payment.Reference); err != nil {
			s.log.Warn("handoff discard failed", "reference", payment.Reference, "err", err)
		}
	}

	if err := s.carts.Clear(ctx, payment.CartID); err != nil {
		// Order is in; a lingering cart is an annoyance, not corruption.
		s.log.Warn("cart clear after confirmation failed", "cart_id", payment.CartID, "err", err)
	}

	s.log.Info("order confirmed", "order_id", order.ID, "cart_id", order.CartID, "total_cents", order.TotalCents)
	return order, nil
}

// purchasedLines prefers the handoff snapshot written at checkout; without
// one (single-item flow) it falls back to the live cart. The snapshot is only
// peeked here; it is discarded after the order is safely persisted.
func (s *Service) purchasedLines(ctx context.Context, payment ConfirmedPayment) ([]cartdomain.CartLine, bool, error) {
	snap, ok, err := s.handoff.Peek(ctx, payment.Reference)
	if err != nil {
		return nil, false, fmt.Errorf("peek handoff snapshot: %w", err)
	}
	if ok {
		return snap.Lines, true, nil
	}

	cart, err := s.carts.Cart(ctx, payment.CartID)
	if err != nil {
		return nil, false, fmt.Errorf("load cart %s: %w", payment.CartID, err)
	}
	return cart.Lines, false, nil
}
