package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	cartapp "github.com/avelez/storefront/internal/cart/application"
	cartdomain "github.com/avelez/storefront/internal/cart/domain"
	"github.com/avelez/storefront/internal/checkout/domain"
)

const maxInventoryChecks = 4

// Orchestrator drives the cart-to-payment-session transition. Per cart it
// runs a single intent through Idle → Building → Submitting → {Succeeded,
// Failed}, rejecting a second trigger while one is in flight and resetting to
// Idle once the caller has its answer. It never clears the cart; that is
// deferred to confirmed-order handling so an abandoned payment loses nothing.
type Orchestrator struct {
	log     *slog.Logger
	oracle  cartapp.InventoryOracle
	gateway PaymentGateway
	handoff HandoffStore

	successURL    string
	cancelURL     string
	submitTimeout time.Duration

	mu     sync.Mutex
	states map[string]domain.State
}

func NewOrchestrator(log *slog.Logger, oracle cartapp.InventoryOracle, gateway PaymentGateway, handoff HandoffStore, successURL, cancelURL string, submitTimeout time.Duration) *Orchestrator {
	if submitTimeout <= 0 {
		submitTimeout = 15 * time.Second
	}
	return &Orchestrator{
		log:           log,
		oracle:        oracle,
		gateway:       gateway,
		handoff:       handoff,
		successURL:    successURL,
		cancelURL:     cancelURL,
		submitTimeout: submitTimeout,
		states:        make(map[string]domain.State),
	}
}

// State reports the current checkout state for a cart. Absent carts are Idle.
func (o *Orchestrator) State(cartID string) domain.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[cartID]; ok {
		return s
	}
	return domain.StateIdle
}

// Checkout validates the cart against current inventory one final time, then
// requests a payment session. Multi-item carts first persist a handoff
// snapshot so the confirmation step can reconstruct the purchased lines.
func (o *Orchestrator) Checkout(ctx context.Context, cart cartdomain.Cart) (domain.Session, error) {
	if !o.begin(cart.ID) {
		return domain.Session{}, domain.ErrCheckoutInFlight
	}
	defer o.finish(cart.ID)

	if len(cart.Lines) == 0 {
		o.setState(cart.ID, domain.StateFailed)
		return domain.Session{}, domain.ErrEmptyCart
	}

	if err := o.validate(ctx, cart.Lines); err != nil {
		o.setState(cart.ID, domain.StateFailed)
		return domain.Session{}, err
	}

	o.setState(cart.ID, domain.StateSubmitting)
	intent := domain.NewIntent(cart.ID, cart.Lines)

	sctx, cancel := context.WithTimeout(ctx, o.submitTimeout)
	defer cancel()

	if intent.Mode == domain.ModeMultiItem {
		if err := o.handoff.Save(sctx, intent.Token, cart.Snapshot()); err != nil {
			o.setState(cart.ID, domain.StateFailed)
			return domain.Session{}, &domain.SubmissionError{Cause: fmt.Errorf("handoff snapshot: %w", err)}
		}
	}

	session, err := o.gateway.CreateSession(sctx, SessionRequest{
		Reference:  intent.Token,
		Lines:      intent.Lines,
		SuccessURL: o.successURL,
		CancelURL:  o.cancelURL,
	})
	if err != nil {
		o.setState(cart.ID, domain.StateFailed)
		return domain.Session{}, &domain.SubmissionError{Cause: err}
	}

	o.setState(cart.ID, domain.StateSucceeded)
	o.log.Info("payment session created",
		"cart_id", cart.ID, "mode", string(intent.Mode),
		"reference", intent.Token, "session_id", session.SessionID)
	session.Reference = intent.Token
	return session, nil
}

// validate re-checks every line against current availability. Any line over
// its inventory aborts the whole checkout; nothing is partially checked out.
func (o *Orchestrator) validate(ctx context.Context, lines []cartdomain.CartLine) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInventoryChecks)

	for _, line := range lines {
		g.Go(func() error {
			product, err := o.oracle.GetProduct(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("inventory re-check for %s: %w", line.ProductID, err)
			}
			if line.Quantity > product.AvailableInventory {
				return &domain.ValidationError{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: product.AvailableInventory,
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// begin claims the cart's intent slot; only Idle (or a retired terminal
// state) may start a new checkout.
func (o *Orchestrator) begin(cartID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.states[cartID] {
	case domain.StateBuilding, domain.StateSubmitting:
		return false
	}
	o.states[cartID] = domain.StateBuilding
	return true
}

// finish retires the intent so the next attempt starts from Idle.
func (o *Orchestrator) finish(cartID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.states, cartID)
}

func (o *Orchestrator) setState(cartID string, s domain.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[cartID] = s
}
