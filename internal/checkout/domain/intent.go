package domain

import (
	"time"

	"github.com/google/uuid"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
)

// State of the single checkout intent a cart may have in flight.
type State string

const (
	StateIdle       State = "idle"
	StateBuilding   State = "building"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

type Mode string

const (
	ModeSingleItem Mode = "single_item"
	ModeMultiItem  Mode = "multi_item"
)

// Intent is the in-flight attempt to convert a cart into a payment session.
// It exists only between checkout trigger and session creation (or failure).
type Intent struct {
	Token     string
	Mode      Mode
	CartID    string
	Lines     []cartdomain.CartLine
	CreatedAt time.Time
}

func NewIntent(cartID string, lines []cartdomain.CartLine) Intent {
	mode := ModeSingleItem
	if len(lines) > 1 {
		mode = ModeMultiItem
	}
	return Intent{
		Token:     uuid.NewString(),
		Mode:      mode,
		CartID:    cartID,
		Lines:     append([]cartdomain.CartLine(nil), lines...),
		CreatedAt: time.Now().UTC(),
	}
}

// Session is what the core keeps of the processor's payment session: the
// redirect target and the correlation token, nothing of its internal state.
type Session struct {
	SessionID   string
	RedirectURL string
	Reference   string
}
