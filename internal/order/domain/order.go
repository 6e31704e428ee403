package domain

import (
	"time"

	"github.com/shopspring/decimal"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
)

type OrderStatus string

const (
	StatusConfirmed OrderStatus = "confirmed"
)

// Order is a confirmed purchase, created only once the payment processor
// reports the session as paid.
type Order struct {
	ID         string
	CartID     string
	Reference  string
	SessionID  string
	Lines      []OrderLine
	TotalCents int64
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitCents int64
}

// NewOrder freezes the purchased cart lines into order lines. The total is
// the full cart total (shipping and tax included) at confirmation time.
func NewOrder(id, cartID, reference, sessionID string, lines []cartdomain.CartLine) Order {
	orderLines := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		orderLines = append(orderLines, OrderLine{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitCents: toCents(l.Product.EffectiveUnitPrice()),
		})
	}
	now := time.Now().UTC()
	return Order{
		ID:         id,
		CartID:     cartID,
		Reference:  reference,
		SessionID:  sessionID,
		Lines:      orderLines,
		TotalCents: toCents(cartdomain.ComputeTotals(lines).Total),
		Status:     StatusConfirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}
