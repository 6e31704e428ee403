package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a read-only snapshot taken from the inventory oracle at the time
// of a cart mutation. The oracle owns the authoritative copy.
type Product struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	SalePrice          *decimal.Decimal `json:"sale_price,omitempty"`
	AvailableInventory int              `json:"available_inventory"`
}

// EffectiveUnitPrice prefers the sale price when one is set.
func (p Product) EffectiveUnitPrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.UnitPrice
}

// CartLine is one product entry in a cart. The product snapshot is refreshed
// on every mutation touching the line.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds lines in insertion order for display stability. Totals are a
// cache recomputed after every mutation, never a source of truth. Version
// increases monotonically per mutation and rides along on remote pushes so
// the remote store can reject stale overwrites.
type Cart struct {
	ID           string
	Lines        []CartLine
	Totals       Totals
	Version      int64
	LastModified time.Time
}

func NewCart(id string) Cart {
	return Cart{ID: id}
}

// Line returns the line for productID, if present.
func (c *Cart) Line(productID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// AddLine increases the quantity for product by qty, creating the line on
// first add. The combined quantity must not exceed the product's available
// inventory; on violation the cart is left untouched.
func (c *Cart) AddLine(product Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	existing := 0
	if l, ok := c.Line(product.ID); ok {
		existing = l.Quantity
	}
	combined := existing + qty
	if combined > product.AvailableInventory {
		return &InventoryExceededError{
			ProductID: product.ID,
			Requested: combined,
			Available: product.AvailableInventory,
		}
	}
	c.upsertLine(product, combined)
	return nil
}

// SetLineQuantity sets the line for product to an absolute quantity. A
// quantity of zero or less removes the line.
func (c *Cart) SetLineQuantity(product Product, qty int) error {
	if qty <= 0 {
		c.RemoveLine(product.ID)
		return nil
	}
	if qty > product.AvailableInventory {
		return &InventoryExceededError{
			ProductID: product.ID,
			Requested: qty,
			Available: product.AvailableInventory,
		}
	}
	c.upsertLine(product, qty)
	return nil
}

// RemoveLine deletes the line for productID and reports whether a line was
// actually removed. Removing an absent line is a no-op, not an error.
func (c *Cart) RemoveLine(productID string) bool {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// ClearLines empties the cart.
func (c *Cart) ClearLines() {
	c.Lines = nil
}

// ReplaceLines swaps in a full line set, preserving the given order.
func (c *Cart) ReplaceLines(lines []CartLine) {
	c.Lines = append([]CartLine(nil), lines...)
}

// Recompute refreshes the derived totals, bumps the version and stamps the
// cart. Call after every successful mutation.
func (c *Cart) Recompute(now time.Time) {
	c.Totals = ComputeTotals(c.Lines)
	c.Version++
	c.LastModified = now.UTC()
}

// Clone deep-copies the cart so callers can hold it without racing the store.
func (c *Cart) Clone() Cart {
	out := *c
	out.Lines = append([]CartLine(nil), c.Lines...)
	return out
}

// Snapshot is the persisted form of a cart: lines and bookkeeping only,
// totals are recomputed on load so stale cached math cannot drift in.
func (c *Cart) Snapshot() CartSnapshot {
	return CartSnapshot{
		CartID:       c.ID,
		Lines:        append([]CartLine(nil), c.Lines...),
		Version:      c.Version,
		LastModified: c.LastModified,
	}
}

func (c *Cart) upsertLine(product Product, qty int) {
	for i, l := range c.Lines {
		if l.ProductID == product.ID {
			c.Lines[i].Product = product
			c.Lines[i].Quantity = qty
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{ProductID: product.ID, Product: product, Quantity: qty})
}

type CartSnapshot struct {
	CartID       string     `json:"cart_id"`
	Lines        []CartLine `json:"lines"`
	Version      int64      `json:"version"`
	LastModified time.Time  `json:"last_modified"`
}

// Restore rebuilds a live cart from a snapshot, recomputing totals without
// bumping the version.
func (s CartSnapshot) Restore() Cart {
	c := Cart{
		ID:           s.CartID,
		Lines:        append([]CartLine(nil), s.Lines...),
		Version:      s.Version,
		LastModified: s.LastModified,
	}
	c.Totals = ComputeTotals(c.Lines)
	return c
}

// RemoteCart is the server-held cart for an authenticated actor. It is a
// synchronization target, never authoritative over local edits made offline.
type RemoteCart struct {
	ActorID   string
	Lines     []CartLine
	Version   int64
	UpdatedAt time.Time
}
