package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// InventoryExceededError rejects a mutation that would take a line past the
// last-observed available inventory. The cart is unchanged when it fires.
type InventoryExceededError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InventoryExceededError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Shortfall is how many units over availability the request was.
func (e *InventoryExceededError) Shortfall() int {
	return e.Requested - e.Available
}
