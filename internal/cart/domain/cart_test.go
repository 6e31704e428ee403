package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testProduct(id, price string, inventory int) Product {
	return Product{
		ID:                 id,
		Name:               "product " + id,
		UnitPrice:          decimal.RequireFromString(price),
		AvailableInventory: inventory,
	}
}

func TestCart_AddLine(t *testing.T) {
	c := NewCart("c1")

	if err := c.AddLine(testProduct("p1", "50.00", 3), 2); err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}
	line, ok := c.Line("p1")
	if !ok || line.Quantity != 2 {
		t.Fatalf("expected line p1 qty 2, got %+v ok=%v", line, ok)
	}

	// Adding again accumulates within the inventory bound.
	if err := c.AddLine(testProduct("p1", "50.00", 3), 1); err != nil {
		t.Fatalf("second AddLine failed: %v", err)
	}
	line, _ = c.Line("p1")
	if line.Quantity != 3 {
		t.Fatalf("expected qty 3, got %d", line.Quantity)
	}
}

func TestCart_AddLine_InventoryExceeded(t *testing.T) {
	c := NewCart("c1")
	if err := c.AddLine(testProduct("p1", "50.00", 3), 2); err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}

	err := c.AddLine(testProduct("p1", "50.00", 3), 2)
	var exceeded *InventoryExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected InventoryExceededError, got %v", err)
	}
	if exceeded.Shortfall() != 1 {
		t.Errorf("expected shortfall 1, got %d", exceeded.Shortfall())
	}
	if exceeded.Available != 3 {
		t.Errorf("expected available 3, got %d", exceeded.Available)
	}

	// The rejected mutation must leave the cart untouched.
	line, _ := c.Line("p1")
	if line.Quantity != 2 {
		t.Errorf("cart mutated on rejection: qty %d", line.Quantity)
	}
}

func TestCart_AddLine_InvalidQuantity(t *testing.T) {
	c := NewCart("c1")
	if err := c.AddLine(testProduct("p1", "1.00", 10), 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCart_SetLineQuantity(t *testing.T) {
	c := NewCart("c1")
	p := testProduct("p1", "10.00", 5)
	if err := c.AddLine(p, 2); err != nil {
		t.Fatal(err)
	}

	// Absolute set, not a delta.
	if err := c.SetLineQuantity(p, 5); err != nil {
		t.Fatalf("SetLineQuantity failed: %v", err)
	}
	line, _ := c.Line("p1")
	if line.Quantity != 5 {
		t.Fatalf("expected qty 5, got %d", line.Quantity)
	}

	var exceeded *InventoryExceededError
	if err := c.SetLineQuantity(p, 6); !errors.As(err, &exceeded) {
		t.Fatalf("expected InventoryExceededError, got %v", err)
	}

	// Zero or below removes the line.
	if err := c.SetLineQuantity(p, 0); err != nil {
		t.Fatalf("SetLineQuantity(0) failed: %v", err)
	}
	if _, ok := c.Line("p1"); ok {
		t.Error("expected line removed at quantity 0")
	}
}

func TestCart_RemoveLine_AbsentIsNoop(t *testing.T) {
	c := NewCart("c1")
	if removed := c.RemoveLine("ghost"); removed {
		t.Error("removing an absent line should report false")
	}
}

func TestCart_InsertionOrderStable(t *testing.T) {
	c := NewCart("c1")
	for _, id := range []string{"b", "a", "c"} {
		if err := c.AddLine(testProduct(id, "1.00", 10), 1); err != nil {
			t.Fatal(err)
		}
	}
	// Mutating a middle line must not reorder.
	if err := c.SetLineQuantity(testProduct("a", "1.00", 10), 3); err != nil {
		t.Fatal(err)
	}

	want := []string{"b", "a", "c"}
	for i, l := range c.Lines {
		if l.ProductID != want[i] {
			t.Fatalf("line order changed: got %v at %d, want %v", l.ProductID, i, want[i])
		}
	}
}

func TestCart_RecomputeBumpsVersion(t *testing.T) {
	c := NewCart("c1")
	if err := c.AddLine(testProduct("p1", "50.00", 3), 2); err != nil {
		t.Fatal(err)
	}
	c.Recompute(time.Now())

	if c.Version != 1 {
		t.Errorf("expected version 1, got %d", c.Version)
	}
	if !c.Totals.Total.Equal(decimal.RequireFromString("117.99")) {
		t.Errorf("expected total 117.99, got %s", c.Totals.Total)
	}
	if c.LastModified.IsZero() {
		t.Error("expected lastModified set")
	}
}

func TestCartSnapshot_RoundTrip(t *testing.T) {
	c := NewCart("c1")
	sale := decimal.RequireFromString("4.50")
	p := testProduct("p1", "5.00", 10)
	p.SalePrice = &sale
	if err := c.AddLine(p, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLine(testProduct("p2", "30.00", 4), 1); err != nil {
		t.Fatal(err)
	}
	c.Recompute(time.Now())

	payload, err := json.Marshal(c.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var snap CartSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatal(err)
	}

	restored := snap.Restore()
	if len(restored.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(restored.Lines))
	}
	if restored.Lines[0].ProductID != "p1" || restored.Lines[0].Quantity != 2 {
		t.Errorf("line p1 not restored: %+v", restored.Lines[0])
	}
	if restored.Version != c.Version {
		t.Errorf("version not restored: %d vs %d", restored.Version, c.Version)
	}
	// Totals come back recomputed, not persisted: 9.00 + 30.00 subtotal.
	if !restored.Totals.Subtotal.Equal(decimal.RequireFromString("39.00")) {
		t.Errorf("expected recomputed subtotal 39.00, got %s", restored.Totals.Subtotal)
	}
}
