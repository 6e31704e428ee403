package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avelez/storefront/internal/cart/application"
	"github.com/avelez/storefront/internal/cart/domain"
)

type fakeOracle struct {
	products map[string]domain.Product
}

func (f *fakeOracle) GetProduct(_ context.Context, id string) (domain.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return domain.Product{}, domain.ErrProductNotFound
}

type fakeSnapshots struct {
	snaps map[string]domain.CartSnapshot
}

func (f *fakeSnapshots) Save(_ context.Context, snap domain.CartSnapshot) error {
	f.snaps[snap.CartID] = snap
	return nil
}

func (f *fakeSnapshots) Load(_ context.Context, cartID string) (domain.CartSnapshot, bool, error) {
	snap, ok := f.snaps[cartID]
	return snap, ok, nil
}

func (f *fakeSnapshots) Delete(_ context.Context, cartID string) error {
	delete(f.snaps, cartID)
	return nil
}

type fakeRemote struct {
	carts map[string]domain.RemoteCart
}

func (f *fakeRemote) Get(_ context.Context, actorID string) (domain.RemoteCart, bool, error) {
	cart, ok := f.carts[actorID]
	return cart, ok, nil
}

func (f *fakeRemote) Put(_ context.Context, actorID string, snap domain.CartSnapshot) error {
	f.carts[actorID] = domain.RemoteCart{ActorID: actorID, Lines: snap.Lines, Version: snap.Version}
	return nil
}

func newTestHandler(products ...domain.Product) (http.Handler, *fakeRemote) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	oracle := &fakeOracle{products: make(map[string]domain.Product)}
	for _, p := range products {
		oracle.products[p.ID] = p
	}
	snaps := &fakeSnapshots{snaps: make(map[string]domain.CartSnapshot)}
	remote := &fakeRemote{carts: make(map[string]domain.RemoteCart)}

	manager := application.NewManager(log, oracle, snaps)
	reconciler := application.NewReconciler(log, remote)
	return NewHandler(log, manager, reconciler).Routes(), remote
}

func handlerProduct(id, price string, inventory int) domain.Product {
	return domain.Product{
		ID:                 id,
		Name:               "product " + id,
		UnitPrice:          decimal.RequireFromString(price),
		AvailableInventory: inventory,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, cartID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if cartID != "" {
		req.Header.Set(cartIDHeader, cartID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_MissingCartHeader(t *testing.T) {
	h, _ := newTestHandler()
	rec := doJSON(t, h, http.MethodGet, "/cart", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_AddItem(t *testing.T) {
	h, _ := newTestHandler(handlerProduct("p1", "50.00", 3))

	rec := doJSON(t, h, http.MethodPost, "/cart/items", "c1",
		map[string]any{"product_id": "p1", "quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Lines  []map[string]any `json:"lines"`
		Totals struct {
			Total decimal.Decimal `json:"total"`
		} `json:"totals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(body.Lines))
	}
	if !body.Totals.Total.Equal(decimal.RequireFromString("117.99")) {
		t.Errorf("expected total 117.99, got %s", body.Totals.Total)
	}
}

func TestHandler_AddItem_DefaultQuantityOne(t *testing.T) {
	h, _ := newTestHandler(handlerProduct("p1", "10.00", 3))
	rec := doJSON(t, h, http.MethodPost, "/cart/items", "c1",
		map[string]any{"product_id": "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Lines []struct {
			Quantity int `json:"quantity"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Lines[0].Quantity != 1 {
		t.Errorf("expected default quantity 1, got %d", body.Lines[0].Quantity)
	}
}

func TestHandler_AddItem_InventoryConflict(t *testing.T) {
	h, _ := newTestHandler(handlerProduct("p1", "50.00", 3))

	if rec := doJSON(t, h, http.MethodPost, "/cart/items", "c1",
		map[string]any{"product_id": "p1", "quantity": 2}); rec.Code != http.StatusOK {
		t.Fatal(rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/cart/items", "c1",
		map[string]any{"product_id": "p1", "quantity": 2})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var body struct {
		ProductID string `json:"product_id"`
		Available int    `json:"available"`
		Shortfall int    `json:"shortfall"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.ProductID != "p1" || body.Available != 3 || body.Shortfall != 1 {
		t.Errorf("conflict payload wrong: %+v", body)
	}

	// The rejected add left the cart as it was.
	get := doJSON(t, h, http.MethodGet, "/cart", "c1", nil)
	var cart struct {
		Lines []struct {
			Quantity int `json:"quantity"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(get.Body.Bytes(), &cart); err != nil {
		t.Fatal(err)
	}
	if cart.Lines[0].Quantity != 2 {
		t.Errorf("expected quantity still 2, got %d", cart.Lines[0].Quantity)
	}
}

func TestHandler_UnknownProduct(t *testing.T) {
	h, _ := newTestHandler()
	rec := doJSON(t, h, http.MethodPost, "/cart/items", "c1",
		map[string]any{"product_id": "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_RemoveAndClear(t *testing.T) {
	h, _ := newTestHandler(handlerProduct("p1", "10.00", 5), handlerProduct("p2", "5.00", 5))

	doJSON(t, h, http.MethodPost, "/cart/items", "c1", map[string]any{"product_id": "p1"})
	doJSON(t, h, http.MethodPost, "/cart/items", "c1", map[string]any{"product_id": "p2"})

	if rec := doJSON(t, h, http.MethodDelete, "/cart/items/p1", "c1", nil); rec.Code != http.StatusOK {
		t.Fatalf("remove failed: %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodDelete, "/cart", "c1", nil)
	var body struct {
		Lines []any `json:"lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Lines) != 0 {
		t.Errorf("expected empty cart after clear, got %d lines", len(body.Lines))
	}
}

func TestHandler_SyncAdoptsRemote(t *testing.T) {
	h, remote := newTestHandler(handlerProduct("local", "10.00", 5))
	remote.carts["actor-1"] = domain.RemoteCart{
		ActorID: "actor-1",
		Lines: []domain.CartLine{{
			ProductID: "remote",
			Product:   handlerProduct("remote", "20.00", 5),
			Quantity:  1,
		}},
		Version: 2,
	}

	doJSON(t, h, http.MethodPost, "/cart/items", "c1", map[string]any{"product_id": "local"})

	rec := doJSON(t, h, http.MethodPost, "/cart/sync", "c1", map[string]any{"actor_id": "actor-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sync failed: %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Lines []struct {
			ProductID string `json:"product_id"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Lines) != 1 || body.Lines[0].ProductID != "remote" {
		t.Errorf("expected remote cart adopted, got %+v", body.Lines)
	}
}
