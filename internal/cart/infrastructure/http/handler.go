package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez/storefront/internal/cart/application"
	"github.com/avelez/storefront/internal/cart/domain"
)

const cartIDHeader = "X-Cart-ID"

type Handler struct {
	log        *slog.Logger
	carts      *application.Manager
	reconciler *application.Reconciler
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, carts *application.Manager, reconciler *application.Reconciler) *Handler {
	return &Handler{
		log:        log,
		carts:      carts,
		reconciler: reconciler,
		tracer:     otel.Tracer("cart-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{productID}", h.setQuantity)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/sync", h.syncCart)
	return r
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type setQuantityReq struct {
	Quantity int `json:"quantity"`
}

type syncReq struct {
	ActorID string `json:"actor_id"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartView(store.Cart()))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddItem")
	defer span.End()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	cart, err := store.AddItem(ctx, req.ProductID, qty)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetQuantity")
	defer span.End()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req setQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := store.SetQuantity(ctx, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveItem")
	defer span.End()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	cart, err := store.RemoveItem(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	cart, err := store.Clear(ctx)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) syncCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncCart")
	defer span.End()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req syncReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reconciler.Reconcile(ctx, req.ActorID, store); err != nil {
		h.log.Warn("cart reconciliation failed", "actor_id", req.ActorID, "err", err)
		writeError(w, http.StatusBadGateway, "cart sync failed, your local cart is unchanged")
		return
	}
	writeJSON(w, http.StatusOK, cartView(store.Cart()))
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*application.Store, bool) {
	cartID := r.Header.Get(cartIDHeader)
	if cartID == "" {
		writeError(w, http.StatusBadRequest, "missing "+cartIDHeader+" header")
		return nil, false
	}
	store, err := h.carts.Store(r.Context(), cartID)
	if err != nil {
		h.log.Error("cart store load failed", "cart_id", cartID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return store, true
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error) {
	var exceeded *domain.InventoryExceededError
	switch {
	case errors.As(err, &exceeded):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient inventory",
			"product_id": exceeded.ProductID,
			"available":  exceeded.Available,
			"shortfall":  exceeded.Shortfall(),
		})
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "quantity must be positive")
	default:
		h.log.Error("cart mutation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type lineView struct {
	ProductID string           `json:"product_id"`
	Name      string           `json:"name"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
	Quantity  int              `json:"quantity"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
}

type cartViewBody struct {
	CartID       string        `json:"cart_id"`
	Lines        []lineView    `json:"lines"`
	Totals       domain.Totals `json:"totals"`
	LastModified string        `json:"last_modified,omitempty"`
}

func cartView(c domain.Cart) cartViewBody {
	lines := make([]lineView, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, lineView{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			UnitPrice: l.Product.UnitPrice,
			SalePrice: l.Product.SalePrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}
	body := cartViewBody{CartID: c.ID, Lines: lines, Totals: c.Totals}
	if !c.LastModified.IsZero() {
		body.LastModified = c.LastModified.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
