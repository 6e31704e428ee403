package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	cartapp "github.com/avelez/storefront/internal/cart/application"
	"github.com/avelez/storefront/internal/checkout/application"
	"github.com/avelez/storefront/internal/checkout/domain"
)

const cartIDHeader = "X-Cart-ID"

type Handler struct {
	log          *slog.Logger
	carts        *cartapp.Manager
	orchestrator *application.Orchestrator
	tracer       trace.Tracer
}

func NewHandler(log *slog.Logger, carts *cartapp.Manager, orchestrator *application.Orchestrator) *Handler {
	return &Handler{
		log:          log,
		carts:        carts,
		orchestrator: orchestrator,
		tracer:       otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.checkout)
	return r
}

type checkoutResp struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Reference   string `json:"reference"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	cartID := r.Header.Get(cartIDHeader)
	if cartID == "" {
		writeError(w, http.StatusBadRequest, "missing "+cartIDHeader+" header")
		return
	}

	store, err := h.carts.Store(ctx, cartID)
	if err != nil {
		h.log.Error("cart store load failed", "cart_id", cartID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	session, err := h.orchestrator.Checkout(ctx, store.Cart())
	if err != nil {
		h.writeCheckoutError(w, cartID, err)
		return
	}

	// The caller owns navigation to the redirect target; the cart stays
	// intact until the order is confirmed.
	writeJSON(w, http.StatusOK, checkoutResp{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
		Reference:   session.Reference,
	})
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, cartID string, err error) {
	var validation *domain.ValidationError
	var submission *domain.SubmissionError
	switch {
	case errors.Is(err, domain.ErrCheckoutInFlight):
		writeError(w, http.StatusConflict, "checkout already in progress")
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, "cart is empty")
	case errors.As(err, &validation):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "inventory changed, please review your cart",
			"product_id": validation.ProductID,
			"available":  validation.Available,
		})
	case errors.As(err, &submission):
		// Technical cause stays in the logs; the user sees a retryable line.
		h.log.Error("checkout submission failed", "cart_id", cartID, "err", err)
		writeError(w, http.StatusBadGateway, "we could not start the payment, please try again")
	default:
		h.log.Error("checkout failed", "cart_id", cartID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
