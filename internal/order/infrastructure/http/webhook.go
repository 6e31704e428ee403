package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez/storefront/internal/order/application"
)

// WebhookHandler receives the payment processor's session-completed callback
// and closes the checkout loop.
type WebhookHandler struct {
	log    *slog.Logger
	orders *application.Service
	tracer trace.Tracer
}

func NewWebhookHandler(log *slog.Logger, orders *application.Service) *WebhookHandler {
	return &WebhookHandler{
		log:    log,
		orders: orders,
		tracer: otel.Tracer("order-webhook"),
	}
}

func (h *WebhookHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payment", h.paymentWebhook)
	return r
}

type paymentWebhookReq struct {
	CartID    string `json:"cart_id"`
	Reference string `json:"reference"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func (h *WebhookHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	var req paymentWebhookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.CartID == "" || req.SessionID == "" || req.Reference == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	order, err := h.orders.ConfirmPayment(ctx, application.ConfirmedPayment{
		CartID:    req.CartID,
		Reference: req.Reference,
		SessionID: req.SessionID,
		Status:    req.Status,
	})
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"order_id": order.ID, "status": string(order.Status)})
	case errors.Is(err, application.ErrAlreadyProcessed), errors.Is(err, application.ErrUnhandledStatus):
		// Redeliveries and non-paid statuses are acknowledged so the
		// processor stops retrying.
		w.WriteHeader(http.StatusOK)
	default:
		h.log.Error("payment webhook failed", "session_id", req.SessionID, "err", err)
		http.Error(w, "confirmation failed", http.StatusInternalServerError)
	}
}
