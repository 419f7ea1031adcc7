package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auric-jewels/api/internal/payments"
	"github.com/auric-jewels/api/internal/platform/httpx"
	"github.com/auric-jewels/api/internal/services"
)

// Stripe signs payloads of a few kilobytes; anything near this cap is not a
// legitimate delivery.
const maxWebhookBody = 256 * 1024

// WebhookHandlers receives PSP webhook deliveries. Signature verification
// happens inside the payment service against the raw payload, so the handler
// must not reshape the body in any way.
type WebhookHandlers struct {
	payments services.PaymentService
}

// NewWebhookHandlers constructs webhook handlers.
func NewWebhookHandlers(payments services.PaymentService) *WebhookHandlers {
	return &WebhookHandlers{payments: payments}
}

// Routes registers webhook endpoints under the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripe)
}

type webhookResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId,omitempty"`
}

func (h *WebhookHandlers) handleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhooks_unavailable", "webhook processing unavailable", http.StatusServiceUnavailable))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		return
	}

	outcome, err := h.payments.HandleStripeWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeWebhookError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, webhookResponse{
		Status:  string(outcome.Status),
		OrderID: outcome.OrderID,
	})
}

func writeWebhookError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
	case errors.Is(err, services.ErrMissingOrderRef):
		httpx.WriteError(ctx, w, httpx.NewError("missing_order_reference", "event metadata carries no order id", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order referenced by event not found", http.StatusNotFound))
	case errors.Is(err, services.ErrShipmentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("shipment_failed", "shipment booking failed", http.StatusInternalServerError))
	case errors.Is(err, services.ErrEmailFailed):
		httpx.WriteError(ctx, w, httpx.NewError("email_failed", "order emails failed", http.StatusInternalServerError))
	case errors.Is(err, services.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("webhooks_unavailable", "webhook processing unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "failed to process webhook", http.StatusInternalServerError))
	}
}
