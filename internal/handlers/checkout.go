package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/platform/auth"
	"github.com/auric-jewels/api/internal/platform/httpx"
	"github.com/auric-jewels/api/internal/services"
)

const (
	maxCheckoutRequestBody = 16 * 1024
	maxGiftMessageLength   = 500
)

// CheckoutHandlers exposes the storefront checkout endpoints. Hosted payment
// sessions accept guests; cash on delivery requires a signed-in customer.
type CheckoutHandlers struct {
	authn     *auth.Authenticator
	checkout  services.CheckoutService
	limiter   RateLimiter
	sanitizer *bluemonday.Policy
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, limiter RateLimiter) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:     authn,
		checkout:  checkout,
		limiter:   limiter,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.With(h.authn.OptionalFirebaseAuth()).Post("/session", h.createSession)
		r.With(h.authn.RequireFirebaseAuth()).Post("/cod", h.placeCashOnDelivery)
		return
	}
	r.Post("/session", h.createSession)
	r.Post("/cod", h.placeCashOnDelivery)
}

type checkoutContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type checkoutLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type checkoutAddressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type checkoutRequest struct {
	Contact         checkoutContactRequest `json:"contact"`
	Items           []checkoutLineRequest  `json:"items"`
	ShippingAddress checkoutAddressRequest `json:"shippingAddress"`
	PromoCode       string                 `json:"promoCode"`
	GiftMessage     string                 `json:"giftMessage"`
}

type checkoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	Provider  string `json:"provider"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts", http.StatusTooManyRequests))
		return
	}

	req, ok := h.decodeCheckoutRequest(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.CreateSessionCommand{
		Contact:         buildContact(req.Contact),
		Items:           buildCartLines(req.Items),
		ShippingAddress: buildAddress(req.ShippingAddress),
		PromoCode:       strings.TrimSpace(req.PromoCode),
		GiftMessage:     h.cleanGiftMessage(req.GiftMessage),
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		cmd.UserID = identity.UID
	}

	session, err := h.checkout.CreateSession(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutSessionResponse{
		SessionID: session.SessionID,
		Provider:  session.PSP,
		URL:       session.RedirectURL,
		ExpiresAt: formatTime(session.ExpiresAt),
	})
}

func (h *CheckoutHandlers) placeCashOnDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts", http.StatusTooManyRequests))
		return
	}

	req, ok := h.decodeCheckoutRequest(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.CashOnDeliveryCommand{
		UserID:          identity.UID,
		Contact:         buildContact(req.Contact),
		Items:           buildCartLines(req.Items),
		ShippingAddress: buildAddress(req.ShippingAddress),
		PromoCode:       strings.TrimSpace(req.PromoCode),
		GiftMessage:     h.cleanGiftMessage(req.GiftMessage),
	}

	order, err := h.checkout.PlaceCashOnDelivery(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildOrderResponse(order))
}

func (h *CheckoutHandlers) decodeCheckoutRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (checkoutRequest, bool) {
	var req checkoutRequest

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return req, false
	}

	if strings.TrimSpace(req.Contact.Name) == "" || strings.TrimSpace(req.Contact.Email) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "contact name and email are required", http.StatusBadRequest))
		return req, false
	}
	if strings.TrimSpace(req.ShippingAddress.Line1) == "" || strings.TrimSpace(req.ShippingAddress.City) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipping address line1 and city are required", http.StatusBadRequest))
		return req, false
	}
	return req, true
}

func (h *CheckoutHandlers) allow(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	key := strings.TrimSpace(r.RemoteAddr)
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && strings.TrimSpace(identity.UID) != "" {
		key = identity.UID
	}
	return h.limiter.Allow(key)
}

// cleanGiftMessage strips markup from the customer-supplied gift note before
// it reaches storage or the printed packing slip.
func (h *CheckoutHandlers) cleanGiftMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	if h.sanitizer != nil {
		message = strings.TrimSpace(h.sanitizer.Sanitize(message))
	}
	if len(message) > maxGiftMessageLength {
		message = message[:maxGiftMessageLength]
	}
	return message
}

func buildContact(req checkoutContactRequest) services.CheckoutContact {
	return services.CheckoutContact{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	}
}

func buildCartLines(items []checkoutLineRequest) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			continue
		}
		lines = append(lines, domain.CartLine{ProductID: productID, Quantity: item.Quantity})
	}
	return lines
}

func buildAddress(req checkoutAddressRequest) domain.Address {
	addr := domain.Address{
		Line1:      strings.TrimSpace(req.Line1),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
	}
	if line2 := strings.TrimSpace(req.Line2); line2 != "" {
		addr.Line2 = &line2
	}
	if state := strings.TrimSpace(req.State); state != "" {
		addr.State = &state
	}
	return addr
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid checkout request", http.StatusBadRequest))
	case errors.Is(err, services.ErrEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no items", http.StatusBadRequest))
	case errors.Is(err, services.ErrNoValidProducts):
		httpx.WriteError(ctx, w, httpx.NewError("no_valid_products", "no purchasable products in cart", http.StatusBadRequest))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "insufficient stock for one or more items", http.StatusConflict))
	case errors.Is(err, services.ErrPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment session could not be created", http.StatusBadGateway))
	case errors.Is(err, services.ErrInvalidPhone):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_phone", "a valid mobile number is required for cash on delivery", http.StatusBadRequest))
	case errors.Is(err, services.ErrCODLimitExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("cod_limit_exceeded", "order total exceeds the cash on delivery limit", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPromotionInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_or_expired_code", "promo code is invalid or expired", http.StatusBadRequest))
	case errors.Is(err, services.ErrPromotionExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("usage_limit_reached", "promo code usage limit reached", http.StatusConflict))
	case errors.Is(err, services.ErrShipmentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("shipment_failed", "shipment booking failed", http.StatusBadGateway))
	case errors.Is(err, services.ErrEmailFailed):
		httpx.WriteError(ctx, w, httpx.NewError("email_failed", "order confirmation email failed", http.StatusBadGateway))
	case errors.Is(err, services.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
