package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/auric-jewels/api/internal/platform/httpx"
	"github.com/auric-jewels/api/internal/services"
)

const maxPromotionRequestBody = 4 * 1024

// PromotionHandlers validates and redeems promo codes for the storefront.
type PromotionHandlers struct {
	promotions services.PromotionService
	limiter    RateLimiter
}

// NewPromotionHandlers constructs promotion handlers.
func NewPromotionHandlers(promotions services.PromotionService, limiter RateLimiter) *PromotionHandlers {
	return &PromotionHandlers{
		promotions: promotions,
		limiter:    limiter,
	}
}

// Routes registers promotion endpoints under the provided router.
func (h *PromotionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/redeem", h.redeem)
}

type redeemPromotionRequest struct {
	Code string `json:"code"`
}

type redeemPromotionResponse struct {
	Code          string `json:"code"`
	PercentOff    int    `json:"percentOff"`
	RemainingUses int    `json:"remainingUses"`
}

func (h *PromotionHandlers) redeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promotions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promotions_unavailable", "promotion service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(strings.TrimSpace(r.RemoteAddr)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many redemption attempts", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxPromotionRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req redeemPromotionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "code is required", http.StatusBadRequest))
		return
	}

	redemption, err := h.promotions.Redeem(ctx, req.Code)
	if err != nil {
		writePromotionError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, redeemPromotionResponse{
		Code:          redemption.Code,
		PercentOff:    redemption.PercentOff,
		RemainingUses: redemption.RemainingUses,
	})
}

func writePromotionError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid promotion request", http.StatusBadRequest))
	case errors.Is(err, services.ErrPromotionInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_or_expired_code", "promo code is invalid or expired", http.StatusBadRequest))
	case errors.Is(err, services.ErrPromotionExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("usage_limit_reached", "promo code usage limit reached", http.StatusConflict))
	case errors.Is(err, services.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("promotions_unavailable", "promotion service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("promotion_error", "failed to redeem promo code", http.StatusInternalServerError))
	}
}
