package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/services"
)

type stubPromotionService struct {
	redeemFn func(ctx context.Context, code string) (domain.PromotionRedemption, error)
	lastCode string
}

func (s *stubPromotionService) Redeem(ctx context.Context, code string) (domain.PromotionRedemption, error) {
	s.lastCode = code
	if s.redeemFn != nil {
		return s.redeemFn(ctx, code)
	}
	return domain.PromotionRedemption{}, nil
}

func newPromotionRouter(svc services.PromotionService) chi.Router {
	h := NewPromotionHandlers(svc, nil)
	r := chi.NewRouter()
	r.Route("/promotions", h.Routes)
	return r
}

func TestRedeemReturnsDiscount(t *testing.T) {
	svc := &stubPromotionService{
		redeemFn: func(ctx context.Context, code string) (domain.PromotionRedemption, error) {
			return domain.PromotionRedemption{Code: "EID10", PercentOff: 10, RemainingUses: 59}, nil
		},
	}
	router := newPromotionRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/promotions/redeem", strings.NewReader(`{"code": "eid10"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp redeemPromotionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "EID10" || resp.PercentOff != 10 || resp.RemainingUses != 59 {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if svc.lastCode != "eid10" {
		t.Fatalf("expected raw code forwarded for normalisation, got %q", svc.lastCode)
	}
}

func TestRedeemRejectsBlankCode(t *testing.T) {
	router := newPromotionRouter(&stubPromotionService{})

	req := httptest.NewRequest(http.MethodPost, "/promotions/redeem", strings.NewReader(`{"code": "  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRedeemErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid code", services.ErrPromotionInvalid, http.StatusBadRequest, "invalid_or_expired_code"},
		{"exhausted", services.ErrPromotionExhausted, http.StatusConflict, "usage_limit_reached"},
		{"unavailable", services.ErrUnavailable, http.StatusServiceUnavailable, "promotions_unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubPromotionService{
				redeemFn: func(context.Context, string) (domain.PromotionRedemption, error) {
					return domain.PromotionRedemption{}, tc.err
				},
			}
			router := newPromotionRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/promotions/redeem", strings.NewReader(`{"code": "EXPIRED"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			payload := decodeErrorBody(t, rec)
			if payload["error"] != tc.wantCode {
				t.Fatalf("expected error code %q, got %v", tc.wantCode, payload["error"])
			}
		})
	}
}

func TestRedeemRejectsMalformedJSON(t *testing.T) {
	router := newPromotionRouter(&stubPromotionService{})

	req := httptest.NewRequest(http.MethodPost, "/promotions/redeem", strings.NewReader(`{code`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
