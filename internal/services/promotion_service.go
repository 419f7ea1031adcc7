package services

import (
	"context"
	"errors"
	"time"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/platform/textutil"
	"github.com/auric-jewels/api/internal/repositories"
)

// PromotionServiceDeps bundles dependencies required to construct a PromotionService.
type PromotionServiceDeps struct {
	Promotions repositories.PromotionRepository
	Clock      func() time.Time
	Logger     Logger
}

type promotionService struct {
	repo   repositories.PromotionRepository
	now    func() time.Time
	logger Logger
}

// NewPromotionService wires a PromotionService backed by the provided repository.
func NewPromotionService(deps PromotionServiceDeps) (PromotionService, error) {
	if deps.Promotions == nil {
		return nil, errors.New("promotion service: promotion repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &promotionService{
		repo:   deps.Promotions,
		now:    func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// Redeem consumes one use of the code. The window check and the usage-cap
// increment happen in a single transaction, so the counter can never pass
// the cap even under concurrent redemptions.
func (s *promotionService) Redeem(ctx context.Context, code string) (domain.PromotionRedemption, error) {
	if s == nil || s.repo == nil {
		return domain.PromotionRedemption{}, ErrUnavailable
	}

	normalized := textutil.NormalizeCode(code)
	if normalized == "" {
		return domain.PromotionRedemption{}, ErrPromotionInvalid
	}

	promotion, err := s.repo.Redeem(ctx, normalized, s.now())
	if err != nil {
		var promoErr *repositories.PromotionError
		if errors.As(err, &promoErr) {
			switch promoErr.Code {
			case repositories.PromotionErrorNotFound, repositories.PromotionErrorWindowClosed:
				return domain.PromotionRedemption{}, ErrPromotionInvalid
			case repositories.PromotionErrorExhausted:
				return domain.PromotionRedemption{}, ErrPromotionExhausted
			}
		}
		s.logger(ctx, "promotions.redeem_failed", map[string]any{
			"code":  normalized,
			"error": err.Error(),
		})
		return domain.PromotionRedemption{}, ErrUnavailable
	}

	s.logger(ctx, "promotions.redeemed", map[string]any{
		"code":      promotion.Code,
		"remaining": promotion.MaxUses - promotion.CurrentUses,
	})
	return domain.PromotionRedemption{
		Code:          promotion.Code,
		PercentOff:    promotion.PercentOff,
		RemainingUses: promotion.MaxUses - promotion.CurrentUses,
	}, nil
}
