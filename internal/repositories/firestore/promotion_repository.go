package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/auric-jewels/api/internal/domain"
	pfirestore "github.com/auric-jewels/api/internal/platform/firestore"
	"github.com/auric-jewels/api/internal/repositories"
)

const promotionsCollection = "promotions"

// PromotionRepository maintains promo definitions and the atomic usage counter.
type PromotionRepository struct {
	provider   *pfirestore.Provider
	promotions *pfirestore.BaseRepository[promotionDocument]
}

// NewPromotionRepository wires the repository against the shared provider.
func NewPromotionRepository(provider *pfirestore.Provider) (*PromotionRepository, error) {
	if provider == nil {
		return nil, errors.New("promotion repository requires firestore provider")
	}
	return &PromotionRepository{
		provider:   provider,
		promotions: pfirestore.NewBaseRepository[promotionDocument](provider, promotionsCollection, nil, nil),
	}, nil
}

// FindByCode looks a promotion up by its normalized code.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (domain.Promotion, error) {
	if r == nil || r.promotions == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	code = normalizePromoCode(code)
	if code == "" {
		return domain.Promotion{}, repositories.NewPromotionError(repositories.PromotionErrorUnknown, "promotion find: code is required", nil)
	}

	docs, err := r.promotions.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Promotion{}, wrapPromotionError("promotions.findByCode", err)
	}
	if len(docs) == 0 {
		return domain.Promotion{}, repositories.NewPromotionError(repositories.PromotionErrorNotFound, fmt.Sprintf("promotion %s not found", code), nil)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// Redeem increments currentUses only when the validity window contains now and
// the cap is not reached. Window and cap are evaluated on the transactional
// read, so concurrent redemptions can never push past maxUses.
func (r *PromotionRepository) Redeem(ctx context.Context, code string, now time.Time) (domain.Promotion, error) {
	if r == nil || r.provider == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	code = normalizePromoCode(code)
	if code == "" {
		return domain.Promotion{}, repositories.NewPromotionError(repositories.PromotionErrorUnknown, "promotion redeem: code is required", nil)
	}

	ts := now.UTC()
	var redeemed domain.Promotion
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		query := client.Collection(promotionsCollection).Where("code", "==", code).Limit(1)
		snaps, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return repositories.NewPromotionError(repositories.PromotionErrorNotFound, fmt.Sprintf("promotion %s not found", code), nil)
		}
		snap := snaps[0]

		var doc promotionDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode promotion %s: %w", snap.Ref.ID, err)
		}
		promo := doc.toDomain(snap.Ref.ID)
		if !promo.WithinWindow(ts) {
			return repositories.NewPromotionError(repositories.PromotionErrorWindowClosed, fmt.Sprintf("promotion %s outside validity window", code), nil)
		}
		if promo.Exhausted() {
			return repositories.NewPromotionError(repositories.PromotionErrorExhausted, fmt.Sprintf("promotion %s usage limit reached", code), nil)
		}

		doc.CurrentUses++
		doc.UpdatedAt = ts
		if err := tx.Set(snap.Ref, doc); err != nil {
			return err
		}
		redeemed = doc.toDomain(snap.Ref.ID)
		return nil
	})
	if err != nil {
		return domain.Promotion{}, wrapPromotionError("promotions.redeem", err)
	}
	return redeemed, nil
}

// Document structures -------------------------------------------------------

type promotionDocument struct {
	Code        string    `firestore:"code"`
	PercentOff  int       `firestore:"percentOff"`
	ValidFrom   time.Time `firestore:"validFrom"`
	ValidUntil  time.Time `firestore:"validUntil"`
	MaxUses     int       `firestore:"maxUses"`
	CurrentUses int       `firestore:"currentUses"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func (d promotionDocument) toDomain(id string) domain.Promotion {
	return domain.Promotion{
		ID:          id,
		Code:        strings.TrimSpace(d.Code),
		PercentOff:  d.PercentOff,
		ValidFrom:   d.ValidFrom,
		ValidUntil:  d.ValidUntil,
		MaxUses:     d.MaxUses,
		CurrentUses: d.CurrentUses,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func wrapPromotionError(op string, err error) error {
	if err == nil {
		return nil
	}
	var promoErr *repositories.PromotionError
	if errors.As(err, &promoErr) {
		if promoErr.Op == "" {
			promoErr.Op = op
		}
		return promoErr
	}
	return pfirestore.WrapError(op, err)
}
