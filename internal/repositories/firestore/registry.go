package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/auric-jewels/api/internal/platform/firestore"
	"github.com/auric-jewels/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the shared provider.
type Registry struct {
	provider      *pfirestore.Provider
	orders        *OrderRepository
	products      *ProductRepository
	promotions    *PromotionRepository
	users         *UserRepository
	webhookEvents *WebhookEventRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository against the provider. The health
// repository is optional and may be attached later via WithHealth.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	promotions, err := NewPromotionRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	webhookEvents, err := NewWebhookEventRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		orders:        orders,
		products:      products,
		promotions:    promotions,
		users:         users,
		webhookEvents: webhookEvents,
	}, nil
}

// WithHealth attaches the dependency health repository.
func (r *Registry) WithHealth(health repositories.HealthRepository) *Registry {
	if r != nil {
		r.health = health
	}
	return r
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository             { return r.orders }
func (r *Registry) Products() repositories.ProductRepository         { return r.products }
func (r *Registry) Promotions() repositories.PromotionRepository     { return r.promotions }
func (r *Registry) Users() repositories.UserRepository               { return r.users }
func (r *Registry) WebhookEvents() repositories.WebhookEventRepository {
	return r.webhookEvents
}
func (r *Registry) Health() repositories.HealthRepository { return r.health }
