// Package services implements the checkout and fulfillment workflows on top
// of the repositories and the external collaborators (PSP, courier, mail,
// invoice storage, event publishing).
package services

import (
	"context"
	"time"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/repositories"
)

// Logger receives structured service events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// CheckoutService builds hosted payment sessions and places cash-on-delivery
// orders.
type CheckoutService interface {
	CreateSession(ctx context.Context, cmd CreateSessionCommand) (domain.CheckoutSession, error)
	PlaceCashOnDelivery(ctx context.Context, cmd CashOnDeliveryCommand) (domain.Order, error)
}

// PaymentService processes verified PSP webhook deliveries.
type PaymentService interface {
	HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (WebhookOutcome, error)
}

// FulfillmentService runs the post-payment completion workflow: shipment
// booking, flag transitions, receipt and ops emails, event publication.
type FulfillmentService interface {
	CompleteOrder(ctx context.Context, order domain.Order, paymentIntentID string) (domain.Order, error)
}

// PromotionService redeems promo codes atomically.
type PromotionService interface {
	Redeem(ctx context.Context, code string) (domain.PromotionRedemption, error)
}

// OrderService serves order reads for customers.
type OrderService interface {
	GetOrder(ctx context.Context, query GetOrderQuery) (domain.Order, error)
	ListOrders(ctx context.Context, query ListOrdersQuery) (domain.CursorPage[domain.Order], error)
}

// SystemService reports dependency health.
type SystemService interface {
	Health(ctx context.Context) (repositories.HealthReport, error)
}

// OrderEventPublisher emits order lifecycle events. Publishing is best
// effort: a failed publish never fails the workflow that produced it.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) (string, error)
}

// CheckoutContact carries the customer contact details for an order.
type CheckoutContact struct {
	Name  string
	Email string
	Phone string
}

// CreateSessionCommand is the input for online checkout.
type CreateSessionCommand struct {
	UserID          string
	Contact         CheckoutContact
	Items           []domain.CartLine
	ShippingAddress domain.Address
	PromoCode       string
	GiftMessage     string
}

// CashOnDeliveryCommand is the input for COD checkout. UserID is mandatory.
type CashOnDeliveryCommand struct {
	UserID          string
	Contact         CheckoutContact
	Items           []domain.CartLine
	ShippingAddress domain.Address
	PromoCode       string
	GiftMessage     string
}

// WebhookOutcome reports how a webhook delivery was handled.
type WebhookOutcome struct {
	Status  WebhookStatus
	OrderID string
	EventID string
}

// WebhookStatus enumerates the terminal states of webhook processing.
type WebhookStatus string

const (
	// WebhookIgnored means the event type carries no work.
	WebhookIgnored WebhookStatus = "ignored"
	// WebhookDuplicate means the event id was processed before.
	WebhookDuplicate WebhookStatus = "duplicate"
	// WebhookProcessed means the completion workflow ran to the end.
	WebhookProcessed WebhookStatus = "processed"
)

// GetOrderQuery fetches a single order, optionally scoped to its owner.
type GetOrderQuery struct {
	OrderID string
	UserID  string
}

// ListOrdersQuery pages through a user's orders newest first.
type ListOrdersQuery struct {
	UserID    string
	From      *time.Time
	To        *time.Time
	PageSize  int
	PageToken string
}
