package repositories

import (
	"context"
	"time"

	domain "github.com/auric-jewels/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	Promotions() PromotionRepository
	Users() UserRepository
	WebhookEvents() WebhookEventRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists orders, the order-number uniqueness ledger and the
// single-shot flag transitions of the completion workflow.
type OrderRepository interface {
	// Insert persists a new order and reserves its order number in the
	// uniqueness ledger within one transaction. A number collision surfaces
	// as a conflict so the caller can regenerate and retry.
	Insert(ctx context.Context, order domain.Order) error
	// Delete removes the order and releases its order number. Used by the
	// checkout compensation path; deleting an absent order is not an error.
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)

	// SetCheckoutSession records the hosted payment session reference once
	// the PSP session exists for the order.
	SetCheckoutSession(ctx context.Context, orderID string, sessionID string, now time.Time) error
	// MarkPaid flips paid and shipmentCreated in one conditional write,
	// storing tracking info and the payment reference. It fails with a
	// conflict when the shipment flag is already set; an order inserted
	// already paid (cash on delivery) still accepts the transition.
	MarkPaid(ctx context.Context, req MarkPaidRequest) (domain.Order, error)
	// MarkEmailSent flips emailSent conditionally. A conflict means a
	// concurrent invocation already completed the email step.
	MarkEmailSent(ctx context.Context, orderID string, invoiceURL string, now time.Time) (domain.Order, error)
	// UpdateFulfillment moves the informational fulfillment status.
	UpdateFulfillment(ctx context.Context, orderID string, status domain.FulfillmentStatus, now time.Time) (domain.Order, error)
}

// MarkPaidRequest carries the atomic paid+shipment transition payload.
type MarkPaidRequest struct {
	OrderID         string
	PaymentIntentID string
	Tracking        domain.OrderTracking
	Now             time.Time
}

// OrderListFilter narrows order listings per user with cursor pagination.
type OrderListFilter struct {
	UserID     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// StockLine names one product decrement within an all-or-nothing adjustment.
type StockLine struct {
	ProductID string
	Quantity  int
}

// ProductRepository serves catalog lookups and the conditional stock ledger.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	// DecrementStock subtracts every line in a single transaction. Each line
	// is checked against current stock before any write; one failing line
	// aborts the whole decrement and stock is left untouched.
	DecrementStock(ctx context.Context, lines []StockLine, now time.Time) error
	// RestoreStock adds the quantities back. Used by checkout compensation.
	RestoreStock(ctx context.Context, lines []StockLine, now time.Time) error
}

// PromotionRepository maintains promo definitions and the atomic usage counter.
type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Promotion, error)
	// Redeem increments currentUses only when the window contains now and the
	// cap is not reached, all inside one transaction.
	Redeem(ctx context.Context, code string, now time.Time) (domain.Promotion, error)
}

// UserRepository stores the user profile projection kept alongside orders.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
}

// WebhookEventRepository records processed provider events so redeliveries
// short-circuit before any side effect runs.
type WebhookEventRepository interface {
	// Record creates the sentinel for the event id. A conflict means the
	// event was already processed.
	Record(ctx context.Context, event domain.WebhookEvent) error
	Seen(ctx context.Context, provider, eventID string) (bool, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (HealthReport, error)
}

// HealthReport summarises dependency probe outcomes.
type HealthReport struct {
	Status     string
	Components map[string]string
	CheckedAt  time.Time
}
