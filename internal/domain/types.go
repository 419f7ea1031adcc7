package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage wraps a page of results with the token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Product captures the catalog projection used by checkout: identity, payable
// price and stock on hand. A product whose payable price is not positive is
// treated as unsellable and dropped from carts.
type Product struct {
	ID        string
	SKU       string
	Name      string
	Price     int64
	SalePrice int64
	Currency  string
	Stock     int
	Active    bool
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PayablePrice returns the amount a customer is charged per unit: the sale
// price when one is set, the list price otherwise.
func (p Product) PayablePrice() int64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.Price
}

// Sellable reports whether the product may appear on an order.
func (p Product) Sellable() bool {
	return p.Active && p.PayablePrice() > 0
}

// CartLine is a single requested purchase before product resolution.
type CartLine struct {
	ProductID string
	Quantity  int
}

// PaymentMethod distinguishes the two supported settlement paths.
type PaymentMethod string

const (
	// PaymentMethodOnline settles through the hosted checkout provider.
	PaymentMethodOnline PaymentMethod = "online"
	// PaymentMethodCOD settles in cash on delivery.
	PaymentMethodCOD PaymentMethod = "cod"
)

// FulfillmentStatus enumerates the informational fulfillment states of an order.
type FulfillmentStatus string

const (
	// FulfillmentStatusPending indicates the order awaits payment confirmation.
	FulfillmentStatusPending FulfillmentStatus = "pending"
	// FulfillmentStatusProcessing indicates payment landed and the shipment is booked.
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	// FulfillmentStatusShipped indicates the courier picked the parcel up.
	FulfillmentStatusShipped FulfillmentStatus = "shipped"
	// FulfillmentStatusDelivered indicates the courier confirmed delivery.
	FulfillmentStatusDelivered FulfillmentStatus = "delivered"
	// FulfillmentStatusCancelled indicates the order was cancelled.
	FulfillmentStatusCancelled FulfillmentStatus = "cancelled"
)

// OrderFlags are the idempotency gates of the completion workflow. Each flag
// transitions false -> true exactly once; transitions are conditional writes,
// never blind sets.
type OrderFlags struct {
	Paid            bool
	ShipmentCreated bool
	EmailSent       bool
}

// OrderTotals holds rolled-up monetary fields in the smallest currency unit.
type OrderTotals struct {
	Subtotal int64
	Discount int64
	Shipping int64
	Total    int64
}

// OrderLineItem mirrors the resolved product at the time of checkout.
type OrderLineItem struct {
	ProductRef string
	SKU        string
	Name       string
	Quantity   int
	UnitPrice  int64
	Total      int64
}

// OrderContact stores the customer contact snapshot for notifications.
type OrderContact struct {
	Name  string
	Email string
	Phone string
}

// OrderPromotion is the applied promo snapshot frozen onto the order.
type OrderPromotion struct {
	Code       string
	PercentOff int
}

// OrderTracking stores the courier booking result once a shipment exists.
type OrderTracking struct {
	Number   string
	Status   string
	Courier  string
	BookedAt time.Time
}

// Order captures order headers returned to handlers/services.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Contact         OrderContact
	Items           []OrderLineItem
	ShippingAddress Address
	Currency        string
	Totals          OrderTotals
	Promotion       *OrderPromotion
	PaymentMethod   PaymentMethod
	Fulfillment     FulfillmentStatus
	Flags           OrderFlags
	Tracking        *OrderTracking
	GiftMessage     string
	SessionID       string
	PaymentIntentID string
	InvoiceURL      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
	ShippedAt       *time.Time
}

// CheckoutSession represents hosted payment session metadata returned by the PSP.
type CheckoutSession struct {
	SessionID   string
	PSP         string
	RedirectURL string
	ExpiresAt   time.Time
}

// Promotion describes a redeemable percent-off code with a validity window
// and a hard usage cap. CurrentUses never exceeds MaxUses.
type Promotion struct {
	ID          string
	Code        string
	PercentOff  int
	ValidFrom   time.Time
	ValidUntil  time.Time
	MaxUses     int
	CurrentUses int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WithinWindow reports whether the code is redeemable at the given instant.
func (p Promotion) WithinWindow(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidUntil)
}

// Exhausted reports whether the usage cap has been reached.
func (p Promotion) Exhausted() bool {
	return p.CurrentUses >= p.MaxUses
}

// PromotionRedemption is returned when a code is successfully redeemed.
type PromotionRedemption struct {
	Code          string
	PercentOff    int
	RemainingUses int
}

// Address represents the postal address structure shared by user and order layers.
type Address struct {
	Line1      string
	Line2      *string
	City       string
	State      *string
	PostalCode string
	Country    string
}

// UserProfile captures the projection of a Firebase Auth user kept alongside orders.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WebhookEvent is the sentinel recorded for each processed provider event so
// redeliveries short-circuit.
type WebhookEvent struct {
	ID          string
	Provider    string
	Type        string
	OrderRef    string
	ProcessedAt time.Time
}

// OrderEvent is published to the order events topic after workflow milestones.
type OrderEvent struct {
	Type        string            `json:"type"`
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	OccurredAt  time.Time         `json:"occurredAt"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

const (
	// OrderEventPaid is emitted when the paid flag transitions.
	OrderEventPaid = "order.paid"
	// OrderEventShipped is emitted when the shipment is booked.
	OrderEventShipped = "order.shipped"
	// OrderEventPlaced is emitted when a pending order is persisted.
	OrderEventPlaced = "order.placed"
)
