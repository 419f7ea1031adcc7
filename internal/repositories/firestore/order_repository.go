package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/auric-jewels/api/internal/domain"
	pfirestore "github.com/auric-jewels/api/internal/platform/firestore"
	"github.com/auric-jewels/api/internal/repositories"
)

const (
	ordersCollection       = "orders"
	orderNumbersCollection = "orderNumbers"
)

// OrderRepository persists orders together with the order-number uniqueness
// ledger and implements the single-shot flag transitions.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	numbers  *pfirestore.BaseRepository[orderNumberDocument]
}

// NewOrderRepository wires the repository against the shared provider.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		numbers:  pfirestore.NewBaseRepository[orderNumberDocument](provider, orderNumbersCollection, nil, nil),
	}, nil
}

// Insert creates the order and its number reservation in one transaction. A
// ledger collision surfaces as OrderErrorNumberTaken so callers can regenerate
// the number and retry.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return repositories.NewOrderError(repositories.OrderErrorUnknown, "order insert: id is required", nil)
	}
	if strings.TrimSpace(order.OrderNumber) == "" {
		return repositories.NewOrderError(repositories.OrderErrorUnknown, "order insert: order number is required", nil)
	}

	doc := newOrderDocument(order)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		numberRef, err := r.numbers.DocumentRef(ctx, order.OrderNumber)
		if err != nil {
			return err
		}
		orderRef, err := r.orders.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}

		ledger := orderNumberDocument{OrderRef: order.ID, ReservedAt: doc.CreatedAt}
		if err := tx.Create(numberRef, ledger); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				return repositories.NewOrderError(repositories.OrderErrorNumberTaken, fmt.Sprintf("order number %s already reserved", order.OrderNumber), err)
			}
			return err
		}
		if err := tx.Create(orderRef, doc); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return wrapOrderError("orders.insert", err)
	}
	return nil
}

// Delete removes the order and releases its number. Deleting an absent order
// is a no-op so compensation paths stay idempotent.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return repositories.NewOrderError(repositories.OrderErrorUnknown, "order delete: id is required", nil)
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if number := strings.TrimSpace(doc.OrderNumber); number != "" {
			numberRef, err := r.numbers.DocumentRef(ctx, number)
			if err != nil {
				return err
			}
			if err := tx.Delete(numberRef); err != nil {
				return err
			}
		}
		return tx.Delete(orderRef)
	})
	if err != nil {
		return wrapOrderError("orders.delete", err)
	}
	return nil
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order find: id is required", nil)
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
		}
		return domain.Order{}, wrapOrderError("orders.find", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindBySessionID resolves the order created for a hosted checkout session.
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order find by session: session id is required", nil)
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("sessionId", "==", sessionID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.findBySession", err)
	}
	if len(docs) == 0 {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("no order for session %s", sessionID), nil)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// List returns a user's orders newest first with cursor pagination.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.orders == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var decodedToken *orderPageToken
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tok, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		decodedToken = tok
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc)
		if decodedToken != nil {
			q = q.StartAfter(decodedToken.CreatedAt, decodedToken.ID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := encodeOrderPageToken(orderPageToken{ID: last.ID, CreatedAt: last.CreatedAt})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{Items: orders, NextPageToken: nextToken}, nil
}

// SetCheckoutSession records the hosted payment session id on the order.
func (r *OrderRepository) SetCheckoutSession(ctx context.Context, orderID string, sessionID string, now time.Time) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	sessionID = strings.TrimSpace(sessionID)
	if orderID == "" || sessionID == "" {
		return repositories.NewOrderError(repositories.OrderErrorUnknown, "order set checkout session: id and session are required", nil)
	}

	ts := now.UTC()
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		doc.SessionID = sessionID
		doc.UpdatedAt = ts
		return tx.Set(orderRef, doc)
	})
	if err != nil {
		return wrapOrderError("orders.setCheckoutSession", err)
	}
	return nil
}

// MarkPaid flips paid and shipmentCreated in one conditional transition and
// stores the courier booking. The transition is gated on shipmentCreated so a
// cash-on-delivery order, which is inserted already paid, still accepts its
// shipment; a prior shipment aborts with OrderErrorFlagAlreadySet.
func (r *OrderRepository) MarkPaid(ctx context.Context, req repositories.MarkPaidRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order mark paid: id is required", nil)
	}

	now := req.Now.UTC()
	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if doc.Flags.ShipmentCreated {
			return repositories.NewOrderError(repositories.OrderErrorFlagAlreadySet, fmt.Sprintf("order %s shipment already created", orderID), nil)
		}

		doc.Flags.Paid = true
		doc.Flags.ShipmentCreated = true
		if intent := strings.TrimSpace(req.PaymentIntentID); intent != "" {
			doc.PaymentIntentID = intent
		}
		doc.Fulfillment = string(domain.FulfillmentStatusProcessing)
		doc.Tracking = &trackingDocument{
			Number:   strings.TrimSpace(req.Tracking.Number),
			Status:   strings.TrimSpace(req.Tracking.Status),
			Courier:  strings.TrimSpace(req.Tracking.Courier),
			BookedAt: req.Tracking.BookedAt.UTC(),
		}
		if doc.PaidAt == nil {
			doc.PaidAt = &now
		}
		doc.UpdatedAt = now
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		updated = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.markPaid", err)
	}
	return updated, nil
}

// MarkEmailSent flips emailSent once; a second transition conflicts.
func (r *OrderRepository) MarkEmailSent(ctx context.Context, orderID string, invoiceURL string, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order mark email sent: id is required", nil)
	}

	ts := now.UTC()
	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if doc.Flags.EmailSent {
			return repositories.NewOrderError(repositories.OrderErrorFlagAlreadySet, fmt.Sprintf("order %s email already sent", orderID), nil)
		}

		doc.Flags.EmailSent = true
		if url := strings.TrimSpace(invoiceURL); url != "" {
			doc.InvoiceURL = url
		}
		doc.UpdatedAt = ts
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		updated = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.markEmailSent", err)
	}
	return updated, nil
}

// UpdateFulfillment moves the informational fulfillment status.
func (r *OrderRepository) UpdateFulfillment(ctx context.Context, orderID string, fulfillment domain.FulfillmentStatus, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order update fulfillment: id is required", nil)
	}

	ts := now.UTC()
	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}

		doc.Fulfillment = string(fulfillment)
		if fulfillment == domain.FulfillmentStatusShipped && doc.ShippedAt == nil {
			doc.ShippedAt = &ts
		}
		doc.UpdatedAt = ts
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		updated = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.updateFulfillment", err)
	}
	return updated, nil
}

// Document structures -------------------------------------------------------

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	UserID          string              `firestore:"userId,omitempty"`
	Contact         contactDocument     `firestore:"contact"`
	Items           []lineItemDocument  `firestore:"items"`
	ShippingAddress addressDocument     `firestore:"shippingAddress"`
	Currency        string              `firestore:"currency"`
	Totals          totalsDocument      `firestore:"totals"`
	Promotion       *promotionSnapshot  `firestore:"promotion,omitempty"`
	PaymentMethod   string              `firestore:"paymentMethod"`
	Fulfillment     string              `firestore:"fulfillment"`
	Flags           flagsDocument       `firestore:"flags"`
	Tracking        *trackingDocument   `firestore:"tracking,omitempty"`
	GiftMessage     string              `firestore:"giftMessage,omitempty"`
	SessionID       string              `firestore:"sessionId,omitempty"`
	PaymentIntentID string              `firestore:"paymentIntentId,omitempty"`
	InvoiceURL      string              `firestore:"invoiceUrl,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	PaidAt          *time.Time          `firestore:"paidAt,omitempty"`
	ShippedAt       *time.Time          `firestore:"shippedAt,omitempty"`
}

type contactDocument struct {
	Name  string `firestore:"name,omitempty"`
	Email string `firestore:"email"`
	Phone string `firestore:"phone,omitempty"`
}

type lineItemDocument struct {
	ProductRef string `firestore:"productRef"`
	SKU        string `firestore:"sku,omitempty"`
	Name       string `firestore:"name"`
	Quantity   int    `firestore:"qty"`
	UnitPrice  int64  `firestore:"unitPrice"`
	Total      int64  `firestore:"total"`
}

type addressDocument struct {
	Line1      string  `firestore:"line1"`
	Line2      *string `firestore:"line2,omitempty"`
	City       string  `firestore:"city"`
	State      *string `firestore:"state,omitempty"`
	PostalCode string  `firestore:"postalCode,omitempty"`
	Country    string  `firestore:"country"`
}

type totalsDocument struct {
	Subtotal int64 `firestore:"subtotal"`
	Discount int64 `firestore:"discount"`
	Shipping int64 `firestore:"shipping"`
	Total    int64 `firestore:"total"`
}

type promotionSnapshot struct {
	Code       string `firestore:"code"`
	PercentOff int    `firestore:"percentOff"`
}

type flagsDocument struct {
	Paid            bool `firestore:"paid"`
	ShipmentCreated bool `firestore:"shipmentCreated"`
	EmailSent       bool `firestore:"emailSent"`
}

type trackingDocument struct {
	Number   string    `firestore:"number"`
	Status   string    `firestore:"status"`
	Courier  string    `firestore:"courier"`
	BookedAt time.Time `firestore:"bookedAt"`
}

type orderNumberDocument struct {
	OrderRef   string    `firestore:"orderRef"`
	ReservedAt time.Time `firestore:"reservedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]lineItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = lineItemDocument{
			ProductRef: strings.TrimSpace(item.ProductRef),
			SKU:        strings.TrimSpace(item.SKU),
			Name:       strings.TrimSpace(item.Name),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      item.Total,
		}
	}
	doc := orderDocument{
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		UserID:      strings.TrimSpace(order.UserID),
		Contact: contactDocument{
			Name:  strings.TrimSpace(order.Contact.Name),
			Email: strings.TrimSpace(order.Contact.Email),
			Phone: strings.TrimSpace(order.Contact.Phone),
		},
		Items: items,
		ShippingAddress: addressDocument{
			Line1:      strings.TrimSpace(order.ShippingAddress.Line1),
			Line2:      order.ShippingAddress.Line2,
			City:       strings.TrimSpace(order.ShippingAddress.City),
			State:      order.ShippingAddress.State,
			PostalCode: strings.TrimSpace(order.ShippingAddress.PostalCode),
			Country:    strings.TrimSpace(order.ShippingAddress.Country),
		},
		Currency: strings.TrimSpace(order.Currency),
		Totals: totalsDocument{
			Subtotal: order.Totals.Subtotal,
			Discount: order.Totals.Discount,
			Shipping: order.Totals.Shipping,
			Total:    order.Totals.Total,
		},
		PaymentMethod:   string(order.PaymentMethod),
		Fulfillment:     string(order.Fulfillment),
		Flags:           flagsDocument(order.Flags),
		GiftMessage:     strings.TrimSpace(order.GiftMessage),
		SessionID:       strings.TrimSpace(order.SessionID),
		PaymentIntentID: strings.TrimSpace(order.PaymentIntentID),
		InvoiceURL:      strings.TrimSpace(order.InvoiceURL),
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
		PaidAt:          order.PaidAt,
		ShippedAt:       order.ShippedAt,
	}
	if order.Promotion != nil {
		doc.Promotion = &promotionSnapshot{
			Code:       strings.TrimSpace(order.Promotion.Code),
			PercentOff: order.Promotion.PercentOff,
		}
	}
	if order.Tracking != nil {
		doc.Tracking = &trackingDocument{
			Number:   strings.TrimSpace(order.Tracking.Number),
			Status:   strings.TrimSpace(order.Tracking.Status),
			Courier:  strings.TrimSpace(order.Tracking.Courier),
			BookedAt: order.Tracking.BookedAt.UTC(),
		}
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderLineItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderLineItem{
			ProductRef: item.ProductRef,
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      item.Total,
		}
	}
	order := domain.Order{
		ID:          id,
		OrderNumber: d.OrderNumber,
		UserID:      d.UserID,
		Contact: domain.OrderContact{
			Name:  d.Contact.Name,
			Email: d.Contact.Email,
			Phone: d.Contact.Phone,
		},
		Items: items,
		ShippingAddress: domain.Address{
			Line1:      d.ShippingAddress.Line1,
			Line2:      d.ShippingAddress.Line2,
			City:       d.ShippingAddress.City,
			State:      d.ShippingAddress.State,
			PostalCode: d.ShippingAddress.PostalCode,
			Country:    d.ShippingAddress.Country,
		},
		Currency: d.Currency,
		Totals: domain.OrderTotals{
			Subtotal: d.Totals.Subtotal,
			Discount: d.Totals.Discount,
			Shipping: d.Totals.Shipping,
			Total:    d.Totals.Total,
		},
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		Fulfillment:     domain.FulfillmentStatus(d.Fulfillment),
		Flags:           domain.OrderFlags(d.Flags),
		GiftMessage:     d.GiftMessage,
		SessionID:       d.SessionID,
		PaymentIntentID: d.PaymentIntentID,
		InvoiceURL:      d.InvoiceURL,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		PaidAt:          d.PaidAt,
		ShippedAt:       d.ShippedAt,
	}
	if d.Promotion != nil {
		order.Promotion = &domain.OrderPromotion{Code: d.Promotion.Code, PercentOff: d.Promotion.PercentOff}
	}
	if d.Tracking != nil {
		order.Tracking = &domain.OrderTracking{
			Number:   d.Tracking.Number,
			Status:   d.Tracking.Status,
			Courier:  d.Tracking.Courier,
			BookedAt: d.Tracking.BookedAt,
		}
	}
	return order
}

func decodeOrder(snap *firestore.DocumentSnapshot) (orderDocument, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return orderDocument{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	return doc, nil
}

type orderPageToken struct {
	ID        string
	CreatedAt time.Time
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode order page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode order page token: %w", err)
	}
	var token orderPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode order page token json: %w", err)
	}
	return &token, nil
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		if orderErr.Op == "" {
			orderErr.Op = op
		}
		return orderErr
	}
	return pfirestore.WrapError(op, err)
}
