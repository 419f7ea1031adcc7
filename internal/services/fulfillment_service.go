package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auric-jewels/api/internal/courier"
	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/invoices"
	"github.com/auric-jewels/api/internal/mail"
	"github.com/auric-jewels/api/internal/platform/textutil"
	"github.com/auric-jewels/api/internal/repositories"
)

// shipmentBooker abstracts the courier client.
type shipmentBooker interface {
	Name() string
	CreateShipment(ctx context.Context, req courier.ShipmentRequest) (courier.ShipmentResult, error)
}

// invoiceStore abstracts the invoice upload and signed link generation.
type invoiceStore interface {
	Put(ctx context.Context, orderID string, html string) (invoices.StoredInvoice, error)
}

// mailTemplates abstracts the template builder.
type mailTemplates interface {
	Receipt(order domain.Order, invoiceURL string) (mail.Message, error)
	OpsNotification(order domain.Order, recipients []string) (mail.Message, error)
	Invoice(order domain.Order) (string, error)
}

// FulfillmentServiceDeps wires the completion workflow collaborators.
type FulfillmentServiceDeps struct {
	Orders        repositories.OrderRepository
	Courier       shipmentBooker
	Mailer        mail.Sender
	Templates     mailTemplates
	Invoices      invoiceStore
	Events        OrderEventPublisher
	OpsRecipients []string
	Clock         func() time.Time
	Logger        Logger
}

type fulfillmentService struct {
	orders        repositories.OrderRepository
	courier       shipmentBooker
	mailer        mail.Sender
	templates     mailTemplates
	invoices      invoiceStore
	events        OrderEventPublisher
	opsRecipients []string
	now           func() time.Time
	logger        Logger
}

// NewFulfillmentService constructs the post-payment completion workflow.
func NewFulfillmentService(deps FulfillmentServiceDeps) (FulfillmentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("fulfillment service: order repository is required")
	}
	if deps.Courier == nil {
		return nil, errors.New("fulfillment service: courier client is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("fulfillment service: mail sender is required")
	}
	if deps.Templates == nil {
		return nil, errors.New("fulfillment service: mail templates are required")
	}
	if deps.Invoices == nil {
		return nil, errors.New("fulfillment service: invoice store is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &fulfillmentService{
		orders:        deps.Orders,
		courier:       deps.Courier,
		mailer:        deps.Mailer,
		templates:     deps.Templates,
		invoices:      deps.Invoices,
		events:        deps.Events,
		opsRecipients: deps.OpsRecipients,
		now:           func() time.Time { return clock().UTC() },
		logger:        logger,
	}, nil
}

// CompleteOrder drives the order through shipment booking, the paid and
// shipment flag transition, receipt and ops emails, and the email flag.
// Every step tolerates re-invocation: the flags record progress, and a
// failed email leaves emailSent unset so a later delivery retries it.
func (s *fulfillmentService) CompleteOrder(ctx context.Context, order domain.Order, paymentIntentID string) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrUnavailable
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return domain.Order{}, ErrInvalidInput
	}

	if order.Flags.EmailSent {
		// Fully completed on a previous delivery.
		return order, nil
	}

	if !order.Flags.ShipmentCreated {
		updated, err := s.shipmentStep(ctx, order, paymentIntentID)
		if err != nil {
			return domain.Order{}, err
		}
		order = updated
	}

	if !order.Flags.EmailSent {
		updated, err := s.emailStep(ctx, order)
		if err != nil {
			return domain.Order{}, err
		}
		order = updated
	}

	return order, nil
}

// shipmentStep books the courier shipment and flips paid+shipmentCreated in
// one conditional write. A flag conflict means a concurrent invocation won
// the transition; the fresher order state is loaded and used instead.
func (s *fulfillmentService) shipmentStep(ctx context.Context, order domain.Order, paymentIntentID string) (domain.Order, error) {
	booking, err := s.courier.CreateShipment(ctx, courier.ShipmentRequest{
		OrderRef:     order.OrderNumber,
		CustomerName: textutil.CollapseSpaces(order.Contact.Name),
		Phone:        order.Contact.Phone,
		Address:      shipmentAddress(order.ShippingAddress),
		City:         order.ShippingAddress.City,
		Pieces:       orderPieces(order),
		CODAmount:    codAmount(order),
		OrderDetail:  orderDetail(order),
	})
	if err != nil {
		s.logger(ctx, "fulfillment.shipment_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.Order{}, ErrShipmentFailed
	}

	updated, err := s.orders.MarkPaid(ctx, repositories.MarkPaidRequest{
		OrderID:         order.ID,
		PaymentIntentID: paymentIntentID,
		Tracking: domain.OrderTracking{
			Number:   booking.TrackingNumber,
			Status:   booking.Status,
			Courier:  s.courier.Name(),
			BookedAt: booking.BookedAt,
		},
		Now: s.now(),
	})
	if err != nil {
		var orderErr *repositories.OrderError
		if errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorFlagAlreadySet {
			s.logger(ctx, "fulfillment.shipment_race", map[string]any{"orderId": order.ID})
			return s.reload(ctx, order.ID)
		}
		if errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorNotFound {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, ErrUnavailable
	}

	s.publish(ctx, domain.OrderEventPaid, updated, map[string]string{"paymentIntentId": paymentIntentID})
	s.publish(ctx, domain.OrderEventShipped, updated, map[string]string{"trackingNumber": booking.TrackingNumber})
	return updated, nil
}

// emailStep renders and stores the invoice, sends the receipt and the ops
// notification, and only then flips emailSent. Both sends precede the flag,
// so any failure keeps the step retryable.
func (s *fulfillmentService) emailStep(ctx context.Context, order domain.Order) (domain.Order, error) {
	html, err := s.templates.Invoice(order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("render invoice: %w", err)
	}
	stored, err := s.invoices.Put(ctx, order.ID, html)
	if err != nil {
		s.logger(ctx, "fulfillment.invoice_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.Order{}, ErrEmailFailed
	}

	receipt, err := s.templates.Receipt(order, stored.URL)
	if err != nil {
		return domain.Order{}, fmt.Errorf("render receipt: %w", err)
	}
	if err := s.mailer.Send(ctx, receipt); err != nil {
		s.logger(ctx, "fulfillment.receipt_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.Order{}, ErrEmailFailed
	}

	if len(s.opsRecipients) > 0 {
		ops, err := s.templates.OpsNotification(order, s.opsRecipients)
		if err != nil {
			return domain.Order{}, fmt.Errorf("render ops notification: %w", err)
		}
		if err := s.mailer.Send(ctx, ops); err != nil {
			s.logger(ctx, "fulfillment.ops_mail_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
			return domain.Order{}, ErrEmailFailed
		}
	}

	updated, err := s.orders.MarkEmailSent(ctx, order.ID, stored.URL, s.now())
	if err != nil {
		var orderErr *repositories.OrderError
		if errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorFlagAlreadySet {
			return s.reload(ctx, order.ID)
		}
		return domain.Order{}, ErrUnavailable
	}
	return updated, nil
}

func (s *fulfillmentService) reload(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, ErrUnavailable
	}
	return order, nil
}

func (s *fulfillmentService) publish(ctx context.Context, eventType string, order domain.Order, attrs map[string]string) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, domain.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OccurredAt:  s.now(),
		Attributes:  attrs,
	}); err != nil {
		s.logger(ctx, "fulfillment.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"event":   eventType,
			"error":   err.Error(),
		})
	}
}

func shipmentAddress(addr domain.Address) string {
	parts := []string{addr.Line1}
	if addr.Line2 != nil && strings.TrimSpace(*addr.Line2) != "" {
		parts = append(parts, *addr.Line2)
	}
	parts = append(parts, addr.City)
	if addr.State != nil && strings.TrimSpace(*addr.State) != "" {
		parts = append(parts, *addr.State)
	}
	if strings.TrimSpace(addr.PostalCode) != "" {
		parts = append(parts, addr.PostalCode)
	}
	parts = append(parts, addr.Country)
	return textutil.CollapseSpaces(strings.Join(parts, ", "))
}

func orderPieces(order domain.Order) int {
	pieces := 0
	for _, item := range order.Items {
		pieces += item.Quantity
	}
	return pieces
}

// codAmount is the amount the courier collects on delivery. Online orders
// are prepaid so the courier collects nothing.
func codAmount(order domain.Order) int64 {
	if order.PaymentMethod == domain.PaymentMethodCOD {
		return order.Totals.Total
	}
	return 0
}

func orderDetail(order domain.Order) string {
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(names, ", ")
}
