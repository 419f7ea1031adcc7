package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/auric-jewels/api/internal/courier"
	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/invoices"
	"github.com/auric-jewels/api/internal/mail"
	"github.com/auric-jewels/api/internal/repositories"
)

type stubTemplates struct {
	invoiceErr error
	receiptErr error
	opsErr     error
}

func (s *stubTemplates) Invoice(order domain.Order) (string, error) {
	if s.invoiceErr != nil {
		return "", s.invoiceErr
	}
	return "<html>" + order.OrderNumber + "</html>", nil
}

func (s *stubTemplates) Receipt(order domain.Order, invoiceURL string) (mail.Message, error) {
	if s.receiptErr != nil {
		return mail.Message{}, s.receiptErr
	}
	return mail.Message{To: []string{order.Contact.Email}, Subject: "Receipt " + order.OrderNumber, HTML: invoiceURL}, nil
}

func (s *stubTemplates) OpsNotification(order domain.Order, recipients []string) (mail.Message, error) {
	if s.opsErr != nil {
		return mail.Message{}, s.opsErr
	}
	return mail.Message{To: recipients, Subject: "New order " + order.OrderNumber}, nil
}

type fulfillmentFixture struct {
	orders  *stubOrderRepository
	courier *stubCourier
	mailer  *stubMailer
	store   *stubInvoiceStore
	events  *stubPublisher
	svc     FulfillmentService
}

func newFulfillmentFixture(t *testing.T) *fulfillmentFixture {
	t.Helper()

	f := &fulfillmentFixture{
		orders: &stubOrderRepository{},
		courier: &stubCourier{result: courier.ShipmentResult{
			TrackingNumber: "SS-7781",
			Status:         "booked",
			BookedAt:       time.Date(2025, 3, 1, 12, 45, 0, 0, time.UTC),
		}},
		mailer: &stubMailer{},
		store:  &stubInvoiceStore{stored: invoices.StoredInvoice{Object: "invoices/order-1.html", URL: "https://signed.example/invoice"}},
		events: &stubPublisher{},
	}

	// Both closures mutate the same order so the email transition returns the
	// state the paid transition persisted, as the Firestore repository does.
	stored := paidFixtureOrder()
	f.orders.markPaidFn = func(_ context.Context, req repositories.MarkPaidRequest) (domain.Order, error) {
		tracking := req.Tracking
		stored.PaymentIntentID = req.PaymentIntentID
		stored.Tracking = &tracking
		stored.Flags = domain.OrderFlags{Paid: true, ShipmentCreated: true}
		return stored, nil
	}
	f.orders.markEmailFn = func(_ context.Context, _ string, invoiceURL string, _ time.Time) (domain.Order, error) {
		stored.InvoiceURL = invoiceURL
		stored.Flags.EmailSent = true
		return stored, nil
	}

	svc, err := NewFulfillmentService(FulfillmentServiceDeps{
		Orders:        f.orders,
		Courier:       f.courier,
		Mailer:        f.mailer,
		Templates:     &stubTemplates{},
		Invoices:      f.store,
		Events:        f.events,
		OpsRecipients: []string{"ops@auricjewels.pk"},
		Clock:         func() time.Time { return time.Date(2025, 3, 1, 12, 50, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewFulfillmentService: %v", err)
	}
	f.svc = svc
	return f
}

func paidFixtureOrder() domain.Order {
	return domain.Order{
		ID:          "order-1",
		OrderNumber: "AJ-10000001",
		Contact:     domain.OrderContact{Name: "Amna  Khan", Email: "amna@example.com", Phone: "03001234567"},
		Items: []domain.OrderLineItem{
			{ProductRef: "ring-1", Name: "Zircon Ring", Quantity: 2, UnitPrice: 150000, Total: 300000},
		},
		ShippingAddress: domain.Address{Line1: "House 12, Street 4", City: "Lahore", PostalCode: "54000", Country: "PK"},
		Currency:        "PKR",
		Totals:          domain.OrderTotals{Subtotal: 300000, Shipping: 25000, Total: 325000},
		PaymentMethod:   domain.PaymentMethodOnline,
	}
}

func TestCompleteOrderRunsFullWorkflow(t *testing.T) {
	f := newFulfillmentFixture(t)

	completed, err := f.svc.CompleteOrder(context.Background(), paidFixtureOrder(), "pi_123")
	if err != nil {
		t.Fatalf("CompleteOrder returned error: %v", err)
	}

	if !completed.Flags.Paid || !completed.Flags.ShipmentCreated || !completed.Flags.EmailSent {
		t.Fatalf("expected all flags set, got %+v", completed.Flags)
	}
	if completed.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected payment intent %q", completed.PaymentIntentID)
	}
	if completed.Tracking == nil || completed.Tracking.Number != "SS-7781" {
		t.Fatalf("expected tracking from the paid transition on the returned order, got %+v", completed.Tracking)
	}
	if completed.InvoiceURL != "https://signed.example/invoice" {
		t.Fatalf("unexpected invoice url %q", completed.InvoiceURL)
	}

	if len(f.courier.requests) != 1 {
		t.Fatalf("expected one shipment booking, got %d", len(f.courier.requests))
	}
	req := f.courier.requests[0]
	if req.OrderRef != "AJ-10000001" {
		t.Fatalf("unexpected shipment ref %q", req.OrderRef)
	}
	if req.CustomerName != "Amna Khan" {
		t.Fatalf("expected collapsed customer name, got %q", req.CustomerName)
	}
	if req.Pieces != 2 {
		t.Fatalf("unexpected pieces %d", req.Pieces)
	}
	if req.CODAmount != 0 {
		t.Fatalf("online orders are prepaid, got COD amount %d", req.CODAmount)
	}
	if !strings.Contains(req.Address, "Lahore") || !strings.Contains(req.Address, "PK") {
		t.Fatalf("unexpected shipment address %q", req.Address)
	}
	if req.OrderDetail != "Zircon Ring x2" {
		t.Fatalf("unexpected order detail %q", req.OrderDetail)
	}

	if len(f.store.puts) != 1 || f.store.puts[0] != "order-1" {
		t.Fatalf("expected invoice stored, got %v", f.store.puts)
	}
	// Receipt plus ops notification.
	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected two emails, got %d", len(f.mailer.sent))
	}
	if f.mailer.sent[0].To[0] != "amna@example.com" {
		t.Fatalf("unexpected receipt recipient %v", f.mailer.sent[0].To)
	}
	if f.mailer.sent[1].To[0] != "ops@auricjewels.pk" {
		t.Fatalf("unexpected ops recipient %v", f.mailer.sent[1].To)
	}

	if len(f.events.events) != 2 {
		t.Fatalf("expected paid and shipped events, got %d", len(f.events.events))
	}
	if f.events.events[0].Type != domain.OrderEventPaid || f.events.events[0].Attributes["paymentIntentId"] != "pi_123" {
		t.Fatalf("unexpected first event %+v", f.events.events[0])
	}
	if f.events.events[1].Type != domain.OrderEventShipped || f.events.events[1].Attributes["trackingNumber"] != "SS-7781" {
		t.Fatalf("unexpected second event %+v", f.events.events[1])
	}
}

func TestCompleteOrderCollectsCashForCOD(t *testing.T) {
	f := newFulfillmentFixture(t)

	order := paidFixtureOrder()
	order.PaymentMethod = domain.PaymentMethodCOD
	if _, err := f.svc.CompleteOrder(context.Background(), order, ""); err != nil {
		t.Fatalf("CompleteOrder returned error: %v", err)
	}
	if got := f.courier.requests[0].CODAmount; got != 325000 {
		t.Fatalf("expected courier to collect the total, got %d", got)
	}
}

func TestCompleteOrderBooksShipmentForOrderPaidAtCreation(t *testing.T) {
	f := newFulfillmentFixture(t)

	order := paidFixtureOrder()
	order.PaymentMethod = domain.PaymentMethodCOD
	order.Flags = domain.OrderFlags{Paid: true}

	completed, err := f.svc.CompleteOrder(context.Background(), order, "")
	if err != nil {
		t.Fatalf("CompleteOrder returned error: %v", err)
	}
	if len(f.courier.requests) != 1 {
		t.Fatalf("expected shipment booking despite paid flag, got %d", len(f.courier.requests))
	}
	if !completed.Flags.ShipmentCreated || !completed.Flags.EmailSent {
		t.Fatalf("expected shipment and email flags set, got %+v", completed.Flags)
	}
	if completed.PaymentIntentID != "" {
		t.Fatalf("cash orders carry no payment intent, got %q", completed.PaymentIntentID)
	}
}

func TestCompleteOrderAlreadyCompleted(t *testing.T) {
	f := newFulfillmentFixture(t)

	order := paidFixtureOrder()
	order.Flags = domain.OrderFlags{Paid: true, ShipmentCreated: true, EmailSent: true}
	if _, err := f.svc.CompleteOrder(context.Background(), order, "pi_123"); err != nil {
		t.Fatalf("CompleteOrder returned error: %v", err)
	}
	if len(f.courier.requests) != 0 || len(f.mailer.sent) != 0 {
		t.Fatalf("expected no side effects on a completed order")
	}
}

func TestCompleteOrderSkipsShipmentWhenAlreadyBooked(t *testing.T) {
	f := newFulfillmentFixture(t)

	order := paidFixtureOrder()
	order.Flags = domain.OrderFlags{Paid: true, ShipmentCreated: true}
	if _, err := f.svc.CompleteOrder(context.Background(), order, "pi_123"); err != nil {
		t.Fatalf("CompleteOrder returned error: %v", err)
	}
	if len(f.courier.requests) != 0 {
		t.Fatalf("expected no second booking, got %d", len(f.courier.requests))
	}
	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected email step to run, got %d sends", len(f.mailer.sent))
	}
}

func TestCompleteOrderShipmentFailure(t *testing.T) {
	f := newFulfillmentFixture(t)
	f.courier.err = errors.New("courier api down")

	if _, err := f.svc.CompleteOrder(context.Background(), paidFixtureOrder(), "pi_123"); !errors.Is(err, ErrShipmentFailed) {
		t.Fatalf("expected ErrShipmentFailed, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no email after a failed booking")
	}
}

func TestCompleteOrderFlagRaceReloadsOrder(t *testing.T) {
	f := newFulfillmentFixture(t)
	f.orders.markPaidFn = func(context.Context, repositories.MarkPaidRequest) (domain.Order, error) {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorFlagAlreadySet, "shipment already created", nil)
	}
	f.orders.findByIDFn = func(_ context.Context, orderID string) (domain.Order, error) {
		order := paidFixtureOrder()
		order.Flags = domain.OrderFlags{Paid: true, ShipmentCreated: true}
		return order, nil
	}

	completed, err := f.svc.CompleteOrder(context.Background(), paidFixtureOrder(), "pi_123")
	if err != nil {
		t.Fatalf("CompleteOrder returned error: %v", err)
	}
	if !completed.Flags.EmailSent {
		t.Fatalf("expected email step to run on the reloaded order")
	}
	// The concurrent invocation owns the paid and shipped events.
	for _, event := range f.events.events {
		if event.Type == domain.OrderEventPaid {
			t.Fatalf("losing invocation must not publish order.paid")
		}
	}
}

func TestCompleteOrderEmailFailureStaysRetryable(t *testing.T) {
	f := newFulfillmentFixture(t)
	f.mailer.err = errors.New("mail api down")

	emailFlagged := false
	f.orders.markEmailFn = func(context.Context, string, string, time.Time) (domain.Order, error) {
		emailFlagged = true
		return domain.Order{}, nil
	}

	if _, err := f.svc.CompleteOrder(context.Background(), paidFixtureOrder(), "pi_123"); !errors.Is(err, ErrEmailFailed) {
		t.Fatalf("expected ErrEmailFailed, got %v", err)
	}
	if emailFlagged {
		t.Fatalf("emailSent must not flip after a failed send")
	}
}

func TestCompleteOrderInvoiceFailure(t *testing.T) {
	f := newFulfillmentFixture(t)
	f.store.err = errors.New("bucket unavailable")

	if _, err := f.svc.CompleteOrder(context.Background(), paidFixtureOrder(), "pi_123"); !errors.Is(err, ErrEmailFailed) {
		t.Fatalf("expected ErrEmailFailed, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no send without a stored invoice")
	}
}

func TestCompleteOrderOrderGone(t *testing.T) {
	f := newFulfillmentFixture(t)
	f.orders.markPaidFn = func(context.Context, repositories.MarkPaidRequest) (domain.Order, error) {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, "order missing", nil)
	}

	if _, err := f.svc.CompleteOrder(context.Background(), paidFixtureOrder(), "pi_123"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
