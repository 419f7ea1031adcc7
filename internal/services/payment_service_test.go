package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/payments"
	"github.com/auric-jewels/api/internal/repositories"
)

type fakeRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *fakeRepoError) Error() string       { return "repository error" }
func (e *fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e *fakeRepoError) IsConflict() bool    { return e.conflict }
func (e *fakeRepoError) IsUnavailable() bool { return e.unavailable }

type paymentFixture struct {
	orders      *stubOrderRepository
	events      *stubWebhookEventRepository
	verifier    *stubVerifier
	fulfillment *stubFulfillment
	svc         PaymentService
}

func completedSessionEvent() payments.WebhookEvent {
	return payments.WebhookEvent{
		ID:              "evt_1",
		Provider:        "stripe",
		Type:            payments.CheckoutSessionCompleted,
		SessionID:       "cs_test_1",
		PaymentIntentID: "pi_123",
		Metadata:        map[string]string{"orderId": "order-1", "orderNumber": "AJ-10000001"},
	}
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	f := &paymentFixture{
		orders:      &stubOrderRepository{},
		events:      &stubWebhookEventRepository{},
		verifier:    &stubVerifier{event: completedSessionEvent()},
		fulfillment: &stubFulfillment{},
	}
	f.orders.findByIDFn = func(_ context.Context, orderID string) (domain.Order, error) {
		order := paidFixtureOrder()
		order.ID = orderID
		return order, nil
	}

	svc, err := NewPaymentService(PaymentServiceDeps{
		Orders:      f.orders,
		Events:      f.events,
		Verifier:    f.verifier,
		Fulfillment: f.fulfillment,
		Clock:       func() time.Time { return time.Date(2025, 3, 1, 12, 55, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewPaymentService: %v", err)
	}
	f.svc = svc
	return f
}

func TestHandleStripeWebhookProcessed(t *testing.T) {
	f := newPaymentFixture(t)

	outcome, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("HandleStripeWebhook returned error: %v", err)
	}
	if outcome.Status != WebhookProcessed || outcome.OrderID != "order-1" || outcome.EventID != "evt_1" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if f.fulfillment.calls != 1 {
		t.Fatalf("expected one completion run, got %d", f.fulfillment.calls)
	}
	if len(f.events.recorded) != 1 {
		t.Fatalf("expected processed sentinel, got %d", len(f.events.recorded))
	}
	sentinel := f.events.recorded[0]
	if sentinel.ID != "evt_1" || sentinel.Provider != "stripe" || sentinel.OrderRef != "order-1" {
		t.Fatalf("unexpected sentinel %+v", sentinel)
	}
	if sentinel.ProcessedAt.IsZero() {
		t.Fatalf("expected processed timestamp")
	}
}

func TestHandleStripeWebhookBadSignature(t *testing.T) {
	f := newPaymentFixture(t)
	f.verifier.err = payments.ErrInvalidSignature

	if _, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "bad"); !errors.Is(err, payments.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if f.fulfillment.calls != 0 {
		t.Fatalf("no work may run on an unverified payload")
	}
}

func TestHandleStripeWebhookParseFailureMapsToSignatureError(t *testing.T) {
	f := newPaymentFixture(t)
	f.verifier.err = errors.New("malformed event json")

	if _, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{"), "sig"); !errors.Is(err, payments.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleStripeWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture(t)
	f.verifier.event = payments.WebhookEvent{ID: "evt_2", Provider: "stripe", Type: "payment_intent.created"}

	outcome, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("HandleStripeWebhook returned error: %v", err)
	}
	if outcome.Status != WebhookIgnored {
		t.Fatalf("expected ignored outcome, got %+v", outcome)
	}
	if f.fulfillment.calls != 0 || len(f.events.recorded) != 0 {
		t.Fatalf("ignored events must not touch orders or the ledger")
	}
}

func TestHandleStripeWebhookMissingOrderRef(t *testing.T) {
	f := newPaymentFixture(t)
	event := completedSessionEvent()
	event.Metadata = map[string]string{}
	f.verifier.event = event

	if _, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig"); !errors.Is(err, ErrMissingOrderRef) {
		t.Fatalf("expected ErrMissingOrderRef, got %v", err)
	}
}

func TestHandleStripeWebhookDuplicateDelivery(t *testing.T) {
	f := newPaymentFixture(t)
	f.events.seen = true

	outcome, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("HandleStripeWebhook returned error: %v", err)
	}
	if outcome.Status != WebhookDuplicate {
		t.Fatalf("expected duplicate outcome, got %+v", outcome)
	}
	if f.fulfillment.calls != 0 {
		t.Fatalf("duplicates must not rerun the workflow")
	}
}

func TestHandleStripeWebhookOrderMissing(t *testing.T) {
	f := newPaymentFixture(t)
	f.orders.findByIDFn = func(context.Context, string) (domain.Order, error) {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, "order missing", nil)
	}

	if _, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleStripeWebhookCompletionFailureKeepsDeliveryRetryable(t *testing.T) {
	f := newPaymentFixture(t)
	f.fulfillment.completeFn = func(context.Context, domain.Order, string) (domain.Order, error) {
		return domain.Order{}, ErrShipmentFailed
	}

	if _, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig"); !errors.Is(err, ErrShipmentFailed) {
		t.Fatalf("expected ErrShipmentFailed, got %v", err)
	}
	// No sentinel means the next delivery of the same event retries the work.
	if len(f.events.recorded) != 0 {
		t.Fatalf("sentinel must not be recorded after a failed completion")
	}
}

func TestHandleStripeWebhookRecordConflictReportsDuplicate(t *testing.T) {
	f := newPaymentFixture(t)
	f.events.recordFn = func(context.Context, domain.WebhookEvent) error {
		return &fakeRepoError{conflict: true}
	}

	outcome, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("HandleStripeWebhook returned error: %v", err)
	}
	if outcome.Status != WebhookDuplicate {
		t.Fatalf("expected duplicate outcome on sentinel conflict, got %+v", outcome)
	}
	if f.fulfillment.calls != 1 {
		t.Fatalf("the workflow still ran once, got %d calls", f.fulfillment.calls)
	}
}

func TestHandleStripeWebhookDedupeCheckFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.events.seenErr = errors.New("ledger unavailable")

	if _, err := f.svc.HandleStripeWebhook(context.Background(), []byte("{}"), "sig"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
