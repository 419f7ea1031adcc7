package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/payments"
	"github.com/auric-jewels/api/internal/repositories"
)

// PaymentServiceDeps wires the webhook processing dependencies.
type PaymentServiceDeps struct {
	Orders      repositories.OrderRepository
	Events      repositories.WebhookEventRepository
	Verifier    payments.WebhookVerifier
	Fulfillment FulfillmentService
	Clock       func() time.Time
	Logger      Logger
}

type paymentService struct {
	orders      repositories.OrderRepository
	events      repositories.WebhookEventRepository
	verifier    payments.WebhookVerifier
	fulfillment FulfillmentService
	now         func() time.Time
	logger      Logger
}

// NewPaymentService constructs a PaymentService validating required dependencies.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Events == nil {
		return nil, errors.New("payment service: webhook event repository is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("payment service: webhook verifier is required")
	}
	if deps.Fulfillment == nil {
		return nil, errors.New("payment service: fulfillment service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		orders:      deps.Orders,
		events:      deps.Events,
		verifier:    deps.Verifier,
		fulfillment: deps.Fulfillment,
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// HandleStripeWebhook verifies the delivery, filters for completed checkout
// sessions, deduplicates by event id, and drives the completion workflow.
// The sentinel is recorded only after the workflow succeeds, so a failed
// shipment or email keeps the delivery retryable; concurrent duplicates are
// still safe because the flag transitions themselves are conditional.
func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (WebhookOutcome, error) {
	event, err := s.verifier.VerifyAndParse(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return WebhookOutcome{}, err
		}
		s.logger(ctx, "webhook.parse_failed", map[string]any{"error": err.Error()})
		return WebhookOutcome{}, payments.ErrInvalidSignature
	}

	if event.Type != payments.CheckoutSessionCompleted {
		return WebhookOutcome{Status: WebhookIgnored, EventID: event.ID}, nil
	}

	orderID := strings.TrimSpace(event.Metadata["orderId"])
	if orderID == "" {
		s.logger(ctx, "webhook.missing_order_ref", map[string]any{"eventId": event.ID})
		return WebhookOutcome{}, ErrMissingOrderRef
	}

	seen, err := s.events.Seen(ctx, event.Provider, event.ID)
	if err != nil {
		s.logger(ctx, "webhook.dedupe_check_failed", map[string]any{
			"eventId": event.ID,
			"error":   err.Error(),
		})
		return WebhookOutcome{}, ErrUnavailable
	}
	if seen {
		return WebhookOutcome{Status: WebhookDuplicate, OrderID: orderID, EventID: event.ID}, nil
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		var orderErr *repositories.OrderError
		if errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorNotFound {
			return WebhookOutcome{}, ErrOrderNotFound
		}
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return WebhookOutcome{}, ErrOrderNotFound
		}
		return WebhookOutcome{}, ErrUnavailable
	}

	if _, err := s.fulfillment.CompleteOrder(ctx, order, event.PaymentIntentID); err != nil {
		return WebhookOutcome{}, err
	}

	if err := s.events.Record(ctx, domain.WebhookEvent{
		ID:          event.ID,
		Provider:    event.Provider,
		Type:        event.Type,
		OrderRef:    orderID,
		ProcessedAt: s.now(),
	}); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			// Another delivery finished first; the flags made the work idempotent.
			return WebhookOutcome{Status: WebhookDuplicate, OrderID: orderID, EventID: event.ID}, nil
		}
		s.logger(ctx, "webhook.record_failed", map[string]any{
			"eventId": event.ID,
			"error":   err.Error(),
		})
	}

	return WebhookOutcome{Status: WebhookProcessed, OrderID: orderID, EventID: event.ID}, nil
}
