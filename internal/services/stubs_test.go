package services

import (
	"context"
	"errors"
	"time"

	"github.com/auric-jewels/api/internal/courier"
	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/invoices"
	"github.com/auric-jewels/api/internal/mail"
	"github.com/auric-jewels/api/internal/payments"
	"github.com/auric-jewels/api/internal/repositories"
)

type stubOrderRepository struct {
	insertFn         func(ctx context.Context, order domain.Order) error
	deleteFn         func(ctx context.Context, orderID string) error
	findByIDFn       func(ctx context.Context, orderID string) (domain.Order, error)
	listFn           func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	setSessionFn     func(ctx context.Context, orderID, sessionID string, now time.Time) error
	markPaidFn       func(ctx context.Context, req repositories.MarkPaidRequest) (domain.Order, error)
	markEmailFn      func(ctx context.Context, orderID, invoiceURL string, now time.Time) (domain.Order, error)
	inserted         []domain.Order
	deleted          []string
	recordedSessions []string
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		if err := s.insertFn(ctx, order); err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, order)
	return nil
}

func (s *stubOrderRepository) Delete(ctx context.Context, orderID string) error {
	s.deleted = append(s.deleted, orderID)
	if s.deleteFn != nil {
		return s.deleteFn(ctx, orderID)
	}
	return nil
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepository) FindBySessionID(context.Context, string) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, errors.New("not implemented")
}

func (s *stubOrderRepository) SetCheckoutSession(ctx context.Context, orderID, sessionID string, now time.Time) error {
	s.recordedSessions = append(s.recordedSessions, sessionID)
	if s.setSessionFn != nil {
		return s.setSessionFn(ctx, orderID, sessionID, now)
	}
	return nil
}

func (s *stubOrderRepository) MarkPaid(ctx context.Context, req repositories.MarkPaidRequest) (domain.Order, error) {
	if s.markPaidFn != nil {
		return s.markPaidFn(ctx, req)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepository) MarkEmailSent(ctx context.Context, orderID, invoiceURL string, now time.Time) (domain.Order, error) {
	if s.markEmailFn != nil {
		return s.markEmailFn(ctx, orderID, invoiceURL, now)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepository) UpdateFulfillment(context.Context, string, domain.FulfillmentStatus, time.Time) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

type stubProductRepository struct {
	products    map[string]domain.Product
	decrementFn func(ctx context.Context, lines []repositories.StockLine, now time.Time) error
	restoreFn   func(ctx context.Context, lines []repositories.StockLine, now time.Time) error
	decremented [][]repositories.StockLine
	restored    [][]repositories.StockLine
}

func (s *stubProductRepository) FindByID(_ context.Context, productID string) (domain.Product, error) {
	if product, ok := s.products[productID]; ok {
		return product, nil
	}
	return domain.Product{}, errors.New("not found")
}

func (s *stubProductRepository) FindByIDs(_ context.Context, productIDs []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if product, ok := s.products[id]; ok {
			out[id] = product
		}
	}
	return out, nil
}

func (s *stubProductRepository) DecrementStock(ctx context.Context, lines []repositories.StockLine, now time.Time) error {
	s.decremented = append(s.decremented, lines)
	if s.decrementFn != nil {
		return s.decrementFn(ctx, lines, now)
	}
	return nil
}

func (s *stubProductRepository) RestoreStock(ctx context.Context, lines []repositories.StockLine, now time.Time) error {
	s.restored = append(s.restored, lines)
	if s.restoreFn != nil {
		return s.restoreFn(ctx, lines, now)
	}
	return nil
}

type stubPromotionRepository struct {
	redeemFn func(ctx context.Context, code string, now time.Time) (domain.Promotion, error)
	lastCode string
}

func (s *stubPromotionRepository) FindByCode(context.Context, string) (domain.Promotion, error) {
	return domain.Promotion{}, errors.New("not implemented")
}

func (s *stubPromotionRepository) Redeem(ctx context.Context, code string, now time.Time) (domain.Promotion, error) {
	s.lastCode = code
	if s.redeemFn != nil {
		return s.redeemFn(ctx, code, now)
	}
	return domain.Promotion{}, errors.New("not implemented")
}

type stubWebhookEventRepository struct {
	seen     bool
	seenErr  error
	recordFn func(ctx context.Context, event domain.WebhookEvent) error
	recorded []domain.WebhookEvent
}

func (s *stubWebhookEventRepository) Record(ctx context.Context, event domain.WebhookEvent) error {
	s.recorded = append(s.recorded, event)
	if s.recordFn != nil {
		return s.recordFn(ctx, event)
	}
	return nil
}

func (s *stubWebhookEventRepository) Seen(context.Context, string, string) (bool, error) {
	return s.seen, s.seenErr
}

type stubSessionManager struct {
	session  payments.CheckoutSession
	err      error
	requests []payments.CheckoutSessionRequest
}

func (s *stubSessionManager) CreateCheckoutSession(_ context.Context, _ payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return payments.CheckoutSession{}, s.err
	}
	return s.session, nil
}

type stubFulfillment struct {
	completeFn func(ctx context.Context, order domain.Order, paymentIntentID string) (domain.Order, error)
	calls      int
}

func (s *stubFulfillment) CompleteOrder(ctx context.Context, order domain.Order, paymentIntentID string) (domain.Order, error) {
	s.calls++
	if s.completeFn != nil {
		return s.completeFn(ctx, order, paymentIntentID)
	}
	return order, nil
}

type stubCourier struct {
	result   courier.ShipmentResult
	err      error
	requests []courier.ShipmentRequest
}

func (s *stubCourier) Name() string { return "swiftship" }

func (s *stubCourier) CreateShipment(_ context.Context, req courier.ShipmentRequest) (courier.ShipmentResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return courier.ShipmentResult{}, s.err
	}
	return s.result, nil
}

type stubMailer struct {
	err  error
	sent []mail.Message
}

func (s *stubMailer) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubInvoiceStore struct {
	stored invoices.StoredInvoice
	err    error
	puts   []string
}

func (s *stubInvoiceStore) Put(_ context.Context, orderID string, _ string) (invoices.StoredInvoice, error) {
	s.puts = append(s.puts, orderID)
	if s.err != nil {
		return invoices.StoredInvoice{}, s.err
	}
	return s.stored, nil
}

type stubVerifier struct {
	event payments.WebhookEvent
	err   error
}

func (s *stubVerifier) VerifyAndParse([]byte, string) (payments.WebhookEvent, error) {
	if s.err != nil {
		return payments.WebhookEvent{}, s.err
	}
	return s.event, nil
}

type stubPublisher struct {
	events []domain.OrderEvent
	err    error
}

func (s *stubPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) (string, error) {
	s.events = append(s.events, event)
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

type stubUserRepository struct {
	upserted []domain.UserProfile
	err      error
}

func (s *stubUserRepository) FindByID(_ context.Context, userID string) (domain.UserProfile, error) {
	for _, profile := range s.upserted {
		if profile.ID == userID {
			return profile, nil
		}
	}
	return domain.UserProfile{}, errors.New("not found")
}

func (s *stubUserRepository) Upsert(_ context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	if s.err != nil {
		return domain.UserProfile{}, s.err
	}
	s.upserted = append(s.upserted, profile)
	return profile, nil
}
