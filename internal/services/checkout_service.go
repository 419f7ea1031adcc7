package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/payments"
	"github.com/auric-jewels/api/internal/platform/textutil"
	"github.com/auric-jewels/api/internal/repositories"
)

const (
	orderNumberPrefix      = "AJ-"
	orderNumberDigits      = 8
	orderNumberMaxAttempts = 5
	sessionExpiry          = 30 * time.Minute
)

// checkoutSessionManager abstracts payments.Manager for easier testing.
type checkoutSessionManager interface {
	CreateCheckoutSession(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

// CheckoutPricing carries the storefront pricing knobs in minor units.
type CheckoutPricing struct {
	ShippingFeeMinor           int64
	FreeShippingThresholdMinor int64
	Currency                   string
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Promotions  PromotionService
	Payments    checkoutSessionManager
	Fulfillment FulfillmentService
	Events      OrderEventPublisher
	// Users receives the profile projection refreshed on each authenticated
	// order. Optional; guest checkouts never touch it.
	Users repositories.UserRepository
	Pricing     CheckoutPricing
	CODLimit    int64
	// PhonePattern validates COD phone numbers; compiled at construction.
	PhonePattern string
	SuccessURL   string
	CancelURL    string
	// NewOrderNumber returns the digits portion of a candidate order number.
	NewOrderNumber func() string
	NewID          func() string
	Clock          func() time.Time
	Logger         Logger
}

type checkoutService struct {
	orders      repositories.OrderRepository
	products    repositories.ProductRepository
	promotions  PromotionService
	payments    checkoutSessionManager
	fulfillment FulfillmentService
	events      OrderEventPublisher
	users       repositories.UserRepository
	pricing     CheckoutPricing
	codLimit    int64
	phoneRe     *regexp.Regexp
	successURL  string
	cancelURL   string
	newNumber   func() string
	newID       func() string
	now         func() time.Time
	logger      Logger
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("checkout service: product repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}
	if deps.Fulfillment == nil {
		return nil, errors.New("checkout service: fulfillment service is required")
	}
	if strings.TrimSpace(deps.SuccessURL) == "" || strings.TrimSpace(deps.CancelURL) == "" {
		return nil, errors.New("checkout service: success and cancel urls are required")
	}
	if deps.CODLimit <= 0 {
		return nil, errors.New("checkout service: cod limit must be positive")
	}

	phoneRe, err := regexp.Compile(deps.PhonePattern)
	if err != nil {
		return nil, fmt.Errorf("checkout service: invalid phone pattern: %w", err)
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Pricing.Currency))
	if currency == "" {
		currency = "PKR"
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newNumber := deps.NewOrderNumber
	if newNumber == nil {
		newNumber = randomOrderDigits
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return "ord_" + ulid.Make().String() }
	}

	return &checkoutService{
		orders:      deps.Orders,
		products:    deps.Products,
		promotions:  deps.Promotions,
		payments:    deps.Payments,
		fulfillment: deps.Fulfillment,
		events:      deps.Events,
		users:       deps.Users,
		pricing: CheckoutPricing{
			ShippingFeeMinor:           deps.Pricing.ShippingFeeMinor,
			FreeShippingThresholdMinor: deps.Pricing.FreeShippingThresholdMinor,
			Currency:                   currency,
		},
		codLimit:   deps.CODLimit,
		phoneRe:    phoneRe,
		successURL: strings.TrimSpace(deps.SuccessURL),
		cancelURL:  strings.TrimSpace(deps.CancelURL),
		newNumber:  newNumber,
		newID:      newID,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateSession resolves the cart, persists a pending order with stock
// reserved, and opens a hosted payment session. Inventory is decremented
// before the PSP call; both are rolled back when the session cannot be
// created.
func (s *checkoutService) CreateSession(ctx context.Context, cmd CreateSessionCommand) (domain.CheckoutSession, error) {
	draft, err := s.buildDraft(ctx, draftInput{
		userID:      cmd.UserID,
		contact:     cmd.Contact,
		items:       cmd.Items,
		address:     cmd.ShippingAddress,
		promoCode:   cmd.PromoCode,
		giftMessage: cmd.GiftMessage,
		method:      domain.PaymentMethodOnline,
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	order, err := s.persistOrderWithStock(ctx, draft)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	s.refreshProfile(ctx, order)

	session, err := s.payments.CreateCheckoutSession(ctx, payments.PaymentContext{Currency: order.Currency}, payments.CheckoutSessionRequest{
		Amount:        order.Totals.Total,
		Currency:      order.Currency,
		CustomerEmail: order.Contact.Email,
		SuccessURL:    successURLFor(s.successURL, order.ID),
		CancelURL:     s.cancelURL,
		Metadata: textutil.NormalizeStringMap(map[string]string{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"email":       order.Contact.Email,
		}),
		IdempotencyKey: order.ID,
		Items:          checkoutLineItems(order),
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		s.compensate(ctx, order)
		return domain.CheckoutSession{}, ErrPaymentFailed
	}

	if err := s.orders.SetCheckoutSession(ctx, order.ID, session.ID, s.now()); err != nil {
		s.logger(ctx, "checkout.session_record_failed", map[string]any{
			"orderId":   order.ID,
			"sessionId": session.ID,
			"error":     err.Error(),
		})
	}

	s.publishPlaced(ctx, order)

	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(sessionExpiry)
	}
	return domain.CheckoutSession{
		SessionID:   session.ID,
		PSP:         session.Provider,
		RedirectURL: session.RedirectURL,
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

// PlaceCashOnDelivery validates the phone and COD ceiling, persists the
// order already marked paid, then runs shipment and email inline before
// returning.
func (s *checkoutService) PlaceCashOnDelivery(ctx context.Context, cmd CashOnDeliveryCommand) (domain.Order, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return domain.Order{}, ErrInvalidInput
	}
	phone := textutil.NormalizeText(cmd.Contact.Phone)
	if !s.phoneRe.MatchString(phone) {
		return domain.Order{}, ErrInvalidPhone
	}
	cmd.Contact.Phone = phone

	draft, err := s.buildDraft(ctx, draftInput{
		userID:      cmd.UserID,
		contact:     cmd.Contact,
		items:       cmd.Items,
		address:     cmd.ShippingAddress,
		promoCode:   cmd.PromoCode,
		giftMessage: cmd.GiftMessage,
		method:      domain.PaymentMethodCOD,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if draft.Totals.Total > s.codLimit {
		return domain.Order{}, ErrCODLimitExceeded
	}

	// The courier collects the cash, so the record is paid from creation.
	// The shipment and email flags still transition through CompleteOrder.
	paidAt := s.now()
	draft.Flags.Paid = true
	draft.PaidAt = &paidAt

	order, err := s.persistOrderWithStock(ctx, draft)
	if err != nil {
		return domain.Order{}, err
	}
	s.refreshProfile(ctx, order)
	s.publishPlaced(ctx, order)

	completed, err := s.fulfillment.CompleteOrder(ctx, order, "")
	if err != nil {
		// Stock stays decremented and the order stays placed; the email or
		// shipment step is retried through reconciliation.
		s.logger(ctx, "checkout.cod_fulfillment_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.Order{}, err
	}
	return completed, nil
}

type draftInput struct {
	userID      string
	contact     CheckoutContact
	items       []domain.CartLine
	address     domain.Address
	promoCode   string
	giftMessage string
	method      domain.PaymentMethod
}

// buildDraft resolves cart lines against the catalogue, redeems the promo
// code, and computes totals. It performs no writes besides the promo
// redemption, which the storefront treats as consumed on order intent.
func (s *checkoutService) buildDraft(ctx context.Context, in draftInput) (domain.Order, error) {
	email := strings.ToLower(textutil.NormalizeText(in.contact.Email))
	if email == "" {
		return domain.Order{}, ErrInvalidInput
	}
	if textutil.NormalizeText(in.address.Line1) == "" || textutil.NormalizeText(in.address.City) == "" || textutil.NormalizeText(in.address.Country) == "" {
		return domain.Order{}, ErrInvalidInput
	}
	if len(in.items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	ids := make([]string, 0, len(in.items))
	quantities := make(map[string]int, len(in.items))
	for _, line := range in.items {
		id := strings.TrimSpace(line.ProductID)
		if id == "" || line.Quantity <= 0 {
			continue
		}
		if _, ok := quantities[id]; !ok {
			ids = append(ids, id)
		}
		quantities[id] += line.Quantity
	}
	if len(ids) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	byID, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return domain.Order{}, s.translateRepoError(err)
	}

	lineItems := make([]domain.OrderLineItem, 0, len(ids))
	for _, id := range ids {
		product, ok := byID[id]
		if !ok || !product.Sellable() {
			// Unresolvable and inactive lines are dropped, not fatal.
			continue
		}
		qty := quantities[id]
		unit := product.PayablePrice()
		lineItems = append(lineItems, domain.OrderLineItem{
			ProductRef: product.ID,
			SKU:        product.SKU,
			Name:       product.Name,
			Quantity:   qty,
			UnitPrice:  unit,
			Total:      unit * int64(qty),
		})
	}
	if len(lineItems) == 0 {
		return domain.Order{}, ErrNoValidProducts
	}

	var promo *domain.OrderPromotion
	percentOff := 0
	if code := textutil.NormalizeCode(in.promoCode); code != "" {
		if s.promotions == nil {
			return domain.Order{}, ErrPromotionInvalid
		}
		redemption, err := s.promotions.Redeem(ctx, code)
		if err != nil {
			return domain.Order{}, err
		}
		promo = &domain.OrderPromotion{Code: redemption.Code, PercentOff: redemption.PercentOff}
		percentOff = redemption.PercentOff
	}

	totals := domain.ComputeTotals(lineItems, domain.PricingInputs{
		ShippingFee:           s.pricing.ShippingFeeMinor,
		FreeShippingThreshold: s.pricing.FreeShippingThresholdMinor,
		PercentOff:            percentOff,
	})

	now := s.now()
	return domain.Order{
		ID:     s.newID(),
		UserID: strings.TrimSpace(in.userID),
		Contact: domain.OrderContact{
			Name:  textutil.CollapseSpaces(in.contact.Name),
			Email: email,
			Phone: textutil.NormalizeText(in.contact.Phone),
		},
		Items:           lineItems,
		ShippingAddress: in.address,
		Currency:        s.pricing.Currency,
		Totals:          totals,
		Promotion:       promo,
		PaymentMethod:   in.method,
		Fulfillment:     domain.FulfillmentStatusPending,
		GiftMessage:     textutil.NormalizeText(in.giftMessage),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// persistOrderWithStock inserts the order under a fresh order number and
// decrements stock for every line in one transaction. Stock failure deletes
// the just-created order.
func (s *checkoutService) persistOrderWithStock(ctx context.Context, order domain.Order) (domain.Order, error) {
	inserted := false
	for attempt := 0; attempt < orderNumberMaxAttempts; attempt++ {
		order.OrderNumber = orderNumberPrefix + s.newNumber()
		err := s.orders.Insert(ctx, order)
		if err == nil {
			inserted = true
			break
		}
		var orderErr *repositories.OrderError
		if errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorNumberTaken {
			continue
		}
		return domain.Order{}, s.translateRepoError(err)
	}
	if !inserted {
		s.logger(ctx, "checkout.order_number_exhausted", map[string]any{"orderId": order.ID})
		return domain.Order{}, ErrUnavailable
	}

	lines := make([]repositories.StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, repositories.StockLine{ProductID: item.ProductRef, Quantity: item.Quantity})
	}
	if err := s.products.DecrementStock(ctx, lines, s.now()); err != nil {
		if deleteErr := s.orders.Delete(ctx, order.ID); deleteErr != nil {
			s.logger(ctx, "checkout.compensation_failed", map[string]any{
				"orderId": order.ID,
				"error":   deleteErr.Error(),
			})
		}
		var stockErr *repositories.StockError
		if errors.As(err, &stockErr) {
			switch stockErr.Code {
			case repositories.StockErrorInsufficient:
				return domain.Order{}, ErrInsufficientStock
			case repositories.StockErrorProductNotFound:
				return domain.Order{}, ErrNoValidProducts
			}
		}
		return domain.Order{}, s.translateRepoError(err)
	}
	return order, nil
}

// compensate restores stock and removes the order after a failed PSP call.
func (s *checkoutService) compensate(ctx context.Context, order domain.Order) {
	lines := make([]repositories.StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, repositories.StockLine{ProductID: item.ProductRef, Quantity: item.Quantity})
	}
	if err := s.products.RestoreStock(ctx, lines, s.now()); err != nil {
		s.logger(ctx, "checkout.stock_restore_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		s.logger(ctx, "checkout.order_delete_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

// refreshProfile keeps the user projection current with the contact details
// from the latest order. Failures are logged, never surfaced.
func (s *checkoutService) refreshProfile(ctx context.Context, order domain.Order) {
	if s.users == nil || order.UserID == "" {
		return
	}
	if _, err := s.users.Upsert(ctx, domain.UserProfile{
		ID:          order.UserID,
		DisplayName: order.Contact.Name,
		Email:       order.Contact.Email,
		PhoneNumber: order.Contact.Phone,
	}); err != nil {
		s.logger(ctx, "checkout.profile_refresh_failed", map[string]any{
			"orderId": order.ID,
			"userId":  order.UserID,
			"error":   err.Error(),
		})
	}
}

func (s *checkoutService) publishPlaced(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, domain.OrderEvent{
		Type:        domain.OrderEventPlaced,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OccurredAt:  s.now(),
		Attributes:  map[string]string{"paymentMethod": string(order.PaymentMethod)},
	}); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *checkoutService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrNoValidProducts
	}
	return ErrUnavailable
}

// checkoutLineItems mirrors the order lines when they sum to the charged
// total. Discounts and shipping shift the total away from the item sum, in
// which case a single consolidated line carries the exact amount.
// successURLFor embeds the order id in the success redirect so the
// storefront can show the confirmed order when the shopper returns.
func successURLFor(base, orderID string) string {
	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := parsed.Query()
	query.Set("orderId", orderID)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func checkoutLineItems(order domain.Order) []payments.CheckoutLineItem {
	items := make([]payments.CheckoutLineItem, 0, len(order.Items))
	var itemTotal int64
	for _, item := range order.Items {
		items = append(items, payments.CheckoutLineItem{
			Name:     item.Name,
			SKU:      item.SKU,
			Quantity: int64(item.Quantity),
			Amount:   item.UnitPrice,
			Currency: order.Currency,
		})
		itemTotal += item.Total
	}
	if itemTotal == order.Totals.Total && len(items) > 0 {
		return items
	}
	return []payments.CheckoutLineItem{{
		Name:     "Order " + order.OrderNumber,
		Quantity: 1,
		Amount:   order.Totals.Total,
		Currency: order.Currency,
	}}
}

func randomOrderDigits() string {
	max := big.NewInt(1)
	for i := 0; i < orderNumberDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fall back to a timestamp-derived number; uniqueness is still
		// enforced by the ledger reservation.
		return fmt.Sprintf("%0*d", orderNumberDigits, time.Now().UnixNano()%100000000)
	}
	return fmt.Sprintf("%0*d", orderNumberDigits, n)
}
