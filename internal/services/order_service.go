package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/repositories"
)

// OrderServiceDeps wires the read-side dependencies.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Logger Logger
}

type orderService struct {
	orders repositories.OrderRepository
	logger Logger
}

// NewOrderService constructs an OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{orders: deps.Orders, logger: logger}, nil
}

// GetOrder loads one order. When a user id is supplied the order must belong
// to that user; a mismatch reads the same as a missing order.
func (s *orderService) GetOrder(ctx context.Context, query GetOrderQuery) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrUnavailable
	}
	orderID := strings.TrimSpace(query.OrderID)
	if orderID == "" {
		return domain.Order{}, ErrInvalidInput
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.translate(err)
	}

	if userID := strings.TrimSpace(query.UserID); userID != "" && order.UserID != userID {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders pages a user's orders newest first.
func (s *orderService) ListOrders(ctx context.Context, query ListOrdersQuery) (domain.CursorPage[domain.Order], error) {
	if s == nil || s.orders == nil {
		return domain.CursorPage[domain.Order]{}, ErrUnavailable
	}
	userID := strings.TrimSpace(query.UserID)
	if userID == "" {
		return domain.CursorPage[domain.Order]{}, ErrInvalidInput
	}

	filter := repositories.OrderListFilter{
		UserID: userID,
		Pagination: domain.Pagination{
			PageSize:  query.PageSize,
			PageToken: strings.TrimSpace(query.PageToken),
		},
	}
	filter.DateRange = domain.RangeQuery[time.Time]{From: query.From, To: query.To}

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.translate(err)
	}
	return page, nil
}

func (s *orderService) translate(err error) error {
	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorNotFound {
		return ErrOrderNotFound
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrOrderNotFound
		}
		return ErrUnavailable
	}
	return ErrUnavailable
}
