package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/repositories"
)

func newOrderFixture(t *testing.T, repo *stubOrderRepository) OrderService {
	t.Helper()

	svc, err := NewOrderService(OrderServiceDeps{Orders: repo})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestGetOrderReturnsOrder(t *testing.T) {
	repo := &stubOrderRepository{
		findByIDFn: func(_ context.Context, orderID string) (domain.Order, error) {
			order := paidFixtureOrder()
			order.ID = orderID
			order.UserID = "user-1"
			return order, nil
		},
	}
	svc := newOrderFixture(t, repo)

	order, err := svc.GetOrder(context.Background(), GetOrderQuery{OrderID: "order-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("GetOrder returned error: %v", err)
	}
	if order.ID != "order-1" || order.OrderNumber != "AJ-10000001" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	repo := &stubOrderRepository{
		findByIDFn: func(context.Context, string) (domain.Order, error) {
			order := paidFixtureOrder()
			order.UserID = "someone-else"
			return order, nil
		},
	}
	svc := newOrderFixture(t, repo)

	if _, err := svc.GetOrder(context.Background(), GetOrderQuery{OrderID: "order-1", UserID: "user-1"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for an ownership mismatch, got %v", err)
	}
}

func TestGetOrderValidatesID(t *testing.T) {
	svc := newOrderFixture(t, &stubOrderRepository{})
	if _, err := svc.GetOrder(context.Background(), GetOrderQuery{OrderID: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetOrderMissing(t *testing.T) {
	repo := &stubOrderRepository{
		findByIDFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, "", nil)
		},
	}
	svc := newOrderFixture(t, repo)

	if _, err := svc.GetOrder(context.Background(), GetOrderQuery{OrderID: "order-x"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListOrdersBuildsFilter(t *testing.T) {
	var captured repositories.OrderListFilter
	repo := &stubOrderRepository{
		listFn: func(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			captured = filter
			return domain.CursorPage[domain.Order]{
				Items:         []domain.Order{paidFixtureOrder()},
				NextPageToken: "cursor-2",
			}, nil
		},
	}
	svc := newOrderFixture(t, repo)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	page, err := svc.ListOrders(context.Background(), ListOrdersQuery{
		UserID:    "user-1",
		From:      &from,
		To:        &to,
		PageSize:  20,
		PageToken: " cursor-1 ",
	})
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}

	if captured.UserID != "user-1" {
		t.Fatalf("unexpected filter user %q", captured.UserID)
	}
	if captured.Pagination.PageSize != 20 || captured.Pagination.PageToken != "cursor-1" {
		t.Fatalf("unexpected pagination %+v", captured.Pagination)
	}
	if captured.DateRange.From == nil || !captured.DateRange.From.Equal(from) {
		t.Fatalf("unexpected date range %+v", captured.DateRange)
	}
	if len(page.Items) != 1 || page.NextPageToken != "cursor-2" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListOrdersRequiresUser(t *testing.T) {
	svc := newOrderFixture(t, &stubOrderRepository{})
	if _, err := svc.ListOrders(context.Background(), ListOrdersQuery{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListOrdersRepositoryFailure(t *testing.T) {
	repo := &stubOrderRepository{
		listFn: func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			return domain.CursorPage[domain.Order]{}, &fakeRepoError{unavailable: true}
		},
	}
	svc := newOrderFixture(t, repo)

	if _, err := svc.ListOrders(context.Background(), ListOrdersQuery{UserID: "user-1"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
