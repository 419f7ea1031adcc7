package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/auric-jewels/api/internal/domain"
	"github.com/auric-jewels/api/internal/platform/auth"
	"github.com/auric-jewels/api/internal/platform/httpx"
	"github.com/auric-jewels/api/internal/platform/pagination"
	"github.com/auric-jewels/api/internal/services"
)

// OrderHandlers serves the confirmation-page and account order reads.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs order read handlers.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers order endpoints under the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		// Polling an order by id works for guests holding the id from the
		// checkout redirect; listing always needs an identity.
		r.With(h.authn.OptionalFirebaseAuth()).Get("/{orderId}", h.getOrder)
		r.With(h.authn.RequireFirebaseAuth()).Get("/", h.listOrders)
		return
	}
	r.Get("/{orderId}", h.getOrder)
	r.Get("/", h.listOrders)
}

type orderLineItemResponse struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
}

type orderTotalsResponse struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

type orderFlagsResponse struct {
	Paid            bool `json:"paid"`
	ShipmentCreated bool `json:"shipmentCreated"`
	EmailSent       bool `json:"emailSent"`
}

type orderTrackingResponse struct {
	Number   string `json:"number"`
	Status   string `json:"status,omitempty"`
	Courier  string `json:"courier,omitempty"`
	BookedAt string `json:"bookedAt,omitempty"`
}

type orderPromotionResponse struct {
	Code       string `json:"code"`
	PercentOff int    `json:"percentOff"`
}

type orderResponse struct {
	OrderID         string                  `json:"orderId"`
	OrderNumber     string                  `json:"orderNumber"`
	Email           string                  `json:"email"`
	Name            string                  `json:"name,omitempty"`
	Items           []orderLineItemResponse `json:"items"`
	Currency        string                  `json:"currency"`
	Totals          orderTotalsResponse     `json:"totals"`
	PaymentMethod   string                  `json:"paymentMethod"`
	Fulfillment     string                  `json:"fulfillment"`
	Flags           orderFlagsResponse      `json:"flags"`
	Tracking        *orderTrackingResponse  `json:"tracking,omitempty"`
	Promotion       *orderPromotionResponse `json:"promotion,omitempty"`
	GiftMessage     string                  `json:"giftMessage,omitempty"`
	InvoiceURL      string                  `json:"invoiceUrl,omitempty"`
	CreatedAt       string                  `json:"createdAt,omitempty"`
	PaidAt          string                  `json:"paidAt,omitempty"`
	ShippedAt       string                  `json:"shippedAt,omitempty"`
}

type orderListResponse struct {
	Items         []orderResponse `json:"items"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

func buildOrderResponse(order domain.Order) orderResponse {
	items := make([]orderLineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderLineItemResponse{
			ProductID: item.ProductRef,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}

	resp := orderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Email:         order.Contact.Email,
		Name:          order.Contact.Name,
		Items:         items,
		Currency:      order.Currency,
		Totals: orderTotalsResponse{
			Subtotal: order.Totals.Subtotal,
			Discount: order.Totals.Discount,
			Shipping: order.Totals.Shipping,
			Total:    order.Totals.Total,
		},
		PaymentMethod: string(order.PaymentMethod),
		Fulfillment:   string(order.Fulfillment),
		Flags: orderFlagsResponse{
			Paid:            order.Flags.Paid,
			ShipmentCreated: order.Flags.ShipmentCreated,
			EmailSent:       order.Flags.EmailSent,
		},
		GiftMessage: order.GiftMessage,
		InvoiceURL:  order.InvoiceURL,
		CreatedAt:   formatTime(order.CreatedAt),
		PaidAt:      formatTimePtr(order.PaidAt),
		ShippedAt:   formatTimePtr(order.ShippedAt),
	}
	if order.Tracking != nil {
		resp.Tracking = &orderTrackingResponse{
			Number:   order.Tracking.Number,
			Status:   order.Tracking.Status,
			Courier:  order.Tracking.Courier,
			BookedAt: formatTime(order.Tracking.BookedAt),
		}
	}
	if order.Promotion != nil {
		resp.Promotion = &orderPromotionResponse{
			Code:       order.Promotion.Code,
			PercentOff: order.Promotion.PercentOff,
		}
	}
	return resp
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "orderId is required", http.StatusBadRequest))
		return
	}

	query := services.GetOrderQuery{OrderID: orderID}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		query.UserID = identity.UID
	}

	order, err := h.orders.GetOrder(ctx, query)
	if err != nil {
		writeOrderReadError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderResponse(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: 20,
		MaxPageSize:     100,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.ListOrdersQuery{
		UserID:    identity.UID,
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}
	if from, ok, err := parseTimeParam(r, "from"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be RFC 3339", http.StatusBadRequest))
		return
	} else if ok {
		query.From = &from
	}
	if to, ok, err := parseTimeParam(r, "to"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be RFC 3339", http.StatusBadRequest))
		return
	} else if ok {
		query.To = &to
	}

	page, err := h.orders.ListOrders(ctx, query)
	if err != nil {
		writeOrderReadError(ctx, w, err)
		return
	}

	items := make([]orderResponse, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderResponse(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func parseTimeParam(r *http.Request, name string) (time.Time, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, false, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return parsed.UTC(), true, nil
}

func writeOrderReadError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid order query", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("orders_error", "failed to read orders", http.StatusInternalServerError))
	}
}
