package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBookingRejected is returned when the courier API refuses the booking.
var ErrBookingRejected = errors.New("courier: booking rejected")

// Logger mirrors the service-layer logging callback contract.
type Logger func(ctx context.Context, event string, fields map[string]any)

// ShipmentRequest is the typed booking payload sent to the courier API.
type ShipmentRequest struct {
	OrderRef     string
	CustomerName string
	Phone        string
	Address      string
	City         string
	Pieces       int
	CODAmount    int64
	OrderDetail  string
}

// ShipmentResult captures the booking outcome stored on the order.
type ShipmentResult struct {
	TrackingNumber string
	Status         string
	BookedAt       time.Time
}

// Config wires the HTTP courier client.
type Config struct {
	BaseURL    string
	APIKey     string
	Name       string
	HTTPClient *http.Client
	Logger     Logger
	Clock      func() time.Time
}

// Client books shipments against the courier's HTTP JSON API.
type Client struct {
	baseURL string
	apiKey  string
	name    string
	http    *http.Client
	logger  Logger
	clock   func() time.Time
}

// NewClient validates the configuration and applies defaults.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("courier: base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("courier: api key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "courier"
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		name:    name,
		http:    httpClient,
		logger:  logger,
		clock:   clock,
	}, nil
}

// Name identifies the courier for order tracking records.
func (c *Client) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

type bookingPayload struct {
	OrderRef     string `json:"orderRefNumber"`
	CustomerName string `json:"consigneeName"`
	Phone        string `json:"consigneePhone"`
	Address      string `json:"consigneeAddress"`
	City         string `json:"destinationCity"`
	Pieces       int    `json:"pieces"`
	CODAmount    int64  `json:"codAmount"`
	OrderDetail  string `json:"productDetail"`
}

type bookingResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"bookingStatus"`
	BookingDate    string `json:"bookingDate"`
	Message        string `json:"message"`
}

// CreateShipment books the parcel and returns the tracking assignment. The
// caller owns idempotency; the client performs a single attempt.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (ShipmentResult, error) {
	if c == nil {
		return ShipmentResult{}, errors.New("courier: client is nil")
	}
	if strings.TrimSpace(req.OrderRef) == "" {
		return ShipmentResult{}, errors.New("courier: order ref is required")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return ShipmentResult{}, errors.New("courier: customer name is required")
	}
	if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.City) == "" {
		return ShipmentResult{}, errors.New("courier: destination address and city are required")
	}
	if req.Pieces <= 0 {
		req.Pieces = 1
	}

	payload := bookingPayload{
		OrderRef:     strings.TrimSpace(req.OrderRef),
		CustomerName: strings.TrimSpace(req.CustomerName),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		Pieces:       req.Pieces,
		CODAmount:    req.CODAmount,
		OrderDetail:  strings.TrimSpace(req.OrderDetail),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ShipmentResult{}, fmt.Errorf("courier: encode booking: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewReader(body))
	if err != nil {
		return ShipmentResult{}, fmt.Errorf("courier: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ShipmentResult{}, fmt.Errorf("courier: create shipment: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure bookingResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&failure)
		c.logger(ctx, "courier.booking.rejected", map[string]any{
			"orderRef": payload.OrderRef,
			"status":   resp.StatusCode,
			"message":  failure.Message,
		})
		return ShipmentResult{}, fmt.Errorf("%w: status %d", ErrBookingRejected, resp.StatusCode)
	}

	var decoded bookingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&decoded); err != nil {
		return ShipmentResult{}, fmt.Errorf("courier: decode booking response: %w", err)
	}
	if strings.TrimSpace(decoded.TrackingNumber) == "" {
		return ShipmentResult{}, fmt.Errorf("%w: missing tracking number", ErrBookingRejected)
	}

	bookedAt := c.clock().UTC()
	if raw := strings.TrimSpace(decoded.BookingDate); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			bookedAt = parsed.UTC()
		}
	}
	status := strings.TrimSpace(decoded.Status)
	if status == "" {
		status = "booked"
	}

	c.logger(ctx, "courier.booking.created", map[string]any{
		"orderRef": payload.OrderRef,
		"tracking": decoded.TrackingNumber,
		"status":   status,
	})

	return ShipmentResult{
		TrackingNumber: strings.TrimSpace(decoded.TrackingNumber),
		Status:         status,
		BookedAt:       bookedAt,
	}, nil
}
