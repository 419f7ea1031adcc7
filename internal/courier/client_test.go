package courier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func clientFixture(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: baseURL,
		APIKey:  "key-1",
		Name:    "swiftship",
		Clock:   func() time.Time { return time.Date(2025, 3, 1, 12, 45, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func sampleShipment() ShipmentRequest {
	return ShipmentRequest{
		OrderRef:     "AJ-10000001",
		CustomerName: "Amna Khan",
		Phone:        "0300-1234567",
		Address:      "House 12, Street 4",
		City:         "Lahore",
		CODAmount:    325000,
		OrderDetail:  "2x Zircon Ring",
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "key"}); err == nil {
		t.Fatal("expected error for missing base url")
	}
	if _, err := NewClient(Config{BaseURL: "https://courier.example"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestClientNameFallback(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://courier.example", APIKey: "key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Name() != "courier" {
		t.Fatalf("unexpected default name %q", c.Name())
	}
}

func TestCreateShipmentBooksParcel(t *testing.T) {
	var got bookingPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bookings" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key-1" {
			t.Fatalf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(bookingResponse{
			TrackingNumber: "SS-7781",
			Status:         "booked",
			BookingDate:    "2025-03-01T12:46:10Z",
		})
	}))
	defer srv.Close()

	c := clientFixture(t, srv.URL)

	result, err := c.CreateShipment(context.Background(), sampleShipment())
	if err != nil {
		t.Fatalf("CreateShipment returned error: %v", err)
	}
	if result.TrackingNumber != "SS-7781" || result.Status != "booked" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.BookedAt.Equal(time.Date(2025, 3, 1, 12, 46, 10, 0, time.UTC)) {
		t.Fatalf("expected booking date from response, got %v", result.BookedAt)
	}
	if got.OrderRef != "AJ-10000001" || got.City != "Lahore" || got.CODAmount != 325000 {
		t.Fatalf("unexpected booking payload %+v", got)
	}
	if got.Pieces != 1 {
		t.Fatalf("expected pieces to default to 1, got %d", got.Pieces)
	}
}

func TestCreateShipmentFallsBackToClock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(bookingResponse{TrackingNumber: "SS-7782", BookingDate: "not-a-date"})
	}))
	defer srv.Close()

	c := clientFixture(t, srv.URL)

	result, err := c.CreateShipment(context.Background(), sampleShipment())
	if err != nil {
		t.Fatalf("CreateShipment returned error: %v", err)
	}
	if !result.BookedAt.Equal(time.Date(2025, 3, 1, 12, 45, 0, 0, time.UTC)) {
		t.Fatalf("expected clock fallback, got %v", result.BookedAt)
	}
	if result.Status != "booked" {
		t.Fatalf("expected default status, got %q", result.Status)
	}
}

func TestCreateShipmentRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(bookingResponse{Message: "city not served"})
	}))
	defer srv.Close()

	c := clientFixture(t, srv.URL)

	if _, err := c.CreateShipment(context.Background(), sampleShipment()); !errors.Is(err, ErrBookingRejected) {
		t.Fatalf("expected ErrBookingRejected, got %v", err)
	}
}

func TestCreateShipmentMissingTrackingNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(bookingResponse{Status: "booked"})
	}))
	defer srv.Close()

	c := clientFixture(t, srv.URL)

	if _, err := c.CreateShipment(context.Background(), sampleShipment()); !errors.Is(err, ErrBookingRejected) {
		t.Fatalf("expected ErrBookingRejected, got %v", err)
	}
}

func TestCreateShipmentValidatesRequest(t *testing.T) {
	c := clientFixture(t, "https://courier.example")

	cases := []struct {
		name   string
		mutate func(*ShipmentRequest)
	}{
		{"missing order ref", func(r *ShipmentRequest) { r.OrderRef = "" }},
		{"missing customer", func(r *ShipmentRequest) { r.CustomerName = "" }},
		{"missing address", func(r *ShipmentRequest) { r.Address = "" }},
		{"missing city", func(r *ShipmentRequest) { r.City = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleShipment()
			tc.mutate(&req)
			if _, err := c.CreateShipment(context.Background(), req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
