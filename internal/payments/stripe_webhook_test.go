package payments

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78/webhook"
)

const webhookTestSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, at time.Time) string {
	t.Helper()
	signature := webhook.ComputeSignature(at, payload, webhookTestSecret)
	return fmt.Sprintf("t=%d,v1=%x", at.Unix(), signature)
}

func TestNewStripeWebhookVerifierRequiresSecret(t *testing.T) {
	if _, err := NewStripeWebhookVerifier("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestVerifyAndParseCompletedSession(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"payment_intent": {"id": "pi_test_1"},
				"metadata": {"orderId": "ord_01HX", "orderNumber": "AJ-10000001"}
			}
		}
	}`)
	verifier, err := NewStripeWebhookVerifier(webhookTestSecret)
	if err != nil {
		t.Fatalf("NewStripeWebhookVerifier: %v", err)
	}

	event, err := verifier.VerifyAndParse(payload, signedHeader(t, payload, time.Now()))
	if err != nil {
		t.Fatalf("VerifyAndParse returned error: %v", err)
	}
	if event.ID != "evt_1" || event.Provider != "stripe" {
		t.Fatalf("unexpected event identity %+v", event)
	}
	if event.Type != CheckoutSessionCompleted {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.SessionID != "cs_test_1" || event.PaymentIntentID != "pi_test_1" {
		t.Fatalf("unexpected session references %+v", event)
	}
	if event.Metadata["orderId"] != "ord_01HX" {
		t.Fatalf("unexpected metadata %v", event.Metadata)
	}
}

func TestVerifyAndParseOtherEventTypes(t *testing.T) {
	payload := []byte(`{"id": "evt_2", "type": "payment_intent.created", "data": {"object": {}}}`)
	verifier, err := NewStripeWebhookVerifier(webhookTestSecret)
	if err != nil {
		t.Fatalf("NewStripeWebhookVerifier: %v", err)
	}

	event, err := verifier.VerifyAndParse(payload, signedHeader(t, payload, time.Now()))
	if err != nil {
		t.Fatalf("VerifyAndParse returned error: %v", err)
	}
	if event.Type != "payment_intent.created" {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.SessionID != "" {
		t.Fatalf("expected no session reference for ignored type, got %q", event.SessionID)
	}
}

func TestVerifyAndParseRejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id": "evt_3", "type": "checkout.session.completed", "data": {"object": {}}}`)
	verifier, err := NewStripeWebhookVerifier(webhookTestSecret)
	if err != nil {
		t.Fatalf("NewStripeWebhookVerifier: %v", err)
	}

	if _, err := verifier.VerifyAndParse(payload, "t=1,v1=deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyAndParseRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"id": "evt_4", "type": "checkout.session.completed", "data": {"object": {}}}`)
	verifier, err := NewStripeWebhookVerifier(webhookTestSecret)
	if err != nil {
		t.Fatalf("NewStripeWebhookVerifier: %v", err)
	}

	header := signedHeader(t, payload, time.Now())
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = ' '

	if _, err := verifier.VerifyAndParse(tampered, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
