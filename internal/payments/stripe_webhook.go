package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// CheckoutSessionCompleted is the only event type the completion workflow acts on.
const CheckoutSessionCompleted = "checkout.session.completed"

// StripeWebhookVerifier validates Stripe webhook signatures and projects the
// event into the typed WebhookEvent used by the payment service.
type StripeWebhookVerifier struct {
	secret string
}

var _ WebhookVerifier = (*StripeWebhookVerifier)(nil)

// NewStripeWebhookVerifier constructs a verifier bound to the endpoint secret.
func NewStripeWebhookVerifier(secret string) (*StripeWebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}
	return &StripeWebhookVerifier{secret: secret}, nil
}

// VerifyAndParse checks the signature on the raw payload and extracts the
// session references for completed-checkout events. Events of other types are
// returned with their id and type only.
func (v *StripeWebhookVerifier) VerifyAndParse(payload []byte, signatureHeader string) (WebhookEvent, error) {
	if v == nil {
		return WebhookEvent{}, errors.New("stripe: webhook verifier is nil")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := WebhookEvent{
		ID:       event.ID,
		Provider: "stripe",
		Type:     string(event.Type),
	}
	if out.Type != CheckoutSessionCompleted {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: decode checkout session payload: %w", err)
	}
	out.SessionID = session.ID
	if session.PaymentIntent != nil {
		out.PaymentIntentID = session.PaymentIntent.ID
	}
	if len(session.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(session.Metadata))
		for k, val := range session.Metadata {
			out.Metadata[k] = val
		}
	}
	return out, nil
}
