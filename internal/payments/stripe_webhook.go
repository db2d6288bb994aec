package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// DefaultWebhookTolerance bounds how old a signed webhook timestamp may be.
const DefaultWebhookTolerance = 5 * time.Minute

// StripeWebhookVerifier validates Stripe webhook signatures and extracts the
// order correlation from checkout session payloads.
type StripeWebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewStripeWebhookVerifier constructs a verifier for the given endpoint secret.
func NewStripeWebhookVerifier(secret string, tolerance time.Duration) (*StripeWebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}
	return &StripeWebhookVerifier{secret: secret, tolerance: tolerance}, nil
}

// Verify implements the WebhookVerifier interface.
func (v *StripeWebhookVerifier) Verify(payload []byte, signatureHeader string) (WebhookEvent, error) {
	event, err := webhook.ConstructEventWithTolerance(payload, signatureHeader, v.secret, v.tolerance)
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if strings.HasPrefix(out.Type, "checkout.session.") {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode checkout session payload: %w", err)
		}
		out.Session = sessionEventFrom(&session)
	}

	return out, nil
}

func sessionEventFrom(session *stripe.CheckoutSession) CheckoutSessionEvent {
	evt := CheckoutSessionEvent{SessionID: session.ID}
	if session.PaymentIntent != nil {
		evt.PaymentIntentID = session.PaymentIntent.ID
	}

	ref := session.Metadata["order_id"]
	if ref == "" {
		ref = session.ClientReferenceID
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64); err == nil {
		evt.OrderID = id
	}

	return evt
}
