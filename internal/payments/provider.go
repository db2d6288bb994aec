package payments

import (
	"context"
	"errors"
	"time"
)

// ErrGatewayUnavailable indicates the payment provider rejected or failed the
// request. Orders stay pending when session creation fails so staff can retry.
var ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

// ErrInvalidSignature indicates a webhook payload whose signature did not
// verify against the shared endpoint secret.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// CheckoutSessionRequest describes a hosted checkout session for one order.
// Amount is the order total in yen.
type CheckoutSessionRequest struct {
	OrderID        int64
	TableNumber    string
	Amount         int64
	CustomerName   string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// CheckoutSession is the provider's handle for a created session.
type CheckoutSession struct {
	ID          string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
}

// Provider creates hosted checkout sessions with the payment gateway.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}

// CheckoutSessionEvent carries the order correlation extracted from a
// checkout-session webhook payload. OrderID is zero when the payload carries
// no usable order reference.
type CheckoutSessionEvent struct {
	SessionID       string
	PaymentIntentID string
	OrderID         int64
}

// WebhookEvent is a verified gateway notification.
type WebhookEvent struct {
	ID      string
	Type    string
	Session CheckoutSessionEvent
}

// WebhookVerifier authenticates a raw webhook payload and decodes it into a
// WebhookEvent. Implementations return ErrInvalidSignature when the signature
// header does not match the payload.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (WebhookEvent, error)
}
