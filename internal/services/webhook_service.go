package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/payments"
	"github.com/table-order/api/internal/repositories"
)

// probeEventPrefix marks gateway test deliveries that only verify the
// endpoint is reachable and correctly configured.
const probeEventPrefix = "evt_test_"

// WebhookServiceDeps lists the collaborators of the webhook service.
type WebhookServiceDeps struct {
	Orders   repositories.OrderRepository
	Verifier payments.WebhookVerifier
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type webhookService struct {
	orders   repositories.OrderRepository
	verifier payments.WebhookVerifier
	clock    func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewWebhookService wires a WebhookService from its dependencies.
func NewWebhookService(deps WebhookServiceDeps) (WebhookService, error) {
	if deps.Orders == nil {
		return nil, errors.New("webhook service: order repository is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("webhook service: verifier is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &webhookService{
		orders:   deps.Orders,
		verifier: deps.Verifier,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// HandleEvent verifies and reconciles one gateway notification. Events that
// cannot be resolved by redelivery (unknown types, missing order references,
// forbidden transitions) are acknowledged so the gateway stops retrying; only
// store outages surface as errors and trigger a retry.
func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (WebhookResult, error) {
	event, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		return WebhookResult{}, err
	}

	if strings.HasPrefix(event.ID, probeEventPrefix) {
		s.logger(ctx, "webhooks.probe", map[string]any{"eventId": event.ID})
		return WebhookResult{Probe: true}, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.reconcileCompletedSession(ctx, event)
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		s.logger(ctx, "webhooks.payment_intent", map[string]any{
			"eventId": event.ID,
			"type":    event.Type,
		})
		return WebhookResult{}, nil
	default:
		s.logger(ctx, "webhooks.ignored", map[string]any{
			"eventId": event.ID,
			"type":    event.Type,
		})
		return WebhookResult{}, nil
	}
}

func (s *webhookService) reconcileCompletedSession(ctx context.Context, event payments.WebhookEvent) (WebhookResult, error) {
	orderID := event.Session.OrderID
	if orderID <= 0 {
		s.logger(ctx, "webhooks.missing_order_reference", map[string]any{
			"eventId":   event.ID,
			"sessionId": event.Session.SessionID,
		})
		return WebhookResult{}, nil
	}

	order, err := s.orders.Transition(ctx, orderID, domain.OrderStatusPaid, s.clock())
	if err != nil {
		switch {
		case repositories.IsNotFound(err):
			s.logger(ctx, "webhooks.order_not_found", map[string]any{
				"eventId": event.ID,
				"orderId": orderID,
			})
			return WebhookResult{OrderID: orderID}, nil
		case repositories.IsInvalidTransition(err):
			s.logger(ctx, "webhooks.transition_rejected", map[string]any{
				"eventId": event.ID,
				"orderId": orderID,
			})
			return WebhookResult{OrderID: orderID}, nil
		default:
			return WebhookResult{}, err
		}
	}

	if sessionID := event.Session.SessionID; sessionID != "" {
		if err := s.attach(ctx, event, orderID, "session", func() error {
			return s.orders.AttachCheckoutSession(ctx, orderID, sessionID)
		}); err != nil {
			return WebhookResult{}, err
		}
	}
	if intentID := event.Session.PaymentIntentID; intentID != "" {
		if err := s.attach(ctx, event, orderID, "payment_intent", func() error {
			return s.orders.AttachPaymentIntent(ctx, orderID, intentID)
		}); err != nil {
			return WebhookResult{}, err
		}
	}

	s.logger(ctx, "webhooks.order_paid", map[string]any{
		"eventId": event.ID,
		"orderId": order.ID,
		"status":  string(order.Status),
	})

	return WebhookResult{OrderID: orderID}, nil
}

// attach records a payment reference. A conflicting reference is logged and
// acknowledged; redelivering the event cannot fix it.
func (s *webhookService) attach(ctx context.Context, event payments.WebhookEvent, orderID int64, kind string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if repositories.IsConflict(err) || repositories.IsNotFound(err) {
		s.logger(ctx, "webhooks.attach_conflict", map[string]any{
			"eventId": event.ID,
			"orderId": orderID,
			"kind":    kind,
		})
		return nil
	}
	return err
}
