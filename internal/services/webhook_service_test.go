package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/payments"
)

func newTestWebhookService(t *testing.T, orders *memOrderRepo, verifier *stubVerifier) WebhookService {
	t.Helper()
	svc, err := NewWebhookService(WebhookServiceDeps{
		Orders:   orders,
		Verifier: verifier,
		Clock:    func() time.Time { return time.Date(2025, 5, 10, 12, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new webhook service: %v", err)
	}
	return svc
}

func completedEvent(orderID int64) payments.WebhookEvent {
	return payments.WebhookEvent{
		ID:   "evt_live_1",
		Type: "checkout.session.completed",
		Session: payments.CheckoutSessionEvent{
			SessionID:       "cs_live_1",
			PaymentIntentID: "pi_live_1",
			OrderID:         orderID,
		},
	}
}

func TestHandleEventRejectsBadSignatureWithoutMutation(t *testing.T) {
	orders := newMemOrderRepo()
	orders.put(domain.Order{ID: 1, Status: domain.OrderStatusPending})
	svc := newTestWebhookService(t, orders, &stubVerifier{err: payments.ErrInvalidSignature})

	_, err := svc.HandleEvent(context.Background(), []byte("{}"), "t=1,v1=bad")
	if !errors.Is(err, payments.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}

	if got := orders.get(1).Status; got != domain.OrderStatusPending {
		t.Fatalf("status mutated to %s on bad signature", got)
	}
}

func TestHandleEventAnswersConnectivityProbe(t *testing.T) {
	svc := newTestWebhookService(t, newMemOrderRepo(), &stubVerifier{
		event: payments.WebhookEvent{ID: "evt_test_webhook", Type: "checkout.session.completed"},
	})

	result, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Probe {
		t.Fatal("expected probe result")
	}
}

func TestHandleEventMarksOrderPaid(t *testing.T) {
	orders := newMemOrderRepo()
	orders.put(domain.Order{ID: 7, Status: domain.OrderStatusPending})
	svc := newTestWebhookService(t, orders, &stubVerifier{event: completedEvent(7)})

	result, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.OrderID != 7 {
		t.Fatalf("order id = %d", result.OrderID)
	}

	stored := orders.get(7)
	if stored.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", stored.Status)
	}
	if stored.PaidAt == nil {
		t.Fatal("paid_at not stamped")
	}
	if stored.CheckoutSessionID == nil || *stored.CheckoutSessionID != "cs_live_1" {
		t.Fatalf("session not attached: %+v", stored)
	}
	if stored.PaymentIntentID == nil || *stored.PaymentIntentID != "pi_live_1" {
		t.Fatalf("intent not attached: %+v", stored)
	}
}

func TestHandleEventReplayIsIdempotent(t *testing.T) {
	orders := newMemOrderRepo()
	orders.put(domain.Order{ID: 7, Status: domain.OrderStatusPending})
	svc := newTestWebhookService(t, orders, &stubVerifier{event: completedEvent(7)})

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first := orders.get(7)

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	second := orders.get(7)

	if second.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s", second.Status)
	}
	if first.PaidAt == nil || second.PaidAt == nil || !first.PaidAt.Equal(*second.PaidAt) {
		t.Fatalf("paid_at changed on replay: %v vs %v", first.PaidAt, second.PaidAt)
	}
}

func TestHandleEventConcurrentDeliveriesStampPaidOnce(t *testing.T) {
	orders := newMemOrderRepo()
	orders.put(domain.Order{ID: 7, Status: domain.OrderStatusPending})
	svc := newTestWebhookService(t, orders, &stubVerifier{event: completedEvent(7)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.HandleEvent(context.Background(), []byte("{}"), "sig")
		}()
	}
	wg.Wait()

	stored := orders.get(7)
	if stored.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.PaidAt == nil {
		t.Fatal("paid_at not stamped")
	}
}

func TestHandleEventAcknowledgesUnrelatedTypes(t *testing.T) {
	orders := newMemOrderRepo()
	orders.put(domain.Order{ID: 7, Status: domain.OrderStatusPending})
	svc := newTestWebhookService(t, orders, &stubVerifier{
		event: payments.WebhookEvent{ID: "evt_live_2", Type: "payment_intent.succeeded"},
	})

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := orders.get(7).Status; got != domain.OrderStatusPending {
		t.Fatalf("status mutated to %s", got)
	}
}

func TestHandleEventAcknowledgesMissingOrderReference(t *testing.T) {
	svc := newTestWebhookService(t, newMemOrderRepo(), &stubVerifier{event: completedEvent(0)})

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("missing reference should be acknowledged, got %v", err)
	}
}

func TestHandleEventAcknowledgesUnknownOrder(t *testing.T) {
	svc := newTestWebhookService(t, newMemOrderRepo(), &stubVerifier{event: completedEvent(404)})

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unknown order should be acknowledged, got %v", err)
	}
}

func TestHandleEventSurfacesStoreOutage(t *testing.T) {
	orders := newMemOrderRepo()
	orders.put(domain.Order{ID: 7, Status: domain.OrderStatusPending})
	orders.down = true
	svc := newTestWebhookService(t, orders, &stubVerifier{event: completedEvent(7)})

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err == nil {
		t.Fatal("store outage must surface so the gateway retries")
	}
}

func TestHandleEventAcknowledgesConflictingSession(t *testing.T) {
	orders := newMemOrderRepo()
	existing := "cs_other"
	orders.put(domain.Order{ID: 7, Status: domain.OrderStatusPending, CheckoutSessionID: &existing})
	svc := newTestWebhookService(t, orders, &stubVerifier{event: completedEvent(7)})

	if _, err := svc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("conflicting session should be acknowledged, got %v", err)
	}

	stored := orders.get(7)
	if stored.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", stored.Status)
	}
	if *stored.CheckoutSessionID != "cs_other" {
		t.Fatalf("original session overwritten: %s", *stored.CheckoutSessionID)
	}
}
