package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/table-order/api/internal/payments"
	"github.com/table-order/api/internal/platform/httpx"
	"github.com/table-order/api/internal/services"
)

// Stripe caps event payloads well below this; anything larger is hostile.
const maxWebhookBody = 256 * 1024

// WebhookHandlers receives payment gateway notifications.
type WebhookHandlers struct {
	webhooks services.WebhookService
}

// NewWebhookHandlers constructs webhook handlers.
func NewWebhookHandlers(webhooks services.WebhookService) *WebhookHandlers {
	return &WebhookHandlers{webhooks: webhooks}
}

// Routes wires the webhook endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripe)
}

func (h *WebhookHandlers) handleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.webhooks == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhooks_unavailable", "webhook service unavailable", http.StatusServiceUnavailable))
		return
	}

	signature := strings.TrimSpace(r.Header.Get("Stripe-Signature"))
	if signature == "" {
		httpx.WriteError(ctx, w, httpx.NewError("missing_signature", "Stripe-Signature header is required", http.StatusBadRequest))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}
	if int64(len(payload)) > maxWebhookBody {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payload too large", http.StatusRequestEntityTooLarge))
		return
	}

	result, err := h.webhooks.HandleEvent(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("webhook_failed", "unable to process webhook event", http.StatusInternalServerError))
		return
	}

	if result.Probe {
		writeJSONResponse(w, http.StatusOK, map[string]any{"verified": true})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"received": true})
}
