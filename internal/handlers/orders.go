package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/platform/httpx"
	"github.com/table-order/api/internal/services"
)

const maxOrderRequestBody = 32 * 1024

// OrderHandlers exposes the customer-facing ordering endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the order endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
}

type createOrderRequest struct {
	TableNumber   string                   `json:"tableNumber"`
	Items         []createOrderRequestItem `json:"items"`
	CustomerName  string                   `json:"customerName"`
	CustomerEmail string                   `json:"customerEmail"`
	Notes         string                   `json:"notes"`
}

type createOrderRequestItem struct {
	MenuItemID int64 `json:"menuItemId"`
	Quantity   int   `json:"quantity"`
}

type createOrderResponse struct {
	OrderID     int64  `json:"orderId"`
	TotalAmount int64  `json:"totalAmount"`
	CheckoutURL string `json:"checkoutUrl"`
}

type orderItemResponse struct {
	MenuItemID int64  `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unitPrice"`
}

type orderResponse struct {
	ID            int64               `json:"id"`
	TableNumber   string              `json:"tableNumber"`
	TotalAmount   int64               `json:"totalAmount"`
	Status        string              `json:"status"`
	CustomerName  *string             `json:"customerName,omitempty"`
	CustomerEmail *string             `json:"customerEmail,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedAt     string              `json:"createdAt"`
	UpdatedAt     string              `json:"updatedAt"`
	PaidAt        *string             `json:"paidAt,omitempty"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	lines := make([]services.OrderLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.OrderLineInput{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		})
	}

	result, err := h.orders.Create(ctx, services.CreateOrderCommand{
		TableNumber:   req.TableNumber,
		Lines:         lines,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
		Origin:        r.Header.Get("Origin"),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, createOrderResponse{
		OrderID:     result.OrderID,
		TotalAmount: result.TotalAmount,
		CheckoutURL: result.CheckoutURL,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id must be a positive integer", http.StatusBadRequest))
		return
	}

	details, err := h.orders.GetDetails(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponseFrom(details.Order, details.Items))
}

func orderResponseFrom(order domain.Order, items []domain.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		TableNumber:   order.TableNumber,
		TotalAmount:   order.TotalAmount,
		Status:        string(order.Status),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Notes:         order.Notes,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
		PaidAt:        formatTimePtr(order.PaidAt),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}
	return resp
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrMenuItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("menu_item_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPaymentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment gateway unavailable", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}
