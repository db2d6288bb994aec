package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/payments"
	"github.com/table-order/api/internal/repositories"
)

// OrderServiceDeps lists the collaborators of the order service.
type OrderServiceDeps struct {
	Orders       repositories.OrderRepository
	Menu         repositories.MenuRepository
	Payments     payments.Provider
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
	PublicOrigin string
}

type orderService struct {
	orders   repositories.OrderRepository
	menu     repositories.MenuRepository
	payments payments.Provider
	clock    func() time.Time
	newID    func() string
	logger   func(ctx context.Context, event string, fields map[string]any)
	origin   string
}

// NewOrderService wires an OrderService from its dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Menu == nil {
		return nil, errors.New("order service: menu repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("order service: payment provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		return nil, errors.New("order service: id generator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		menu:     deps.Menu,
		payments: deps.Payments,
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
		origin:   strings.TrimRight(strings.TrimSpace(deps.PublicOrigin), "/"),
	}, nil
}

// Create validates the request, snapshots current menu prices, persists the
// order and opens a hosted checkout session for it. The order is created
// before the gateway call, so a gateway failure leaves a pending order that
// can be retried or cancelled by staff.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	tableNumber := strings.TrimSpace(cmd.TableNumber)
	if tableNumber == "" {
		return CreateOrderResult{}, fmt.Errorf("%w: table number is required", ErrOrderInvalidInput)
	}
	if err := validateEmail(cmd.CustomerEmail); err != nil {
		return CreateOrderResult{}, err
	}

	menu, err := s.menu.ListAvailableItems(ctx)
	if err != nil {
		return CreateOrderResult{}, mapRepositoryError(err)
	}

	quote, err := QuoteOrder(menu, cmd.Lines)
	if err != nil {
		return CreateOrderResult{}, err
	}

	order, err := s.orders.Create(ctx, repositories.OrderCreate{
		TableNumber:   tableNumber,
		TotalAmount:   quote.Total,
		CustomerName:  optionalString(cmd.CustomerName),
		CustomerEmail: optionalString(cmd.CustomerEmail),
		Notes:         optionalString(cmd.Notes),
		Lines:         quote.Lines,
	})
	if err != nil {
		return CreateOrderResult{}, mapRepositoryError(err)
	}

	s.logger(ctx, "orders.created", map[string]any{
		"orderId":     order.ID,
		"tableNumber": tableNumber,
		"totalAmount": quote.Total,
	})

	origin := s.resolveOrigin(cmd.Origin)
	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:        order.ID,
		TableNumber:    tableNumber,
		Amount:         quote.Total,
		CustomerName:   strings.TrimSpace(cmd.CustomerName),
		CustomerEmail:  strings.TrimSpace(cmd.CustomerEmail),
		SuccessURL:     fmt.Sprintf("%s/payment-success?session_id={CHECKOUT_SESSION_ID}&order_id=%d", origin, order.ID),
		CancelURL:      fmt.Sprintf("%s/payment-cancelled?order_id=%d", origin, order.ID),
		IdempotencyKey: s.newID(),
	})
	if err != nil {
		s.logger(ctx, "orders.checkout_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return CreateOrderResult{}, fmt.Errorf("%w: order %d kept pending", ErrPaymentUnavailable, order.ID)
	}

	if err := s.orders.AttachCheckoutSession(ctx, order.ID, session.ID); err != nil {
		return CreateOrderResult{}, mapRepositoryError(err)
	}

	return CreateOrderResult{
		OrderID:     order.ID,
		TotalAmount: quote.Total,
		CheckoutURL: session.RedirectURL,
	}, nil
}

// GetDetails loads one order with its line items.
func (s *orderService) GetDetails(ctx context.Context, orderID int64) (OrderDetails, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderDetails{}, mapRepositoryError(err)
	}

	items, err := s.orders.ListItems(ctx, orderID)
	if err != nil {
		return OrderDetails{}, mapRepositoryError(err)
	}

	return OrderDetails{Order: order, Items: items}, nil
}

// List returns all orders, optionally filtered to one status.
func (s *orderService) List(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	var (
		orders []domain.Order
		err    error
	)
	if status != nil {
		orders, err = s.orders.ListByStatus(ctx, *status)
	} else {
		orders, err = s.orders.ListAll(ctx)
	}
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return orders, nil
}

// ListBetween returns orders created inside the half-open window [from, to),
// newest first.
func (s *orderService) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: date range end must be after start", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return orders, nil
}

// UpdateStatus applies a staff-driven transition through the state machine.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error) {
	if !cmd.Target.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	order, err := s.orders.Transition(ctx, cmd.OrderID, cmd.Target, s.clock())
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	s.logger(ctx, "orders.status_changed", map[string]any{
		"orderId": order.ID,
		"status":  string(order.Status),
	})

	return order, nil
}

func (s *orderService) resolveOrigin(requestOrigin string) string {
	origin := strings.TrimRight(strings.TrimSpace(requestOrigin), "/")
	if origin == "" {
		return s.origin
	}
	if parsed, err := url.Parse(origin); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return s.origin
	}
	return origin
}

func mapRepositoryError(err error) error {
	switch {
	case repositories.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	case repositories.IsInvalidTransition(err):
		return fmt.Errorf("%w: %v", ErrOrderInvalidTransition, err)
	case repositories.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrOrderConflict, err)
	default:
		return err
	}
}
