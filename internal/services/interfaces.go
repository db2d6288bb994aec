package services

import (
	"context"
	"errors"
	"time"

	"github.com/table-order/api/internal/domain"
)

// Sentinel errors exposed by the service layer. Handlers map these onto HTTP
// status codes; repositories and gateways never leak driver errors past here.
var (
	ErrOrderInvalidInput      = errors.New("order input is invalid")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderInvalidTransition = errors.New("order status transition not allowed")
	ErrOrderConflict          = errors.New("order payment reference conflict")
	ErrMenuItemNotFound       = errors.New("menu item not found or unavailable")
	ErrPaymentUnavailable     = errors.New("payment gateway unavailable")
)

// OrderLineInput is one requested line in a new order. Prices are resolved
// server-side; clients only name the item and quantity.
type OrderLineInput struct {
	MenuItemID int64
	Quantity   int
}

// CreateOrderCommand carries everything needed to open an order and start its
// checkout session. Origin is the browser origin used to build the success
// and cancel redirect URLs.
type CreateOrderCommand struct {
	TableNumber   string
	Lines         []OrderLineInput
	CustomerName  string
	CustomerEmail string
	Notes         string
	Origin        string
}

// CreateOrderResult is returned to the ordering client once the order is
// persisted and its checkout session exists.
type CreateOrderResult struct {
	OrderID     int64
	TotalAmount int64
	CheckoutURL string
}

// OrderDetails bundles an order with its line items.
type OrderDetails struct {
	Order domain.Order
	Items []domain.OrderItem
}

// UpdateOrderStatusCommand is a staff-initiated status change.
type UpdateOrderStatusCommand struct {
	OrderID int64
	Target  domain.OrderStatus
}

// OrderService is the customer- and staff-facing order API.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error)
	GetDetails(ctx context.Context, orderID int64) (OrderDetails, error)
	List(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error)
}

// WebhookResult reports how an incoming gateway event was handled. Probe is
// set for test-probe events that only confirm endpoint connectivity.
type WebhookResult struct {
	Probe   bool
	OrderID int64
}

// WebhookService reconciles verified gateway events into order state.
type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (WebhookResult, error)
}

// SalesService produces revenue reports for staff.
type SalesService interface {
	DailyTotals(ctx context.Context, day time.Time) (SalesReport, error)
	MonthlyTotals(ctx context.Context, year int, month time.Month) (SalesReport, error)
}

// SalesReport is a sales summary with its reporting window attached.
type SalesReport struct {
	From    time.Time
	To      time.Time
	Summary domain.SalesSummary
}

// CatalogService exposes the menu to ordering clients.
type CatalogService interface {
	Categories(ctx context.Context) ([]domain.MenuCategory, error)
	Items(ctx context.Context) ([]domain.MenuItem, error)
	ItemsByCategory(ctx context.Context, categoryID int64) ([]domain.MenuItem, error)
}
