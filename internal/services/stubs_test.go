package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/payments"
	"github.com/table-order/api/internal/repositories"
)

// memOrderRepo mimics the conditional-update semantics of the Postgres order
// repository, including idempotent paid replays and single-assignment payment
// references.
type memOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]domain.Order
	items  map[int64][]domain.OrderItem
	down   bool
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[int64]domain.Order),
		items:  make(map[int64][]domain.OrderItem),
	}
}

func (m *memOrderRepo) unavailable(op string) error {
	return repositories.NewError(repositories.KindUnavailable, op, errors.New("store down"))
}

func (m *memOrderRepo) Create(_ context.Context, create repositories.OrderCreate) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return domain.Order{}, m.unavailable("orders.create")
	}

	m.nextID++
	now := time.Now().UTC()
	order := domain.Order{
		ID:            m.nextID,
		TableNumber:   create.TableNumber,
		TotalAmount:   create.TotalAmount,
		Status:        domain.OrderStatusPending,
		CustomerName:  create.CustomerName,
		CustomerEmail: create.CustomerEmail,
		Notes:         create.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.orders[order.ID] = order

	items := make([]domain.OrderItem, 0, len(create.Lines))
	for i, line := range create.Lines {
		items = append(items, domain.OrderItem{
			ID:         int64(i + 1),
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			CreatedAt:  now,
		})
	}
	m.items[order.ID] = items

	return order, nil
}

func (m *memOrderRepo) FindByID(_ context.Context, orderID int64) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return domain.Order{}, m.unavailable("orders.find")
	}
	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewError(repositories.KindNotFound, "orders.find",
			fmt.Errorf("order %d", orderID))
	}
	return order, nil
}

func (m *memOrderRepo) ListAll(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return nil, m.unavailable("orders.list")
	}
	out := make([]domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		out = append(out, order)
	}
	return out, nil
}

func (m *memOrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return nil, m.unavailable("orders.list_by_status")
	}
	out := make([]domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		if order.Status == status {
			out = append(out, order)
		}
	}
	return out, nil
}

func (m *memOrderRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return nil, m.unavailable("orders.list_by_date_range")
	}
	out := make([]domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		if order.CreatedAt.Before(from) || !order.CreatedAt.Before(to) {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrderRepo) ListItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return nil, m.unavailable("orders.list_items")
	}
	return m.items[orderID], nil
}

func (m *memOrderRepo) Transition(_ context.Context, orderID int64, target domain.OrderStatus, occurredAt time.Time) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return domain.Order{}, m.unavailable("orders.transition")
	}

	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewError(repositories.KindNotFound, "orders.transition",
			fmt.Errorf("order %d", orderID))
	}

	if !order.Status.CanTransitionTo(target) {
		if target == domain.OrderStatusPaid && order.Status.AtLeastPaid() {
			return order, nil
		}
		return domain.Order{}, repositories.NewError(repositories.KindInvalidTransition, "orders.transition",
			fmt.Errorf("from %q to %q", order.Status, target))
	}

	order.Status = target
	order.UpdatedAt = occurredAt
	if target == domain.OrderStatusPaid && order.PaidAt == nil {
		ts := occurredAt
		order.PaidAt = &ts
	}
	m.orders[orderID] = order
	return order, nil
}

func (m *memOrderRepo) AttachCheckoutSession(_ context.Context, orderID int64, sessionID string) error {
	return m.attach(orderID, sessionID, func(order *domain.Order) **string { return &order.CheckoutSessionID })
}

func (m *memOrderRepo) AttachPaymentIntent(_ context.Context, orderID int64, paymentIntentID string) error {
	return m.attach(orderID, paymentIntentID, func(order *domain.Order) **string { return &order.PaymentIntentID })
}

func (m *memOrderRepo) attach(orderID int64, value string, field func(*domain.Order) **string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return m.unavailable("orders.attach")
	}

	order, ok := m.orders[orderID]
	if !ok {
		return repositories.NewError(repositories.KindNotFound, "orders.attach",
			fmt.Errorf("order %d", orderID))
	}

	slot := field(&order)
	if *slot != nil && **slot != value {
		return repositories.NewError(repositories.KindConflict, "orders.attach",
			fmt.Errorf("order %d already assigned", orderID))
	}
	*slot = &value
	m.orders[orderID] = order
	return nil
}

func (m *memOrderRepo) SalesBetween(_ context.Context, from, to time.Time) (domain.SalesSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return domain.SalesSummary{}, m.unavailable("orders.sales_between")
	}

	var summary domain.SalesSummary
	for _, order := range m.orders {
		if !order.Status.AtLeastPaid() {
			continue
		}
		if order.CreatedAt.Before(from) || !order.CreatedAt.Before(to) {
			continue
		}
		summary.TotalSales += order.TotalAmount
		summary.OrderCount++
	}
	return summary, nil
}

func (m *memOrderRepo) get(orderID int64) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderID]
}

func (m *memOrderRepo) put(order domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID > m.nextID {
		m.nextID = order.ID
	}
	m.orders[order.ID] = order
}

type memMenuRepo struct {
	categories []domain.MenuCategory
	items      []domain.MenuItem
	err        error
}

func (m *memMenuRepo) ListCategories(context.Context) ([]domain.MenuCategory, error) {
	return m.categories, m.err
}

func (m *memMenuRepo) ListAvailableItems(context.Context) ([]domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.MenuItem, 0, len(m.items))
	for _, item := range m.items {
		if item.Available {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memMenuRepo) ListItemsByCategory(_ context.Context, categoryID int64) ([]domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.MenuItem, 0, len(m.items))
	for _, item := range m.items {
		if item.Available && item.CategoryID == categoryID {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubPaymentProvider struct {
	session  payments.CheckoutSession
	err      error
	requests []payments.CheckoutSessionRequest
}

func (p *stubPaymentProvider) CreateCheckoutSession(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return payments.CheckoutSession{}, p.err
	}
	return p.session, nil
}

type stubVerifier struct {
	event payments.WebhookEvent
	err   error
}

func (v *stubVerifier) Verify([]byte, string) (payments.WebhookEvent, error) {
	if v.err != nil {
		return payments.WebhookEvent{}, v.err
	}
	return v.event, nil
}

func testMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: 1, CategoryID: 1, Name: "枝豆", UnitPrice: 480, Available: true},
		{ID: 2, CategoryID: 1, Name: "唐揚げ", UnitPrice: 980, Available: true},
		{ID: 3, CategoryID: 2, Name: "生ビール", UnitPrice: 550, Available: false},
	}
}
