package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/services"
)

type stubOrderService struct {
	createResult services.CreateOrderResult
	createErr    error
	lastCreate   services.CreateOrderCommand

	details    services.OrderDetails
	detailsErr error

	listOrders []domain.Order
	listErr    error
	lastFilter *domain.OrderStatus
	lastFrom   time.Time
	lastTo     time.Time

	updated    domain.Order
	updateErr  error
	lastUpdate services.UpdateOrderStatusCommand
}

func (s *stubOrderService) Create(_ context.Context, cmd services.CreateOrderCommand) (services.CreateOrderResult, error) {
	s.lastCreate = cmd
	return s.createResult, s.createErr
}

func (s *stubOrderService) GetDetails(context.Context, int64) (services.OrderDetails, error) {
	return s.details, s.detailsErr
}

func (s *stubOrderService) List(_ context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	s.lastFilter = status
	return s.listOrders, s.listErr
}

func (s *stubOrderService) ListBetween(_ context.Context, from, to time.Time) ([]domain.Order, error) {
	s.lastFrom = from
	s.lastTo = to
	return s.listOrders, s.listErr
}

func (s *stubOrderService) UpdateStatus(_ context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
	s.lastUpdate = cmd
	return s.updated, s.updateErr
}

type stubWebhookService struct {
	result  services.WebhookResult
	err     error
	payload []byte
	header  string
}

func (s *stubWebhookService) HandleEvent(_ context.Context, payload []byte, header string) (services.WebhookResult, error) {
	s.payload = payload
	s.header = header
	return s.result, s.err
}

type stubSalesService struct {
	report services.SalesReport
	err    error

	lastDay   time.Time
	lastYear  int
	lastMonth time.Month
}

func (s *stubSalesService) DailyTotals(_ context.Context, day time.Time) (services.SalesReport, error) {
	s.lastDay = day
	return s.report, s.err
}

func (s *stubSalesService) MonthlyTotals(_ context.Context, year int, month time.Month) (services.SalesReport, error) {
	s.lastYear = year
	s.lastMonth = month
	return s.report, s.err
}

type stubCatalogService struct {
	categories []domain.MenuCategory
	items      []domain.MenuItem
	err        error
}

func (s *stubCatalogService) Categories(context.Context) ([]domain.MenuCategory, error) {
	return s.categories, s.err
}

func (s *stubCatalogService) Items(context.Context) ([]domain.MenuItem, error) {
	return s.items, s.err
}

func (s *stubCatalogService) ItemsByCategory(context.Context, int64) ([]domain.MenuItem, error) {
	return s.items, s.err
}

func serveRoutes(t *testing.T, registrar RouteRegistrar, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	registrar(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
