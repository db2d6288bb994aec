package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/platform/httpx"
	"github.com/table-order/api/internal/services"
)

const maxStatusRequestBody = 4 * 1024

// StaffHandlers exposes staff-only order management and sales reporting.
type StaffHandlers struct {
	orders services.OrderService
	sales  services.SalesService
	now    func() time.Time
}

// NewStaffHandlers constructs staff handlers. Authentication is enforced by
// the router group middleware, not here. A nil clock falls back to time.Now.
func NewStaffHandlers(orders services.OrderService, sales services.SalesService, now func() time.Time) *StaffHandlers {
	if now == nil {
		now = time.Now
	}
	return &StaffHandlers{orders: orders, sales: sales, now: now}
}

// Routes wires the staff endpoints onto the provided router.
func (h *StaffHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Post("/orders/{orderID}/status", h.updateStatus)
	r.Get("/sales/daily", h.dailySales)
	r.Get("/sales/monthly", h.monthlySales)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type salesReportResponse struct {
	From              string `json:"from"`
	To                string `json:"to"`
	TotalSales        int64  `json:"totalSales"`
	OrderCount        int64  `json:"orderCount"`
	AverageOrderValue int64  `json:"averageOrderValue"`
}

func (h *StaffHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var filter *domain.OrderStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		filter = &status
	}

	rawFrom := strings.TrimSpace(r.URL.Query().Get("from"))
	rawTo := strings.TrimSpace(r.URL.Query().Get("to"))

	var orders []domain.Order
	var err error
	switch {
	case rawFrom == "" && rawTo == "":
		orders, err = h.orders.List(ctx, filter)
	case filter != nil:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status and date range filters cannot be combined", http.StatusBadRequest))
		return
	case rawFrom == "" || rawTo == "":
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from and to must be supplied together", http.StatusBadRequest))
		return
	default:
		from, parseErr := time.Parse("2006-01-02", rawFrom)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be YYYY-MM-DD", http.StatusBadRequest))
			return
		}
		to, parseErr := time.Parse("2006-01-02", rawTo)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be YYYY-MM-DD", http.StatusBadRequest))
			return
		}
		// Both bounds name calendar days; the end day is included.
		orders, err = h.orders.ListBetween(ctx, from, to.AddDate(0, 0, 1))
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderResponseFrom(order, nil))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *StaffHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
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

	body, err := readLimitedBody(r, maxStatusRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req updateStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	target, err := domain.ParseOrderStatus(strings.TrimSpace(req.Status))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		Target:  target,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponseFrom(order, nil))
}

func (h *StaffHandlers) dailySales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sales == nil {
		httpx.WriteError(ctx, w, httpx.NewError("sales_unavailable", "sales service unavailable", http.StatusServiceUnavailable))
		return
	}

	day := h.now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "date must be YYYY-MM-DD", http.StatusBadRequest))
			return
		}
		day = parsed
	}

	report, err := h.sales.DailyTotals(ctx, day)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, salesReportFrom(report))
}

func (h *StaffHandlers) monthlySales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sales == nil {
		httpx.WriteError(ctx, w, httpx.NewError("sales_unavailable", "sales service unavailable", http.StatusServiceUnavailable))
		return
	}

	now := h.now().UTC()
	year, month := now.Year(), int(now.Month())

	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2200 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "year must be a four digit number", http.StatusBadRequest))
			return
		}
		year = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "month must be between 1 and 12", http.StatusBadRequest))
			return
		}
		month = parsed
	}

	report, err := h.sales.MonthlyTotals(ctx, year, time.Month(month))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, salesReportFrom(report))
}

func salesReportFrom(report services.SalesReport) salesReportResponse {
	return salesReportResponse{
		From:              formatTime(report.From),
		To:                formatTime(report.To),
		TotalSales:        report.Summary.TotalSales,
		OrderCount:        report.Summary.OrderCount,
		AverageOrderValue: report.Summary.AverageOrderValue(),
	}
}
