package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/table-order/api/internal/repositories"
)

// SalesServiceDeps lists the collaborators of the sales service.
type SalesServiceDeps struct {
	Orders repositories.OrderRepository
}

type salesService struct {
	orders repositories.OrderRepository
}

// NewSalesService wires a SalesService from its dependencies.
func NewSalesService(deps SalesServiceDeps) (SalesService, error) {
	if deps.Orders == nil {
		return nil, errors.New("sales service: order repository is required")
	}
	return &salesService{orders: deps.Orders}, nil
}

// DailyTotals aggregates confirmed sales for the calendar day containing day,
// in day's location.
func (s *salesService) DailyTotals(ctx context.Context, day time.Time) (SalesReport, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	return s.report(ctx, from, to)
}

// MonthlyTotals aggregates confirmed sales for one calendar month in UTC.
func (s *salesService) MonthlyTotals(ctx context.Context, year int, month time.Month) (SalesReport, error) {
	if month < time.January || month > time.December {
		return SalesReport{}, fmt.Errorf("%w: month out of range", ErrOrderInvalidInput)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	return s.report(ctx, from, to)
}

func (s *salesService) report(ctx context.Context, from, to time.Time) (SalesReport, error) {
	summary, err := s.orders.SalesBetween(ctx, from, to)
	if err != nil {
		return SalesReport{}, mapRepositoryError(err)
	}
	return SalesReport{From: from, To: to, Summary: summary}, nil
}
