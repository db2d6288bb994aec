package domain

import (
	"time"
)

// Order is one table's purchase transaction. The monetary total is an
// immutable snapshot computed at creation time in yen (no minor unit).
type Order struct {
	ID                int64
	TableNumber       string
	TotalAmount       int64
	Status            OrderStatus
	CheckoutSessionID *string
	PaymentIntentID   *string
	CustomerName      *string
	CustomerEmail     *string
	Notes             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
}

// OrderItem is a frozen line-item snapshot within an order. Name and unit
// price are copied from the menu at creation so later catalog edits never
// rewrite history.
type OrderItem struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Name       string
	Quantity   int
	UnitPrice  int64
	CreatedAt  time.Time
}

// OrderDraftLine is a priced line produced by the quote step, ready to be
// persisted as an OrderItem.
type OrderDraftLine struct {
	MenuItemID int64
	Name       string
	Quantity   int
	UnitPrice  int64
}

// MenuCategory groups menu items for display.
type MenuCategory struct {
	ID           int64
	Name         string
	NameEn       *string
	DisplayOrder int
	CreatedAt    time.Time
}

// MenuItem is a dish or drink on the menu. UnitPrice is in yen.
type MenuItem struct {
	ID           int64
	CategoryID   int64
	Name         string
	Description  *string
	UnitPrice    int64
	ImageURL     *string
	Available    bool
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SalesSummary aggregates paid orders over a reporting window.
type SalesSummary struct {
	TotalSales int64
	OrderCount int64
}

// AverageOrderValue returns the mean order total for the window, or zero for
// an empty window.
func (s SalesSummary) AverageOrderValue() int64 {
	if s.OrderCount == 0 {
		return 0
	}
	return s.TotalSales / s.OrderCount
}
