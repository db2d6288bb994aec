package domain

import (
	"fmt"
	"slices"
)

// OrderStatus is the closed set of lifecycle states an order can occupy.
// The storage layer persists exactly these six labels.
type OrderStatus string

const (
	// OrderStatusPending is the initial state after creation, before payment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid indicates the payment gateway confirmed the charge.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusPreparing indicates the kitchen started on the order.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusServed indicates the order was delivered to the table.
	OrderStatusServed OrderStatus = "served"
	// OrderStatusCompleted is the terminal happy-path state.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled is the terminal abort state.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status label in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusPreparing,
	OrderStatusServed,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusServed},
	OrderStatusServed:    {OrderStatusCompleted},
}

// paidOrLater holds the states an order can only reach by passing through
// paid. These are the states whose orders count towards sales aggregates.
var paidOrLater = []OrderStatus{
	OrderStatusPaid,
	OrderStatusPreparing,
	OrderStatusServed,
	OrderStatusCompleted,
}

// ParseOrderStatus validates a raw status label.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	if !slices.Contains(OrderStatuses, status) {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return status, nil
}

// Valid reports whether the status is one of the six known labels.
func (s OrderStatus) Valid() bool {
	return slices.Contains(OrderStatuses, s)
}

// CanTransitionTo reports whether the state machine allows moving from the
// receiver to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(orderStatusTransitions[s], target)
}

// Terminal reports whether no transition leaves the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// AtLeastPaid reports whether the order has reached paid at some point in its
// lifecycle, i.e. the status is paid, preparing, served or completed.
func (s OrderStatus) AtLeastPaid() bool {
	return slices.Contains(paidOrLater, s)
}

// PaidOrLaterStatuses returns the states that imply a completed payment.
func PaidOrLaterStatuses() []OrderStatus {
	return slices.Clone(paidOrLater)
}

// TransitionSources returns the statuses from which target may be reached.
func TransitionSources(target OrderStatus) []OrderStatus {
	sources := make([]OrderStatus, 0, 2)
	for _, from := range OrderStatuses {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}
