package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/table-order/api/internal/domain"
)

// ErrorKind classifies repository failures so that services can map them onto
// their own sentinel errors without inspecting driver details.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindUnavailable       ErrorKind = "unavailable"
)

// Error is the error type returned by all repository implementations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an operation name and a classification kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func kindOf(err error) (ErrorKind, bool) {
	var repoErr *Error
	if errors.As(err, &repoErr) {
		return repoErr.Kind, true
	}
	return "", false
}

// IsNotFound reports whether err indicates a missing row.
func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNotFound
}

// IsConflict reports whether err indicates a uniqueness or single-assignment violation.
func IsConflict(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindConflict
}

// IsInvalidTransition reports whether err indicates a forbidden status change.
func IsInvalidTransition(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindInvalidTransition
}

// IsUnavailable reports whether err indicates the backing store could not be reached.
func IsUnavailable(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindUnavailable
}

// OrderCreate carries everything needed to persist a new order with its lines
// in one transaction. TotalAmount and the line prices come from the price
// snapshot taken at creation time, never from the client.
type OrderCreate struct {
	TableNumber   string
	TotalAmount   int64
	CustomerName  *string
	CustomerEmail *string
	Notes         *string
	Lines         []domain.OrderDraftLine
}

// OrderRepository persists orders and drives their status lifecycle.
//
// Transition applies the status state machine atomically: the update only
// lands when the current status is a legal source for the target. A
// transition to paid that finds the order already paid or later is treated as
// an idempotent no-op and returns the order unchanged.
type OrderRepository interface {
	Create(ctx context.Context, create OrderCreate) (domain.Order, error)
	FindByID(ctx context.Context, orderID int64) (domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	Transition(ctx context.Context, orderID int64, target domain.OrderStatus, occurredAt time.Time) (domain.Order, error)
	AttachCheckoutSession(ctx context.Context, orderID int64, sessionID string) error
	AttachPaymentIntent(ctx context.Context, orderID int64, paymentIntentID string) error
	SalesBetween(ctx context.Context, from, to time.Time) (domain.SalesSummary, error)
}

// MenuRepository provides read access to the menu catalog.
type MenuRepository interface {
	ListCategories(ctx context.Context) ([]domain.MenuCategory, error)
	ListAvailableItems(ctx context.Context) ([]domain.MenuItem, error)
	ListItemsByCategory(ctx context.Context, categoryID int64) ([]domain.MenuItem, error)
}
