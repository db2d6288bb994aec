package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/repositories"
)

const orderColumns = `id, table_number, total_amount, status, checkout_session_id,
	payment_intent_id, customer_name, customer_email, notes, created_at, updated_at, paid_at`

// OrderRepository is the Postgres implementation of repositories.OrderRepository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository constructs an order repository on top of a pgx pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order together with its line items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, create repositories.OrderCreate) (domain.Order, error) {
	const op = "orders.create"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (table_number, total_amount, status, customer_name, customer_email, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		create.TableNumber,
		create.TotalAmount,
		string(domain.OrderStatusPending),
		create.CustomerName,
		create.CustomerEmail,
		create.Notes,
	)

	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, classify(op, err)
	}

	for _, line := range create.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, line.MenuItemID, line.Name, line.Quantity, line.UnitPrice,
		); err != nil {
			return domain.Order{}, classify(op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, repositories.NewError(repositories.KindUnavailable, op, err)
	}

	return order, nil
}

// FindByID loads a single order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	const op = "orders.find"

	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, classify(op, err)
	}
	return order, nil
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	const op = "orders.list"

	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	return collectOrders(op, rows)
}

// ListByStatus returns orders currently in the given status, newest first.
func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	const op = "orders.list_by_status"

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	return collectOrders(op, rows)
}

// ListByDateRange returns orders created in [from, to), newest first.
func (r *OrderRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	const op = "orders.list_by_date_range"

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	return collectOrders(op, rows)
}

// ListItems returns the line items of an order in insertion order.
func (r *OrderRepository) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	const op = "orders.list_items"

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.MenuItemID,
			&item.Name, &item.Quantity, &item.UnitPrice, &item.CreatedAt,
		); err != nil {
			return nil, repositories.NewError(repositories.KindUnavailable, op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}

	return items, nil
}

// Transition moves the order to the target status. The update is conditional
// on the current status being a legal source, so concurrent writers cannot
// race past the state machine. A transition to paid stamps paid_at exactly
// once; re-delivery against an already-paid order is a no-op.
func (r *OrderRepository) Transition(ctx context.Context, orderID int64, target domain.OrderStatus, occurredAt time.Time) (domain.Order, error) {
	const op = "orders.transition"

	if !target.Valid() {
		return domain.Order{}, repositories.NewError(repositories.KindInvalidTransition, op,
			fmt.Errorf("unknown status %q", target))
	}

	sources := domain.TransitionSources(target)
	if len(sources) == 0 {
		return domain.Order{}, repositories.NewError(repositories.KindInvalidTransition, op,
			fmt.Errorf("status %q has no legal predecessors", target))
	}

	var row pgx.Row
	if target == domain.OrderStatusPaid {
		row = r.pool.QueryRow(ctx, `
			UPDATE orders
			SET status = $2, paid_at = COALESCE(paid_at, $3), updated_at = $3
			WHERE id = $1 AND status = ANY($4)
			RETURNING `+orderColumns,
			orderID, string(target), occurredAt.UTC(), statusStrings(sources),
		)
	} else {
		row = r.pool.QueryRow(ctx, `
			UPDATE orders
			SET status = $2, updated_at = $3
			WHERE id = $1 AND status = ANY($4)
			RETURNING `+orderColumns,
			orderID, string(target), occurredAt.UTC(), statusStrings(sources),
		)
	}

	order, err := scanOrder(row)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, classify(op, err)
	}

	// The conditional update matched nothing. Re-read to distinguish a
	// missing order, an idempotent paid replay, and a forbidden transition.
	current, findErr := r.FindByID(ctx, orderID)
	if findErr != nil {
		return domain.Order{}, findErr
	}

	if target == domain.OrderStatusPaid && current.Status.AtLeastPaid() {
		return current, nil
	}

	return domain.Order{}, repositories.NewError(repositories.KindInvalidTransition, op,
		fmt.Errorf("cannot move order %d from %q to %q", orderID, current.Status, target))
}

// AttachCheckoutSession records the checkout session once. Re-attaching the
// same session is accepted; a different session for the same order is a conflict.
func (r *OrderRepository) AttachCheckoutSession(ctx context.Context, orderID int64, sessionID string) error {
	return r.attachReference(ctx, "orders.attach_session", "checkout_session_id", orderID, sessionID)
}

// AttachPaymentIntent records the payment intent with the same single-assignment rule.
func (r *OrderRepository) AttachPaymentIntent(ctx context.Context, orderID int64, paymentIntentID string) error {
	return r.attachReference(ctx, "orders.attach_intent", "payment_intent_id", orderID, paymentIntentID)
}

func (r *OrderRepository) attachReference(ctx context.Context, op, column string, orderID int64, value string) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE orders
		SET %s = $2, updated_at = now()
		WHERE id = $1 AND (%s IS NULL OR %s = $2)`, column, column, column),
		orderID, value,
	)
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, findErr := r.FindByID(ctx, orderID); findErr != nil {
		return findErr
	}
	return repositories.NewError(repositories.KindConflict, op,
		fmt.Errorf("order %d already holds a different %s", orderID, column))
}

// SalesBetween aggregates revenue over orders created in [from, to) whose
// payment has been confirmed (status paid or any later state).
func (r *OrderRepository) SalesBetween(ctx context.Context, from, to time.Time) (domain.SalesSummary, error) {
	const op = "orders.sales_between"

	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders
		WHERE status = ANY($1) AND created_at >= $2 AND created_at < $3`,
		statusStrings(domain.PaidOrLaterStatuses()), from.UTC(), to.UTC(),
	)

	var summary domain.SalesSummary
	if err := row.Scan(&summary.TotalSales, &summary.OrderCount); err != nil {
		return domain.SalesSummary{}, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	return summary, nil
}

func collectOrders(op string, rows pgx.Rows) ([]domain.Order, error) {
	orders := make([]domain.Order, 0, 16)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, repositories.NewError(repositories.KindUnavailable, op, err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	if err := row.Scan(
		&order.ID, &order.TableNumber, &order.TotalAmount, &status,
		&order.CheckoutSessionID, &order.PaymentIntentID,
		&order.CustomerName, &order.CustomerEmail, &order.Notes,
		&order.CreatedAt, &order.UpdatedAt, &order.PaidAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func statusStrings(statuses []domain.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repositories.NewError(repositories.KindNotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repositories.NewError(repositories.KindConflict, op, err)
	}

	return repositories.NewError(repositories.KindUnavailable, op, err)
}
