package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS menu_categories (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		name_en       TEXT,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id            BIGSERIAL PRIMARY KEY,
		category_id   BIGINT NOT NULL REFERENCES menu_categories(id),
		name          TEXT NOT NULL,
		description   TEXT,
		unit_price    BIGINT NOT NULL CHECK (unit_price >= 0),
		image_url     TEXT,
		available     BOOLEAN NOT NULL DEFAULT TRUE,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_menu_items_category ON menu_items (category_id, display_order)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  BIGSERIAL PRIMARY KEY,
		table_number        TEXT NOT NULL,
		total_amount        BIGINT NOT NULL CHECK (total_amount >= 0),
		status              TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'paid', 'preparing', 'served', 'completed', 'cancelled')),
		checkout_session_id TEXT,
		payment_intent_id   TEXT,
		customer_name       TEXT,
		customer_email      TEXT,
		notes               TEXT,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		paid_at             TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_checkout_session ON orders (checkout_session_id) WHERE checkout_session_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id           BIGSERIAL PRIMARY KEY,
		order_id     BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		menu_item_id BIGINT NOT NULL,
		name         TEXT NOT NULL,
		quantity     INTEGER NOT NULL CHECK (quantity > 0),
		unit_price   BIGINT NOT NULL CHECK (unit_price >= 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
}

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so the call is safe on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrationStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
