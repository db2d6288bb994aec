package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/repositories"
)

// MenuRepository is the Postgres implementation of repositories.MenuRepository.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository constructs a menu repository on top of a pgx pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// ListCategories returns all menu categories in display order.
func (r *MenuRepository) ListCategories(ctx context.Context) ([]domain.MenuCategory, error) {
	const op = "menu.list_categories"

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, name_en, display_order, created_at
		FROM menu_categories
		ORDER BY display_order, id`)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	categories := make([]domain.MenuCategory, 0, 8)
	for rows.Next() {
		var category domain.MenuCategory
		if err := rows.Scan(&category.ID, &category.Name, &category.NameEn, &category.DisplayOrder, &category.CreatedAt); err != nil {
			return nil, repositories.NewError(repositories.KindUnavailable, op, err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}

	return categories, nil
}

// ListAvailableItems returns every item currently offered for ordering.
func (r *MenuRepository) ListAvailableItems(ctx context.Context) ([]domain.MenuItem, error) {
	const op = "menu.list_available_items"

	rows, err := r.pool.Query(ctx, `
		SELECT id, category_id, name, description, unit_price, image_url, available, display_order, created_at, updated_at
		FROM menu_items
		WHERE available
		ORDER BY display_order, id`)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	return collectMenuItems(op, rows)
}

// ListItemsByCategory returns the available items of one category.
func (r *MenuRepository) ListItemsByCategory(ctx context.Context, categoryID int64) ([]domain.MenuItem, error) {
	const op = "menu.list_items_by_category"

	rows, err := r.pool.Query(ctx, `
		SELECT id, category_id, name, description, unit_price, image_url, available, display_order, created_at, updated_at
		FROM menu_items
		WHERE category_id = $1 AND available
		ORDER BY display_order, id`,
		categoryID)
	if err != nil {
		return nil, repositories.NewError(repositories.KindUnavailable, op, err)
	}
	defer rows.Close()

	return collectMenuItems(op, rows)
}

func collectMenuItems(op string, rows pgx.Rows) ([]domain.MenuItem, error) {
	items := make([]domain.MenuItem, 0, 16)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(
			&item.ID, &item.CategoryID, &item.Name, &item.Description,
			&item.UnitPrice, &item.ImageURL, &item.Available, &item.DisplayOrder, &item.CreatedAt, &item.UpdatedAt,
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
