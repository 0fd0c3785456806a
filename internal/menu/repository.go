package menu

import (
	"context"
	"database/sql"
	"fmt"

	"nightbite-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	ListByRestaurant(ctx context.Context, restaurantID uint) ([]Item, error)
	GetItems(ctx context.Context, restaurantID uint, ids []uint) ([]Item, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByRestaurant(ctx context.Context, restaurantID uint) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, description, price, available
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY name
	`, restaurantID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list menu",
			zap.Uint("restaurant_id", restaurantID), zap.Error(err))
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItems loads the given items of one restaurant. Ids belonging to another
// restaurant are simply absent from the result.
func (r *repository) GetItems(ctx context.Context, restaurantID uint, ids []uint) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	arg := make([]int64, len(ids))
	for i, id := range ids {
		arg[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, description, price, available
		FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2)
	`, restaurantID, pq.Array(arg))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load menu items",
			zap.Uint("restaurant_id", restaurantID), zap.Error(err))
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var (
			it   Item
			desc sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.RestaurantID, &it.Name, &desc, &it.Price, &it.Available); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		if desc.Valid {
			d := desc.String
			it.Description = &d
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}
