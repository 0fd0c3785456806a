package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nightbite-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) (*Order, error)
	SetDeliveryPartner(ctx context.Context, orderID, partnerID uint, allowed []Status) (*Order, error)
	ListHistory(ctx context.Context, orderID uint) ([]StatusChange, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, order_number, customer_id, restaurant_id, delivery_partner_id,
	status, subtotal, delivery_fee, tax, total, verification_code,
	delivery_address, created_at, updated_at, estimated_delivery_time, pickup_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o         Order
		partnerID sql.NullInt64
		code      sql.NullString
		pickup    sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &partnerID,
		&o.Status, &o.Subtotal, &o.DeliveryFee, &o.Tax, &o.Total, &code,
		&o.DeliveryAddress, &o.CreatedAt, &o.UpdatedAt, &o.EstimatedDeliveryTime, &pickup,
	)
	if err != nil {
		return nil, err
	}
	o.VerificationCode = code.String
	if partnerID.Valid {
		id := uint(partnerID.Int64)
		o.DeliveryPartnerID = &id
	}
	if pickup.Valid {
		t := pickup.Time
		o.PickupTime = &t
	}
	return &o, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("order_number", o.OrderNumber),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin tx", zap.Error(err))
		return storeErr(err)
	}
	defer tx.Rollback()

	// 1. Insert order
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, customer_id, restaurant_id, status,
			subtotal, delivery_fee, tax, total, verification_code,
			delivery_address, estimated_delivery_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`,
		o.OrderNumber, o.CustomerID, o.RestaurantID, o.Status,
		o.Subtotal, o.DeliveryFee, o.Tax, o.Total, o.VerificationCode,
		o.DeliveryAddress, o.EstimatedDeliveryTime,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return storeErr(err)
	}

	// 2. Insert item snapshots
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, menu_item_id, name, unit_price, quantity, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, o.ID, item.MenuItemID, item.Name, item.UnitPrice, item.Quantity, item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			log.Error("failed to insert order item", zap.Uint("menu_item_id", item.MenuItemID), zap.Error(err))
			return storeErr(err)
		}
	}

	// 3. Opening audit entry
	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor_id, actor_role, changed_at)
		VALUES ($1, '', $2, $3, $4, $5)
	`, o.ID, o.Status, o.CustomerID, "CUSTOMER", o.CreatedAt)
	if err != nil {
		log.Error("failed to insert status history", zap.Error(err))
		return storeErr(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order", zap.Error(err))
		return storeErr(err)
	}
	return nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load order",
			zap.String("order_number", orderNumber), zap.Error(err))
		return nil, storeErr(err)
	}

	items, err := r.fetchItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *repository) fetchItems(ctx context.Context, orderID uint) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, name, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Subtotal); err != nil {
			return nil, storeErr(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

// UpdateStatus applies the update only while the row still has u.Expected
// and records the audit entry in the same transaction.
func (r *repository) UpdateStatus(ctx context.Context, u StatusUpdate) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateStatus"),
		zap.Uint("order_id", u.OrderID),
		zap.String("from", string(u.Expected)),
		zap.String("to", string(u.Next)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin tx", zap.Error(err))
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	var partnerID sql.NullInt64
	if u.DeliveryPartnerID != nil {
		partnerID = sql.NullInt64{Int64: int64(*u.DeliveryPartnerID), Valid: true}
	}
	var pickup sql.NullTime
	if u.PickupTime != nil {
		pickup = sql.NullTime{Time: *u.PickupTime, Valid: true}
	}
	var code sql.NullString
	if u.VerificationCode != nil {
		code = sql.NullString{String: *u.VerificationCode, Valid: true}
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1,
			verification_code = COALESCE($2, verification_code),
			delivery_partner_id = COALESCE($3, delivery_partner_id),
			pickup_time = COALESCE($4, pickup_time),
			updated_at = $5
		WHERE id = $6 AND status = $7
		RETURNING `+orderColumns,
		u.Next, code, partnerID, pickup, u.ChangedAt, u.OrderID, u.Expected,
	)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("conditional status update matched no row")
		return nil, ErrConflict
	}
	if err != nil {
		log.Error("failed to update status", zap.Error(err))
		return nil, storeErr(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor_id, actor_role, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.OrderID, u.Expected, u.Next, u.Actor.ID, u.Actor.Role, u.ChangedAt)
	if err != nil {
		log.Error("failed to insert status history", zap.Error(err))
		return nil, storeErr(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit status update", zap.Error(err))
		return nil, storeErr(err)
	}
	return o, nil
}

func (r *repository) SetDeliveryPartner(ctx context.Context, orderID, partnerID uint, allowed []Status) (*Order, error) {
	statuses := make([]string, len(allowed))
	for i, s := range allowed {
		statuses[i] = string(s)
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET delivery_partner_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
		RETURNING `+orderColumns,
		partnerID, orderID, pq.Array(statuses),
	)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to assign delivery partner",
			zap.Uint("order_id", orderID), zap.Error(err))
		return nil, storeErr(err)
	}
	return o, nil
}

func (r *repository) ListHistory(ctx context.Context, orderID uint) ([]StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, from_status, to_status, actor_id, actor_role, changed_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, orderID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query status history",
			zap.Uint("order_id", orderID), zap.Error(err))
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.From, &c.To, &c.ActorID, &c.ActorRole, &c.ChangedAt); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}
