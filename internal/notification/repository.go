package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	SaveSubscription(ctx context.Context, s *Subscription) error
	DeleteSubscription(ctx context.Context, userID uint, endpoint string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	ListByUser(ctx context.Context, userID uint) ([]Subscription, error)
	ListByRole(ctx context.Context, role auth.Role) ([]Subscription, error)
	ListAll(ctx context.Context) ([]Subscription, error)

	CreateNotification(ctx context.Context, n *Notification) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error)
	MarkResult(ctx context.Context, id string, status Status, res Result, sentAt time.Time) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// SaveSubscription upserts on endpoint, so a browser re-subscribing after a
// login switch moves the endpoint to the new user.
func (r *repository) SaveSubscription(ctx context.Context, s *Subscription) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO push_subscriptions (user_id, role, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			role = EXCLUDED.role,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth
		RETURNING id, created_at
	`, s.UserID, s.Role, s.Endpoint, s.P256dh, s.Auth).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to save subscription",
			zap.String("layer", "repository"),
			zap.Uint("user_id", s.UserID),
			zap.Error(err),
		)
		return storeErr(err)
	}
	return nil
}

func (r *repository) DeleteSubscription(ctx context.Context, userID uint, endpoint string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *repository) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint); err != nil {
		return storeErr(err)
	}
	return nil
}

const subscriptionColumns = `id, user_id, role, endpoint, p256dh, auth, created_at`

func (r *repository) listSubscriptions(ctx context.Context, where string, args ...any) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscriptions `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Role, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Subscription, error) {
	return r.listSubscriptions(ctx, `WHERE user_id = $1`, userID)
}

func (r *repository) ListByRole(ctx context.Context, role auth.Role) ([]Subscription, error) {
	return r.listSubscriptions(ctx, `WHERE role = $1`, role)
}

func (r *repository) ListAll(ctx context.Context) ([]Subscription, error) {
	return r.listSubscriptions(ctx, ``)
}

func (r *repository) CreateNotification(ctx context.Context, n *Notification) error {
	var (
		role   sql.NullString
		userID sql.NullInt64
		sched  sql.NullTime
	)
	if n.TargetRole != "" {
		role = sql.NullString{String: string(n.TargetRole), Valid: true}
	}
	if n.TargetUserID != nil {
		userID = sql.NullInt64{Int64: int64(*n.TargetUserID), Valid: true}
	}
	if n.ScheduledAt != nil {
		sched = sql.NullTime{Time: *n.ScheduledAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, title, body, target_role, target_user_id, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, n.ID, n.Title, n.Body, role, userID, sched, n.Status).Scan(&n.CreatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to create notification",
			zap.String("layer", "repository"),
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return storeErr(err)
	}
	return nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, body, target_role, target_user_id, scheduled_at, created_at
		FROM notifications
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3
	`, StatusPending, now, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n      Notification
			role   sql.NullString
			userID sql.NullInt64
			sched  sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &role, &userID, &sched, &n.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		n.Status = StatusPending
		if role.Valid {
			n.TargetRole = auth.Role(role.String)
		}
		if userID.Valid {
			id := uint(userID.Int64)
			n.TargetUserID = &id
		}
		if sched.Valid {
			t := sched.Time
			n.ScheduledAt = &t
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (r *repository) MarkResult(ctx context.Context, id string, status Status, res Result, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, success_count = $2, failure_count = $3, sent_at = $4
		WHERE id = $5
	`, status, res.Success, res.Failure, sentAt, id)
	if err != nil {
		return storeErr(err)
	}
	return nil
}
