package notification

import (
	"context"
	"fmt"
	"time"

	"nightbite-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dueBatchSize = 50

type Service interface {
	Subscribe(ctx context.Context, s *Subscription) (*Subscription, error)
	Unsubscribe(ctx context.Context, userID uint, endpoint string) error
	SendNow(ctx context.Context, n *Notification) (*Notification, error)
	Schedule(ctx context.Context, n *Notification) (*Notification, error)
	ProcessScheduled(ctx context.Context) (int, error)
}

type service struct {
	repo        Repository
	broadcaster *Broadcaster
	now         func() time.Time
	newID       func() string
}

func NewService(repo Repository, broadcaster *Broadcaster) Service {
	return &service{
		repo:        repo,
		broadcaster: broadcaster,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}
}

func (s *service) Subscribe(ctx context.Context, sub *Subscription) (*Subscription, error) {
	if !validEndpoint(sub.Endpoint) {
		return nil, fmt.Errorf("%w: endpoint must be an https url", ErrInvalidTarget)
	}
	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("push subscription saved",
		zap.Uint("user_id", sub.UserID),
		zap.String("role", string(sub.Role)),
	)
	return sub, nil
}

func (s *service) Unsubscribe(ctx context.Context, userID uint, endpoint string) error {
	return s.repo.DeleteSubscription(ctx, userID, endpoint)
}

func (s *service) SendNow(ctx context.Context, n *Notification) (*Notification, error) {
	if err := validateTarget(n); err != nil {
		return nil, err
	}
	n.ID = s.newID()
	n.Status = StatusPending
	n.ScheduledAt = nil
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) Schedule(ctx context.Context, n *Notification) (*Notification, error) {
	if err := validateTarget(n); err != nil {
		return nil, err
	}
	if n.ScheduledAt == nil || !n.ScheduledAt.After(s.now()) {
		return nil, ErrInvalidSchedule
	}
	n.ID = s.newID()
	n.Status = StatusPending
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("notification scheduled",
		zap.String("notification_id", n.ID),
		zap.Time("scheduled_at", *n.ScheduledAt),
	)
	return n, nil
}

// ProcessScheduled sends every pending notification whose time has come and
// returns how many were handled.
func (s *service) ProcessScheduled(ctx context.Context) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ProcessScheduled"),
	)

	due, err := s.repo.ListDue(ctx, s.now(), dueBatchSize)
	if err != nil {
		log.Error("failed to list due notifications", zap.Error(err))
		return 0, err
	}

	processed := 0
	for i := range due {
		if err := s.deliver(ctx, &due[i]); err != nil {
			log.Error("failed to deliver scheduled notification",
				zap.String("notification_id", due[i].ID), zap.Error(err))
			continue
		}
		processed++
	}
	if processed > 0 {
		log.Info("scheduled notifications sent", zap.Int("count", processed))
	}
	return processed, nil
}

func (s *service) deliver(ctx context.Context, n *Notification) error {
	subs, err := s.targets(ctx, n)
	if err != nil {
		return err
	}

	res := s.broadcaster.Broadcast(ctx, n, subs)
	status := StatusSent
	if res.Success == 0 && res.Failure > 0 {
		status = StatusFailed
	}
	sentAt := s.now()
	if err := s.repo.MarkResult(ctx, n.ID, status, res, sentAt); err != nil {
		return err
	}

	n.Status = status
	n.SuccessCount = res.Success
	n.FailureCount = res.Failure
	n.SentAt = &sentAt
	return nil
}

func (s *service) targets(ctx context.Context, n *Notification) ([]Subscription, error) {
	switch {
	case n.TargetUserID != nil:
		return s.repo.ListByUser(ctx, *n.TargetUserID)
	case n.TargetRole != "":
		return s.repo.ListByRole(ctx, n.TargetRole)
	default:
		return s.repo.ListAll(ctx)
	}
}

func validateTarget(n *Notification) error {
	if n.TargetUserID != nil && n.TargetRole != "" {
		return fmt.Errorf("%w: choose a user or a role, not both", ErrInvalidTarget)
	}
	if n.TargetRole != "" && !n.TargetRole.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTarget, n.TargetRole)
	}
	return nil
}
