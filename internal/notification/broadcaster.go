package notification

import (
	"context"
	"errors"

	"nightbite-be/internal/logger"
	"nightbite-be/internal/metrics"

	"go.uber.org/zap"
)

// Pruner removes subscriptions that will never accept deliveries again.
type Pruner interface {
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

type Broadcaster struct {
	sender  Sender
	pruner  Pruner
	metrics *metrics.Registry
}

func NewBroadcaster(sender Sender, pruner Pruner, reg *metrics.Registry) *Broadcaster {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Broadcaster{sender: sender, pruner: pruner, metrics: reg}
}

// Broadcast sends n to every subscription. A failed send never stops the
// rest of the round.
func (b *Broadcaster) Broadcast(ctx context.Context, n *Notification, subs []Subscription) Result {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "notification"),
		zap.String("method", "Broadcast"),
		zap.String("notification_id", n.ID),
	)

	var res Result
	for _, sub := range subs {
		err := b.sender.Send(ctx, Delivery{
			NotificationID: n.ID,
			UserID:         sub.UserID,
			Endpoint:       sub.Endpoint,
			P256dh:         sub.P256dh,
			Auth:           sub.Auth,
			Title:          n.Title,
			Body:           n.Body,
		})
		if err == nil {
			res.Success++
			continue
		}

		res.Failure++
		if errors.Is(err, ErrSubscriptionGone) && b.pruner != nil {
			if perr := b.pruner.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); perr != nil {
				log.Warn("failed to prune subscription", zap.Uint("subscription_id", sub.ID), zap.Error(perr))
			} else {
				res.Pruned++
			}
			continue
		}
		log.Warn("push delivery failed", zap.Uint("subscription_id", sub.ID), zap.Error(err))
	}

	b.metrics.Add(metrics.NotificationsSent, uint64(res.Success))
	b.metrics.Add(metrics.NotificationsFailed, uint64(res.Failure))
	b.metrics.Add(metrics.SubscriptionsPruned, uint64(res.Pruned))

	log.Info("broadcast finished",
		zap.Int("success", res.Success),
		zap.Int("failure", res.Failure),
		zap.Int("pruned", res.Pruned),
	)
	return res
}
