package notification

import (
	"context"
	"fmt"
	"time"

	"nightbite-be/internal/logger"
	"nightbite-be/internal/metrics"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs ProcessScheduled on a fixed interval.
type Scheduler struct {
	cron gocron.Scheduler
}

func NewScheduler(svc Service, interval time.Duration, reg *metrics.Registry) (*Scheduler, error) {
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			reg.Inc(metrics.ScheduledNotifyRounds)
			if _, err := svc.ProcessScheduled(ctx); err != nil {
				logger.L().Error("scheduled notification round failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("process-scheduled-notifications"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("register job: %w", err)
	}

	return &Scheduler{cron: s}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.L().Info("notification scheduler started")
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}
