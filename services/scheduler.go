// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartQuotaScheduler refreshes the app-wide quota gauge every minute. The
// caller shuts the scheduler down.
func (s *QuotaService) StartQuotaScheduler(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Every minute: publish the app-wide game count
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.refreshAppGauge),
		gocron.WithContext(ctx),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule quota job: %w", err)
	}

	sched.Start()
	return sched, nil
}

func (s *QuotaService) refreshAppGauge(ctx context.Context) {
	app, err := s.AppQuota(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "[Scheduler] Failed to count games", "error", err)
		return
	}
	s.metrics.AppGames.Set(float64(app.Used))
	if app.Exhausted() {
		s.logger.WarnContext(ctx, "[Scheduler] App-wide game quota exhausted", "used", app.Used, "limit", app.Limit)
	}
}
