package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
)

// StartExpiryScheduler runs MarkExpired every interval until ctx is done.
func (s *ChallengeService) StartExpiryScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "creating scheduler")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := s.MarkExpired(ctx, time.Now())
			if err != nil {
				s.Log.Error("[Scheduler] expiry sweep failed", err)
				return
			}
			if n > 0 {
				s.Log.Info("[Scheduler] expired challenges", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, errors.Wrap(err, "scheduling expiry sweep")
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			s.Log.Warn("[Scheduler] shutdown", err)
		}
	}()
	return sched, nil
}
