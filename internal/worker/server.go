package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"spinwheel/internal/logger"
)

func NewServer(opt asynq.RedisClientOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 4
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
		},
	})
}

// NewScheduler enqueues a login purge every interval.
func NewScheduler(enqueuer *Enqueuer, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := enqueuer.EnqueuePurge(ctx, interval); err != nil {
				logger.Error("enqueue login purge", zap.Error(err))
			}
		}),
		gocron.WithName(TypeLoginPurge),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return s, nil
}
