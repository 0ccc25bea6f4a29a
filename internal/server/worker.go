package server

import (
	"context"
	"os"
	"strconv"

	"go.uber.org/zap"

	"spinwheel/internal/logger"
	"spinwheel/internal/telegram"
	"spinwheel/internal/wheelapi"
	"spinwheel/internal/worker"
)

// WorkerInit runs the task queue consumer and the housekeeping scheduler
// until ctx is cancelled.
func WorkerInit(ctx context.Context, app *wheelapi.App, config *Config) error {
	handlers := &worker.Handlers{
		Purger:   app.Login,
		TokenTtl: config.TokenTtl.Duration,
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		bot, err := telegram.NewBot(token)
		if err != nil {
			return err
		}
		handlers.Sender = bot
	}
	if raw := os.Getenv("FINANCE_CHAT_ID"); raw != "" {
		chatId, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		handlers.FinanceChatId = chatId
	}

	srv := worker.NewServer(wheelapi.RedisOpt(), config.WorkerConcurrency)
	if err := srv.Start(handlers.Mux()); err != nil {
		return err
	}
	defer srv.Shutdown()

	scheduler, err := worker.NewScheduler(worker.NewEnqueuer(app.Aqc), config.PurgeInterval.Duration)
	if err != nil {
		return err
	}
	scheduler.Start()
	logger.Info("worker is up", zap.Int("concurrency", config.WorkerConcurrency))
	<-ctx.Done()
	if err := scheduler.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	return nil
}
