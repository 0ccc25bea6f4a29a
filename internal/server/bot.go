package server

import (
	"context"
	"os"

	"go.uber.org/zap"

	"spinwheel/internal/logger"
	"spinwheel/internal/telegram"
	"spinwheel/internal/wheelapi"
)

// BotInit polls Telegram for /start updates until ctx is cancelled.
func BotInit(ctx context.Context, app *wheelapi.App, config *Config) error {
	bot, err := telegram.NewBot(os.Getenv("TELEGRAM_TOKEN"))
	if err != nil {
		return err
	}
	updater := telegram.NewUpdater(&telegram.StartHandler{
		Login:  app.Login,
		WebUrl: config.WebUrl,
	})
	if err := telegram.StartPolling(bot, updater); err != nil {
		return err
	}
	logger.Info("bot is polling", zap.String("username", bot.Api.User.Username))
	<-ctx.Done()
	return updater.Stop()
}
