package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"spinwheel/internal/app"
	"spinwheel/internal/logger"
	"spinwheel/internal/telegram"
)

type Sender interface {
	SendMarkdown(chatId int64, msg string) error
}

type Purger interface {
	PurgeStale(ctx context.Context, ttl time.Duration) (int64, error)
}

type Handlers struct {
	Sender        Sender
	FinanceChatId int64
	Purger        Purger
	TokenTtl      time.Duration
}

func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeWithdrawNotify, h.HandleWithdrawNotify)
	mux.HandleFunc(TypeLoginPurge, h.HandleLoginPurge)
	return mux
}

func WithdrawMessage(p WithdrawNotifyPayload) string {
	return fmt.Sprintf("*New withdrawal request* \\#%d\nUser: `%s`\nPoints: *%d*\nAddress: `%s`\nTime: %s",
		p.RequestId,
		telegram.EscapeMarkdownV2(p.UserId),
		p.Points,
		telegram.EscapeMarkdownV2(p.Address),
		telegram.EscapeMarkdownV2(app.CurrentMessageTime()),
	)
}

func (h *Handlers) HandleWithdrawNotify(ctx context.Context, t *asynq.Task) error {
	var p WithdrawNotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if h.Sender == nil || h.FinanceChatId == 0 {
		logger.Warn("finance chat not configured, dropping withdrawal notice", zap.Uint("request", p.RequestId))
		return nil
	}
	if err := h.Sender.SendMarkdown(h.FinanceChatId, WithdrawMessage(p)); err != nil {
		return fmt.Errorf("send withdrawal notice: %w", err)
	}
	logger.Info("withdrawal notice sent", zap.Uint("request", p.RequestId), zap.String("user", p.UserId))
	return nil
}

func (h *Handlers) HandleLoginPurge(ctx context.Context, _ *asynq.Task) error {
	n, err := h.Purger.PurgeStale(ctx, h.TokenTtl)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("stale login tokens purged", zap.Int64("count", n))
	}
	return nil
}
