package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"spinwheel/internal/ledger"
)

const (
	TypeWithdrawNotify = "withdraw:notify"
	TypeLoginPurge     = "login:purge"

	QueueCritical = "critical"
	QueueDefault  = "default"
)

type WithdrawNotifyPayload struct {
	RequestId uint   `json:"request_id"`
	UserId    string `json:"user_id"`
	Points    int64  `json:"points"`
	Address   string `json:"address"`
}

func NewWithdrawNotifyTask(req *ledger.WithdrawRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(WithdrawNotifyPayload{
		RequestId: req.Id,
		UserId:    req.UserId,
		Points:    req.Points,
		Address:   req.Address,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWithdrawNotify, payload, asynq.MaxRetry(10)), nil
}

func NewLoginPurgeTask() *asynq.Task {
	return asynq.NewTask(TypeLoginPurge, nil, asynq.MaxRetry(1))
}

// Enqueuer hands withdrawal notifications to the task queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) WithdrawalRequested(ctx context.Context, req *ledger.WithdrawRequest) error {
	task, err := NewWithdrawNotifyTask(req)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueCritical))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeWithdrawNotify, err)
	}
	return nil
}

// EnqueuePurge schedules one token purge. Overlapping requests within
// window collapse into one task.
func (e *Enqueuer) EnqueuePurge(ctx context.Context, window time.Duration) error {
	_, err := e.client.EnqueueContext(ctx, NewLoginPurgeTask(), asynq.Queue(QueueDefault), asynq.Unique(window))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
