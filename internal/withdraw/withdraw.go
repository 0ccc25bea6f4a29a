package withdraw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
)

const DefaultMinWithdrawal = 20000

// Notifier hears about committed withdrawal requests, e.g. to alert the
// finance chat. It runs after commit and cannot undo the request.
type Notifier interface {
	WithdrawalRequested(ctx context.Context, req *ledger.WithdrawRequest) error
}

type Engine struct {
	Storage       ledger.Storage
	MinWithdrawal int64
	Notifier      Notifier
}

func NewEngine(storage ledger.Storage, minWithdrawal int64, notifier Notifier) *Engine {
	if minWithdrawal <= 0 {
		minWithdrawal = DefaultMinWithdrawal
	}
	return &Engine{
		Storage:       storage,
		MinWithdrawal: minWithdrawal,
		Notifier:      notifier,
	}
}

// RequestWithdrawal records a pending payout and debits the same amount.
// Both rows commit together or not at all.
func (e *Engine) RequestWithdrawal(ctx context.Context, userId string, address string, points int64) (*ledger.WithdrawRequest, error) {
	if userId == "" {
		return nil, ledger.NotAuthenticated("not authenticated")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ledger.InvalidInput("Solana address is required.")
	}
	if points <= 0 {
		return nil, ledger.InvalidInput("Invalid withdrawal amount.")
	}
	if points < e.MinWithdrawal {
		return nil, ledger.InvalidInput(fmt.Sprintf("Minimum withdrawal is %d points.", e.MinWithdrawal))
	}

	req := &ledger.WithdrawRequest{
		UserId:  userId,
		Points:  points,
		Address: address,
		Status:  ledger.WithdrawPending,
	}
	err := e.Storage.Transaction(ctx, func(tx ledger.Storage) error {
		if _, err := tx.LockUser(ctx, userId); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ledger.NotAuthenticated("unknown user")
			}
			return fmt.Errorf("lock user: %w", err)
		}
		balance, err := tx.Balance(ctx, userId)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		if balance < points {
			return &ledger.InsufficientBalanceError{Requested: points, Available: balance}
		}
		if err := tx.CreateWithdrawRequest(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if err := tx.AppendEvent(ctx, &ledger.PointEvent{
			UserId:    userId,
			Kind:      ledger.KindWithdrawal,
			Points:    -points,
			Reference: fmt.Sprintf("withdraw:%d", req.Id),
		}); err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, ledger.StoreFailure("withdraw", err)
	}
	logger.Info("withdrawal requested",
		zap.String("user", userId),
		zap.Uint("request", req.Id),
		zap.Int64("points", points),
	)
	if e.Notifier != nil {
		if err := e.Notifier.WithdrawalRequested(ctx, req); err != nil {
			logger.Warn("withdrawal notification failed", zap.Uint("request", req.Id), zap.Error(err))
		}
	}
	return req, nil
}

// ListWithdrawHistory returns the user's requests, newest first.
func (e *Engine) ListWithdrawHistory(ctx context.Context, userId string) ([]ledger.WithdrawRequest, error) {
	if userId == "" {
		return nil, ledger.NotAuthenticated("not authenticated")
	}
	requests, err := e.Storage.ListWithdrawRequests(ctx, userId)
	if err != nil {
		return nil, ledger.StoreFailure("withdraw history", err)
	}
	return requests, nil
}
