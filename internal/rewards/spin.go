package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"spinwheel/internal/app"
	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
)

type SpinResult struct {
	Prize      string  `json:"prize"`
	Points     int64   `json:"points"`
	SliceIndex int     `json:"slice_index"`
	Slices     []Slice `json:"slices"`
}

type Engine struct {
	Storage ledger.Storage
	Wheel   Wheel
	Source  Source
	Now     func() time.Time
}

func NewEngine(storage ledger.Storage, wheel Wheel) (*Engine, error) {
	if err := wheel.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		Storage: storage,
		Wheel:   wheel,
		Source:  CryptoSource{},
		Now:     time.Now,
	}, nil
}

// Spin awards one prize per user per local calendar day.
func (e *Engine) Spin(ctx context.Context, userId string) (*SpinResult, error) {
	if userId == "" {
		return nil, ledger.NotAuthenticated("not authenticated")
	}
	now := e.Now()
	from, to, day := app.DayBounds(now)

	var result *SpinResult
	err := e.Storage.Transaction(ctx, func(tx ledger.Storage) error {
		if _, err := tx.LockUser(ctx, userId); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ledger.NotAuthenticated("unknown user")
			}
			return fmt.Errorf("lock user: %w", err)
		}
		spun, err := tx.HasSpunOn(ctx, userId, day, from, to)
		if err != nil {
			return fmt.Errorf("spin gate: %w", err)
		}
		if spun {
			return ledger.ErrAlreadySpunToday
		}
		result, err = e.draw()
		if err != nil {
			return err
		}
		err = tx.AppendEvent(ctx, &ledger.PointEvent{
			UserId:    userId,
			Kind:      ledger.KindSpin,
			Points:    result.Points,
			Reference: fmt.Sprintf("slice:%d", result.SliceIndex),
			SpinDay:   &day,
			CreatedAt: now,
		})
		if errors.Is(err, ledger.ErrDuplicate) {
			return ledger.ErrAlreadySpunToday
		}
		if err != nil {
			return fmt.Errorf("append spin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, ledger.StoreFailure("spin", err)
	}
	logger.Info("wheel spun",
		zap.String("user", userId),
		zap.String("prize", result.Prize),
		zap.Int64("points", result.Points),
	)
	return result, nil
}

// draw picks a slice index and the award from the same table.
func (e *Engine) draw() (*SpinResult, error) {
	idx, err := e.Source.Int63n(int64(len(e.Wheel.Slices)))
	if err != nil {
		return nil, fmt.Errorf("draw slice: %w", err)
	}
	slice := e.Wheel.Slices[idx]
	points := slice.Value
	if slice.Jackpot {
		points, err = Between(e.Source, e.Wheel.JackpotMin, e.Wheel.JackpotMax)
		if err != nil {
			return nil, fmt.Errorf("draw jackpot: %w", err)
		}
	}
	return &SpinResult{
		Prize:      slice.Label,
		Points:     points,
		SliceIndex: int(idx),
		Slices:     e.Wheel.Slices,
	}, nil
}
