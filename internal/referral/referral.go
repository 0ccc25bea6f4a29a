package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
)

const DefaultBonus = 500

// Identity is the account data the bot gateway knows about a user.
type Identity struct {
	Id        string
	FirstName string
	LastName  string
	Username  string
}

type Engine struct {
	Storage ledger.Storage
	Bonus   int64
}

func NewEngine(storage ledger.Storage, bonus int64) *Engine {
	if bonus <= 0 {
		bonus = DefaultBonus
	}
	return &Engine{Storage: storage, Bonus: bonus}
}

// ResolveOrCreateUser returns the user for identity, registering it on first
// sight. A referral code is the referrer's own user id. Unknown codes and
// self-referrals register the user without a referrer. created reports
// whether this call inserted the row.
//
// Run it inside a transaction: the bonus and the edge are written in a
// savepoint so a failure there drops only the bookkeeping.
func (e *Engine) ResolveOrCreateUser(ctx context.Context, tx ledger.Storage, identity Identity, code string) (user *ledger.User, created bool, err error) {
	if identity.Id == "" {
		return nil, false, ledger.InvalidInput("missing user id")
	}
	user, err = tx.FindUser(ctx, identity.Id)
	switch {
	case err == nil:
		return e.refreshProfile(ctx, tx, user, identity)
	case !errors.Is(err, ledger.ErrNotFound):
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	user = &ledger.User{
		Id:        identity.Id,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Username:  identity.Username,
	}
	referrer, err := e.resolveReferrer(ctx, tx, identity.Id, code)
	if err != nil {
		return nil, false, err
	}
	if referrer != nil {
		user.ReferrerId = &referrer.Id
	}
	created, err = tx.CreateUser(ctx, user)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	if !created {
		// Registered concurrently by another update; that one owns the bonus.
		user, err = tx.FindUser(ctx, identity.Id)
		if err != nil {
			return nil, false, fmt.Errorf("find user: %w", err)
		}
		return user, false, nil
	}
	if referrer != nil {
		e.credit(ctx, tx, referrer.Id, user.Id)
	}
	return user, true, nil
}

func (e *Engine) resolveReferrer(ctx context.Context, tx ledger.Storage, userId string, code string) (*ledger.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	if code == userId {
		logger.Info("self referral ignored", zap.String("user", userId))
		return nil, nil
	}
	referrer, err := tx.FindUser(ctx, code)
	if errors.Is(err, ledger.ErrNotFound) {
		logger.Info("unknown referral code ignored", zap.String("user", userId), zap.String("code", code))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find referrer: %w", err)
	}
	return referrer, nil
}

// credit grants the referral bonus and records the edge. Failures are logged
// as integrity warnings and never fail the registration.
func (e *Engine) credit(ctx context.Context, tx ledger.Storage, referrerId string, referredId string) {
	err := tx.Savepoint(ctx, func(sp ledger.Storage) error {
		if err := sp.CreateReferralEdge(ctx, &ledger.ReferralEdge{
			ReferrerId: referrerId,
			ReferredId: referredId,
		}); err != nil {
			return fmt.Errorf("referral edge: %w", err)
		}
		if err := sp.AppendEvent(ctx, &ledger.PointEvent{
			UserId:    referrerId,
			Kind:      ledger.KindReferral,
			Points:    e.Bonus,
			Reference: "referral:" + referredId,
		}); err != nil {
			return fmt.Errorf("referral bonus: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("referral bookkeeping failed, user registered without bonus",
			zap.String("referrer", referrerId),
			zap.String("referred", referredId),
			zap.Error(err),
		)
		return
	}
	logger.Info("referral bonus granted",
		zap.String("referrer", referrerId),
		zap.String("referred", referredId),
		zap.Int64("points", e.Bonus),
	)
}

func (e *Engine) refreshProfile(ctx context.Context, tx ledger.Storage, user *ledger.User, identity Identity) (*ledger.User, bool, error) {
	if user.FirstName == identity.FirstName && user.LastName == identity.LastName && user.Username == identity.Username {
		return user, false, nil
	}
	user.FirstName = identity.FirstName
	user.LastName = identity.LastName
	user.Username = identity.Username
	if err := tx.UpdateUserProfile(ctx, user); err != nil {
		return nil, false, fmt.Errorf("update user: %w", err)
	}
	return user, false, nil
}

// ListReferrals returns the users brought in by referrerId, newest first.
func (e *Engine) ListReferrals(ctx context.Context, referrerId string, limit, offset int) ([]ledger.ReferralEdge, int64, error) {
	edges, total, err := e.Storage.ListReferrals(ctx, referrerId, limit, offset)
	if err != nil {
		return nil, 0, ledger.StoreFailure("list referrals", err)
	}
	return edges, total, nil
}
