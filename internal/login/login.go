package login

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"go.uber.org/zap"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
	"spinwheel/internal/referral"
)

// TokenLen random characters from [A-Za-z0-9] give about 190 bits, and stay
// inside Telegram's 64 character limit for /start payloads.
const TokenLen = 32

var tokenChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

type PollStatus string

const (
	PollPending       PollStatus = "pending"
	PollAuthenticated PollStatus = "authenticated"
	PollInvalid       PollStatus = "invalid"
)

type PollResult struct {
	Status PollStatus
	User   *ledger.User // set when Status is PollAuthenticated
}

type FulfillResult int

const (
	FulfillOK FulfillResult = iota
	FulfillInvalidToken
	FulfillAlreadyUsed
)

// Publisher is told about fulfilled tokens so a waiting browser can poll at once.
type Publisher interface {
	LoginFulfilled(ctx context.Context, token string) error
}

type Handshake struct {
	Storage   ledger.Storage
	Referral  *referral.Engine
	Publisher Publisher
}

func NewHandshake(storage ledger.Storage, ref *referral.Engine, publisher Publisher) *Handshake {
	return &Handshake{
		Storage:   storage,
		Referral:  ref,
		Publisher: publisher,
	}
}

func NewToken() string {
	return uniuri.NewLenChars(TokenLen, tokenChars)
}

// ValidToken reports whether s looks like a token issued by StartLogin.
func ValidToken(s string) bool {
	if len(s) != TokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(string(tokenChars), rune(s[i])) {
			return false
		}
	}
	return true
}

// StartLogin creates a pending token for an anonymous browser session.
func (h *Handshake) StartLogin(ctx context.Context) (string, error) {
	token := NewToken()
	err := h.Storage.CreateLoginToken(ctx, &ledger.LoginToken{
		Token:  token,
		Status: ledger.TokenPending,
	})
	if err != nil {
		return "", ledger.StoreFailure("start login", err)
	}
	return token, nil
}

// PollLogin reports the token state. An authenticated token is consumed by
// the call that observes it, so the next poll gets PollInvalid.
func (h *Handshake) PollLogin(ctx context.Context, token string) (*PollResult, error) {
	if !ValidToken(token) {
		return &PollResult{Status: PollInvalid}, nil
	}
	claimed, err := h.Storage.ClaimLoginToken(ctx, token)
	if err == nil {
		return &PollResult{
			Status: PollAuthenticated,
			User: &ledger.User{
				Id:        claimed.UserId,
				FirstName: claimed.FirstName,
				Username:  claimed.Username,
			},
		}, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return nil, ledger.StoreFailure("poll login", err)
	}
	// Not claimable: either still pending, or gone.
	t, err := h.Storage.FindLoginToken(ctx, token)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return &PollResult{Status: PollInvalid}, nil
	case err != nil:
		return nil, ledger.StoreFailure("poll login", err)
	case t.Status == ledger.TokenPending:
		return &PollResult{Status: PollPending}, nil
	}
	// Authenticated between the claim and the read; the next poll claims it.
	return &PollResult{Status: PollPending}, nil
}

// FulfillLogin is called by the bot when a user opens the login link.
// The user is resolved (or registered) and the token authenticated in one
// transaction.
func (h *Handshake) FulfillLogin(ctx context.Context, token string, identity referral.Identity, code string) (FulfillResult, *ledger.User, error) {
	if !ValidToken(token) {
		return FulfillInvalidToken, nil, nil
	}
	result := FulfillOK
	var user *ledger.User
	err := h.Storage.Transaction(ctx, func(tx ledger.Storage) error {
		t, err := tx.FindLoginToken(ctx, token)
		if errors.Is(err, ledger.ErrNotFound) {
			result = FulfillInvalidToken
			return nil
		}
		if err != nil {
			return fmt.Errorf("find token: %w", err)
		}
		if t.Status != ledger.TokenPending {
			result = FulfillAlreadyUsed
			return nil
		}
		var created bool
		user, created, err = h.Referral.ResolveOrCreateUser(ctx, tx, identity, code)
		if err != nil {
			return err
		}
		ok, err := tx.AuthenticateLoginToken(ctx, token, user)
		if err != nil {
			return fmt.Errorf("authenticate token: %w", err)
		}
		if !ok {
			// Another update for the same link won the race.
			result = FulfillAlreadyUsed
			return ledger.ErrTokenAlreadyUsed
		}
		if created {
			logger.Info("user registered", zap.String("user", user.Id))
		}
		return nil
	})
	if errors.Is(err, ledger.ErrTokenAlreadyUsed) {
		return FulfillAlreadyUsed, nil, nil
	}
	if err != nil {
		return result, nil, ledger.StoreFailure("fulfill login", err)
	}
	if result != FulfillOK {
		return result, nil, nil
	}
	if h.Publisher != nil {
		if err := h.Publisher.LoginFulfilled(ctx, token); err != nil {
			logger.Warn("login notification failed", zap.Error(err))
		}
	}
	return FulfillOK, user, nil
}

// PurgeStale deletes tokens created more than ttl ago. Nobody polls them anymore.
func (h *Handshake) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := h.Storage.DeleteLoginTokensBefore(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, ledger.StoreFailure("purge login tokens", err)
	}
	return n, nil
}
