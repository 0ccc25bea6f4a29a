package ledger

import (
	"context"
	"time"
)

// Storage is everything the engines need from the database. Methods called
// on the Storage passed to a Transaction callback run inside that transaction.
type Storage interface {
	Transaction(ctx context.Context, fn func(tx Storage) error) error
	// Savepoint runs fn in a nested transaction: a failure rolls back only
	// fn's writes and leaves the outer transaction usable.
	Savepoint(ctx context.Context, fn func(tx Storage) error) error

	// user
	FindUser(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, user *User) (created bool, err error)
	UpdateUserProfile(ctx context.Context, user *User) error
	LockUser(ctx context.Context, id string) (*User, error)

	// points
	AppendEvent(ctx context.Context, event *PointEvent) error
	Balance(ctx context.Context, userId string) (int64, error)
	HasSpunOn(ctx context.Context, userId string, day string, from, to time.Time) (bool, error)
	ListEvents(ctx context.Context, userId string, limit, offset int) ([]PointEvent, int64, error)

	// referral
	CreateReferralEdge(ctx context.Context, edge *ReferralEdge) error
	ListReferrals(ctx context.Context, referrerId string, limit, offset int) ([]ReferralEdge, int64, error)

	// login token
	CreateLoginToken(ctx context.Context, token *LoginToken) error
	FindLoginToken(ctx context.Context, token string) (*LoginToken, error)
	AuthenticateLoginToken(ctx context.Context, token string, user *User) (bool, error)
	ClaimLoginToken(ctx context.Context, token string) (*LoginToken, error)
	DeleteLoginTokensBefore(ctx context.Context, before time.Time) (int64, error)

	// withdraw
	CreateWithdrawRequest(ctx context.Context, req *WithdrawRequest) error
	ListWithdrawRequests(ctx context.Context, userId string) ([]WithdrawRequest, error)

	// purchase
	CreatePurchase(ctx context.Context, purchase *Purchase) error
	ListPurchases(ctx context.Context, userId string) ([]Purchase, error)
}
