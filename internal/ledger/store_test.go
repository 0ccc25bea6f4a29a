package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinwheel/internal/ledger"
	"spinwheel/internal/ledger/ledgertest"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db := ledgertest.Open(t)
	ctx := context.Background()

	require.NoError(t, ledger.Migrate(ctx, db))
	version, err := ledger.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	var applied int64
	require.NoError(t, db.Model(&ledger.SchemaMigration{}).Count(&applied).Error)
	assert.EqualValues(t, 2, applied)
	assert.True(t, db.Migrator().HasColumn("point_events", "kind"))
	assert.True(t, db.Migrator().HasIndex("point_events", "idx_point_events_user_spin_day"))
}

func TestBalanceIsSumOfEvents(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 0)

	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)

	for _, p := range []int64{500, 1000, -300} {
		require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindAdjustment, Points: p}))
	}
	balance, err = store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1200, balance)

	balance, err = store.Balance(ctx, "unknown")
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)
}

func TestCreateUserKeepsExistingRow(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	referrer := "7"

	created, err := store.CreateUser(ctx, &ledger.User{Id: "1", FirstName: "Ann", ReferrerId: &referrer})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateUser(ctx, &ledger.User{Id: "1", FirstName: "Bob"})
	require.NoError(t, err)
	assert.False(t, created)

	user, err := store.FindUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.FirstName)
	require.NotNil(t, user.ReferrerId)
	assert.Equal(t, "7", *user.ReferrerId)

	require.NoError(t, store.UpdateUserProfile(ctx, &ledger.User{Id: "1", FirstName: "Anna", Username: "anna"}))
	user, err = store.FindUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.FirstName)
	assert.Equal(t, "anna", user.Username)
	require.NotNil(t, user.ReferrerId)

	_, err = store.FindUser(ctx, "2")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestLoginTokenLifecycle(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateLoginToken(ctx, &ledger.LoginToken{Token: "abc", Status: ledger.TokenPending}))

	_, err := store.ClaimLoginToken(ctx, "abc")
	assert.ErrorIs(t, err, ledger.ErrNotFound, "pending tokens cannot be claimed")

	user := &ledger.User{Id: "42", FirstName: "Ann", Username: "ann"}
	ok, err := store.AuthenticateLoginToken(ctx, "abc", user)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AuthenticateLoginToken(ctx, "abc", user)
	require.NoError(t, err)
	assert.False(t, ok, "only pending tokens move to authenticated")

	claimed, err := store.ClaimLoginToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "42", claimed.UserId)
	assert.Equal(t, "Ann", claimed.FirstName)
	assert.Equal(t, ledger.TokenAuthenticated, claimed.Status)

	_, err = store.ClaimLoginToken(ctx, "abc")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = store.FindLoginToken(ctx, "abc")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteLoginTokensBefore(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)
	require.NoError(t, store.CreateLoginToken(ctx, &ledger.LoginToken{Token: "old", Status: ledger.TokenPending, CreatedAt: old}))
	require.NoError(t, store.CreateLoginToken(ctx, &ledger.LoginToken{Token: "new", Status: ledger.TokenPending}))

	n, err := store.DeleteLoginTokensBefore(ctx, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.FindLoginToken(ctx, "new")
	assert.NoError(t, err)
}

func TestSpinDayIsUniquePerUser(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 0)
	day := "2026-10-16"

	require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindSpin, Points: 10, SpinDay: &day}))
	err := store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindSpin, Points: 20, SpinDay: &day})
	assert.ErrorIs(t, err, ledger.ErrDuplicate)

	// Rows without a spin day never collide.
	require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindWithdrawal, Points: -5}))
	require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindWithdrawal, Points: -5}))
}

func TestHasSpunOnIgnoresOtherKinds(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 1000)
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)
	day := from.Format("2006-01-02")

	require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindWithdrawal, Points: -100}))
	require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindReferral, Points: 500}))
	spun, err := store.HasSpunOn(ctx, "1", day, from, to)
	require.NoError(t, err)
	assert.False(t, spun)

	// A spin written before spin_day existed is found by its timestamp.
	require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindSpin, Points: 50}))
	spun, err = store.HasSpunOn(ctx, "1", day, from, to)
	require.NoError(t, err)
	assert.True(t, spun)

	spun, err = store.HasSpunOn(ctx, "1", to.Format("2006-01-02"), to, to.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, spun)
}

func TestListWithdrawRequestsNewestFirst(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 0)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateWithdrawRequest(ctx, &ledger.WithdrawRequest{
			UserId:    "1",
			Points:    int64(20000 + i),
			Address:   "addr",
			Status:    ledger.WithdrawPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	requests, err := store.ListWithdrawRequests(ctx, "1")
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.EqualValues(t, 20002, requests[0].Points)
	assert.EqualValues(t, 20000, requests[2].Points)

	requests, err = store.ListWithdrawRequests(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestSavepointRollsBackOnlyInnerWrites(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 0)

	err := store.Transaction(ctx, func(tx ledger.Storage) error {
		if err := tx.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindAdjustment, Points: 10}); err != nil {
			return err
		}
		inner := tx.Savepoint(ctx, func(sp ledger.Storage) error {
			if err := sp.AppendEvent(ctx, &ledger.PointEvent{UserId: "1", Kind: ledger.KindAdjustment, Points: 99}); err != nil {
				return err
			}
			return ledger.Conflict("boom")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, balance)
}
