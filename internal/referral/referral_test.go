package referral

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinwheel/internal/ledger"
	"spinwheel/internal/ledger/ledgertest"
)

func register(t *testing.T, e *Engine, storage ledger.Storage, identity Identity, code string) (*ledger.User, bool) {
	t.Helper()
	var user *ledger.User
	var created bool
	err := storage.Transaction(context.Background(), func(tx ledger.Storage) error {
		var err error
		user, created, err = e.ResolveOrCreateUser(context.Background(), tx, identity, code)
		return err
	})
	require.NoError(t, err)
	return user, created
}

func TestReferralBonusIsGrantedOnce(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 500)
	ledgertest.Seed(t, store, "100", 0)

	user, created := register(t, e, store, Identity{Id: "200", FirstName: "B"}, "100")
	assert.True(t, created)
	require.NotNil(t, user.ReferrerId)
	assert.Equal(t, "100", *user.ReferrerId)

	balance, err := store.Balance(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 500, balance)

	user, created = register(t, e, store, Identity{Id: "200", FirstName: "B"}, "100")
	assert.False(t, created)
	require.NotNil(t, user.ReferrerId)

	balance, err = store.Balance(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 500, balance)

	edges, total, err := e.ListReferrals(context.Background(), "100", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, edges, 1)
	assert.Equal(t, "200", edges[0].ReferredId)
}

func TestSelfReferralIsIgnored(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 500)

	user, created := register(t, e, store, Identity{Id: "300"}, "300")
	assert.True(t, created)
	assert.Nil(t, user.ReferrerId)

	balance, err := store.Balance(context.Background(), "300")
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)
}

func TestUnknownReferralCodeFailsOpen(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 500)

	user, created := register(t, e, store, Identity{Id: "300"}, "999")
	assert.True(t, created)
	assert.Nil(t, user.ReferrerId)
}

func TestReturningUserKeepsReferrer(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 500)
	ledgertest.Seed(t, store, "100", 0)

	_, created := register(t, e, store, Identity{Id: "200", FirstName: "B"}, "")
	require.True(t, created)

	user, created := register(t, e, store, Identity{Id: "200", FirstName: "Bee", Username: "bee"}, "100")
	assert.False(t, created)
	assert.Nil(t, user.ReferrerId)
	assert.Equal(t, "Bee", user.FirstName)

	balance, err := store.Balance(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)
}

type failingBonus struct {
	ledger.Storage
}

func (f failingBonus) AppendEvent(ctx context.Context, event *ledger.PointEvent) error {
	if event.Kind == ledger.KindReferral {
		return errors.New("disk full")
	}
	return f.Storage.AppendEvent(ctx, event)
}

func (f failingBonus) Savepoint(ctx context.Context, fn func(tx ledger.Storage) error) error {
	return f.Storage.Savepoint(ctx, func(tx ledger.Storage) error {
		return fn(failingBonus{tx})
	})
}

func TestBookkeepingFailureKeepsRegistration(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 500)
	ledgertest.Seed(t, store, "100", 0)

	var user *ledger.User
	err := store.Transaction(context.Background(), func(tx ledger.Storage) error {
		var err error
		user, _, err = e.ResolveOrCreateUser(context.Background(), failingBonus{tx}, Identity{Id: "200"}, "100")
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, user.ReferrerId)

	found, err := store.FindUser(context.Background(), "200")
	require.NoError(t, err)
	assert.Equal(t, "200", found.Id)

	// The edge written before the failure was rolled back with the savepoint.
	_, total, err := e.ListReferrals(context.Background(), "100", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	balance, err := store.Balance(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)
}

func TestConcurrentRegistrationCreditsOnce(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 500)
	ledgertest.Seed(t, store, "100", 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Transaction(context.Background(), func(tx ledger.Storage) error {
				_, created, err := e.ResolveOrCreateUser(context.Background(), tx, Identity{Id: "200"}, "100")
				if created {
					mu.Lock()
					createdCount++
					mu.Unlock()
				}
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	balance, err := store.Balance(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 500, balance)
}

func TestMissingIdentityIsInvalid(t *testing.T) {
	store := ledgertest.NewStore(t)
	e := NewEngine(store, 0)
	assert.EqualValues(t, DefaultBonus, e.Bonus)

	err := store.Transaction(context.Background(), func(tx ledger.Storage) error {
		_, _, err := e.ResolveOrCreateUser(context.Background(), tx, Identity{}, "")
		return err
	})
	assert.Equal(t, ledger.KindInvalidInput, ledger.KindOf(err))
}
