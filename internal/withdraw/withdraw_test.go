package withdraw

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

type notifierFunc func(ctx context.Context, req *ledger.WithdrawRequest) error

func (f notifierFunc) WithdrawalRequested(ctx context.Context, req *ledger.WithdrawRequest) error {
	return f(ctx, req)
}

func TestRequestWithdrawal(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 25000)
	var notified []*ledger.WithdrawRequest
	e := NewEngine(store, 20000, notifierFunc(func(_ context.Context, req *ledger.WithdrawRequest) error {
		notified = append(notified, req)
		return nil
	}))

	req, err := e.RequestWithdrawal(ctx, "1", "  So1anaAddr  ", 20000)
	require.NoError(t, err)
	assert.Equal(t, ledger.WithdrawPending, req.Status)
	assert.Equal(t, "So1anaAddr", req.Address)
	assert.NotZero(t, req.Id)
	require.Len(t, notified, 1)
	assert.Equal(t, req.Id, notified[0].Id)

	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 5000, balance)

	history, err := e.ListWithdrawHistory(ctx, "1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.EqualValues(t, 20000, history[0].Points)
}

func TestRequestWithdrawalValidation(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 25000)
	e := NewEngine(store, 20000, nil)

	cases := []struct {
		name    string
		address string
		points  int64
	}{
		{"below minimum", "addr", 19999},
		{"zero", "addr", 0},
		{"negative", "addr", -20000},
		{"empty address", "   ", 20000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.RequestWithdrawal(ctx, "1", tc.address, tc.points)
			assert.Equal(t, ledger.KindInvalidInput, ledger.KindOf(err))
		})
	}

	_, err := e.RequestWithdrawal(ctx, "1", "addr", 30000)
	var ib *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.EqualValues(t, 30000, ib.Requested)
	assert.EqualValues(t, 25000, ib.Available)

	_, err = e.RequestWithdrawal(ctx, "", "addr", 20000)
	assert.Equal(t, ledger.KindNotAuthenticated, ledger.KindOf(err))

	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 25000, balance)
	history, err := e.ListWithdrawHistory(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 30000)
	e := NewEngine(store, 20000, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.RequestWithdrawal(ctx, "1", "addr", 20000)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, ledger.KindInsufficientBalance, ledger.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)

	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 10000, balance)
}

type failingDebit struct {
	ledger.Storage
}

func (f failingDebit) AppendEvent(context.Context, *ledger.PointEvent) error {
	return errors.New("connection lost")
}

func (f failingDebit) Transaction(ctx context.Context, fn func(tx ledger.Storage) error) error {
	return f.Storage.Transaction(ctx, func(tx ledger.Storage) error {
		return fn(failingDebit{tx})
	})
}

func TestFailedDebitRollsBackRequest(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 25000)
	e := NewEngine(failingDebit{store}, 20000, nil)

	_, err := e.RequestWithdrawal(ctx, "1", "addr", 20000)
	assert.Equal(t, ledger.KindStoreFailure, ledger.KindOf(err))

	requests, err := store.ListWithdrawRequests(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, requests)
	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 25000, balance)
}

func TestNotifierFailureKeepsRequest(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 25000)
	e := NewEngine(store, 0, notifierFunc(func(context.Context, *ledger.WithdrawRequest) error {
		return errors.New("redis down")
	}))
	assert.EqualValues(t, DefaultMinWithdrawal, e.MinWithdrawal)

	_, err := e.RequestWithdrawal(ctx, "1", "addr", 20000)
	require.NoError(t, err)
	history, err := e.ListWithdrawHistory(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
