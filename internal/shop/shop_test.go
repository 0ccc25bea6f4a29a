package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinwheel/internal/ledger"
	"spinwheel/internal/ledger/ledgertest"
)

func TestPurchase(t *testing.T) {
	store := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.Seed(t, store, "1", 1500)
	e := NewEngine(store, Catalog{"extra_spin": 1000, "badge": 300})

	p, err := e.Purchase(ctx, "1", "extra_spin")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, p.Points)

	_, err = e.Purchase(ctx, "1", "extra_spin")
	var ib *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.EqualValues(t, 500, ib.Available)

	_, err = e.Purchase(ctx, "1", "unicorn")
	assert.Equal(t, ledger.KindInvalidInput, ledger.KindOf(err))

	balance, err := store.Balance(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 500, balance)

	purchases, err := e.ListPurchases(ctx, "1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "extra_spin", purchases[0].Item)
}

func TestCatalogItemsSorted(t *testing.T) {
	items := Catalog{"b": 300, "a": 300, "c": 100}.Items()
	assert.Equal(t, []Item{{"c", 100}, {"a", 300}, {"b", 300}}, items)
}
