// Package ledgertest opens throwaway migrated ledgers for tests.
package ledgertest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"spinwheel/internal/ledger"
)

// DSN returns a file-backed SQLite DSN in a temp dir. Transactions start with
// BEGIN IMMEDIATE so concurrent writers queue instead of failing.
func DSN(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	return fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=10000&_foreign_keys=on", path)
}

func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := ledger.Open(ledger.DriverSqlite, DSN(t))
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate(context.Background(), db))
	t.Cleanup(func() {
		_ = ledger.Close(db)
	})
	return db
}

func NewStore(t *testing.T) *ledger.Store {
	t.Helper()
	return ledger.NewStore(Open(t), 15*time.Second)
}

// Seed creates a user and credits it with points (0 for none).
func Seed(t *testing.T, store *ledger.Store, id string, points int64) *ledger.User {
	t.Helper()
	ctx := context.Background()
	user := &ledger.User{Id: id, FirstName: "User " + id, Username: "user" + id}
	created, err := store.CreateUser(ctx, user)
	require.NoError(t, err)
	require.True(t, created)
	if points != 0 {
		require.NoError(t, store.AppendEvent(ctx, &ledger.PointEvent{
			UserId:    id,
			Kind:      ledger.KindAdjustment,
			Points:    points,
			Reference: "seed",
		}))
	}
	return user
}
