package wheelapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinwheel/internal/api/jwt"
	"spinwheel/internal/ledger/ledgertest"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLoadAppConfigSeedsCache(t *testing.T) {
	mr, rdb := newRedis(t)
	defaults := DefaultAppConfig()

	got := LoadAppConfig(context.Background(), rdb, defaults)
	assert.Same(t, defaults, got)

	raw, err := mr.Get(appConfigKey)
	require.NoError(t, err)
	var cached AppConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, defaults.Settings.MinWithdrawal, cached.Settings.MinWithdrawal)
	assert.Equal(t, defaults.Settings.Slices, cached.Settings.Slices)
}

func TestLoadAppConfigPrefersCache(t *testing.T) {
	mr, rdb := newRedis(t)
	override := DefaultAppConfig()
	override.Settings.MinWithdrawal = 100000
	data, err := json.Marshal(override)
	require.NoError(t, err)
	require.NoError(t, mr.Set(appConfigKey, string(data)))

	got := LoadAppConfig(context.Background(), rdb, DefaultAppConfig())
	assert.EqualValues(t, 100000, got.Settings.MinWithdrawal)
}

func TestLoadAppConfigIgnoresBrokenCache(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set(appConfigKey, `{"settings":{"minWithdrawal":-1}}`))

	defaults := DefaultAppConfig()
	assert.Same(t, defaults, LoadAppConfig(context.Background(), rdb, defaults))
}

func TestNewAppRejectsBadSettings(t *testing.T) {
	issuer, err := jwt.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	config := DefaultAppConfig()
	config.Settings.JackpotRange = [2]int64{5000, 2000}
	_, err = NewApp(ledgertest.Open(t), nil, nil, config, issuer, time.Second)
	assert.Error(t, err)

	app, err := NewApp(ledgertest.Open(t), nil, nil, DefaultAppConfig(), issuer, time.Second)
	require.NoError(t, err)
	assert.Nil(t, app.Login.Publisher)
	assert.Nil(t, app.Withdraw.Notifier)
}

func TestLoginPublisher(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, LoginChannel("tok"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, NewLoginPublisher(rdb).LoginFulfilled(ctx, "tok"))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, LoginFulfilledMessage, msg.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no login message")
	}
}
