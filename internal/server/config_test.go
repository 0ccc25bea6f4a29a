package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": "9000",
		"botUsername": "spin_bot",
		"tokenTtl": "30m",
		"settings": {"minWithdrawal": 50000, "store": {"hat": 10}}
	}`), 0o600))

	config, err := ConfigLoad(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", config.Port)
	assert.Equal(t, "spin_bot", config.BotUsername)
	assert.Equal(t, 30*time.Minute, config.TokenTtl.Duration)
	assert.Equal(t, time.Second, config.RateLimitWindow.Duration)
	assert.EqualValues(t, 50000, config.Settings.MinWithdrawal)
	assert.EqualValues(t, 500, config.Settings.ReferralBonus)
	assert.EqualValues(t, 10, config.Settings.Store["hat"])
	assert.EqualValues(t, 300, config.Settings.Store["badge"])

	opts := config.Options()
	require.NotNil(t, opts.Settings)
	assert.NoError(t, opts.Settings.Validate())
}

func TestConfigLoadMissingFile(t *testing.T) {
	config, err := ConfigLoad(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Port, config.Port)
}

func TestConfigLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jwtTtl": "soon"}`), 0o600))
	_, err := ConfigLoad(path)
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "./config.json", ConfigPath([]string{"spinwheel"}))
	assert.Equal(t, "./config.json", ConfigPath([]string{"spinwheel", "api"}))
	assert.Equal(t, "prod.json", ConfigPath([]string{"spinwheel", "prod.json", "api"}))
}
