package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, Default().Addr, cfg.Addr)
	assert.Equal(t, 500, cfg.HistoryLimit)
	assert.True(t, cfg.SanitizeHTML)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9000\"\nhistory_limit: 50\nstore:\n  driver: sqlite\n  sqlite_path: /tmp/from-file.db\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("WIRECHAT_HISTORY_LIMIT", "25")
	t.Setenv("WIRECHAT_STORE_SQLITE_PATH", "/tmp/from-env.db")
	t.Setenv("WIRECHAT_TOKEN_TTL", "2h")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, "/tmp/from-env.db", cfg.Store.SQLitePath)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o600))

	_, _, err := Load(nil, path)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestUpdateFromOverridesNonZero(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", LogLevel: "debug", Store: StoreConfig{Driver: DriverMongo}})

	assert.Equal(t, ":1234", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, Default().Store.SQLitePath, cfg.Store.SQLitePath)
}
