package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxsync/otp/internal/config"
)

func TestLoadWithDefaultsUsesDefaultsWhenNothingElseSet(t *testing.T) {
	loader := config.NewLoader("CRUXTEST")
	require.NoError(t, loader.LoadWithDefaults(config.DefaultServerConfig(), ""))

	var cfg config.ServerConfig
	require.NoError(t, loader.UnmarshalAndValidate(&cfg))

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadWithDefaultsFilePathOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crux.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9999\"\nstore_driver: sqlite\nsqlite_path: /tmp/crux.db\n"), 0o644))

	loader := config.NewLoader("CRUXTEST")
	require.NoError(t, loader.LoadWithDefaults(config.DefaultServerConfig(), path))

	var cfg config.ServerConfig
	require.NoError(t, loader.UnmarshalAndValidate(&cfg))

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
}

func TestLoadWithDefaultsEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("CRUXTEST__HTTP_ADDR", ":7777")

	loader := config.NewLoader("CRUXTEST")
	require.NoError(t, loader.LoadWithDefaults(config.DefaultServerConfig(), ""))

	var cfg config.ServerConfig
	require.NoError(t, loader.UnmarshalAndValidate(&cfg))

	assert.Equal(t, ":7777", cfg.HTTPAddr)
}

func TestValidateRejectsUnknownStoreDriver(t *testing.T) {
	cfg := config.DefaultServerConfig()
	cfg.StoreDriver = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresSQLitePathForSQLiteDriver(t *testing.T) {
	cfg := config.DefaultServerConfig()
	cfg.StoreDriver = "sqlite"
	cfg.SQLitePath = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadWithDefaultsMissingFileErrors(t *testing.T) {
	loader := config.NewLoader("CRUXTEST")
	err := loader.LoadWithDefaults(config.DefaultServerConfig(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
