package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Given: no config file and no overrides
	// When: loading the config
	conf, err := Load("")

	// Then: defaults are applied
	require.NoError(t, err)
	assert.Equal(t, "info", conf.LogLevel)
	assert.Equal(t, ":8080", conf.HTTP.Addr)
	assert.Equal(t, 5*time.Second, conf.HTTP.ShutdownTimeout)
	assert.Equal(t, "localhost:6379", conf.Redis.Addr)
	assert.Equal(t, 24*time.Hour, conf.Redis.GameTTL)
	assert.Equal(t, "hard", conf.Bot.DefaultDifficulty)
	assert.False(t, conf.Bot.ParallelSearch)
	assert.False(t, conf.Telemetry.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	// Given: environment overrides
	t.Setenv("REDIS_CONNSTRING", "redis:6380")
	t.Setenv("BOT_DEFAULT_DIFFICULTY", "easy")
	t.Setenv("JWT_TOKEN_TTL", "1h")

	// When: loading the config
	conf, err := Load("")

	// Then: the environment wins over defaults
	require.NoError(t, err)
	assert.Equal(t, "redis:6380", conf.Redis.Addr)
	assert.Equal(t, "easy", conf.Bot.DefaultDifficulty)
	assert.Equal(t, time.Hour, conf.Auth.TokenTTL)
}

func TestLoad_File(t *testing.T) {
	// Given: a YAML config file
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
log-level: debug
http:
  addr: ":9090"
sqlite:
  path: /tmp/games.db
bot:
  default-difficulty: medium
  parallel-search: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// When: loading it
	conf, err := Load(path)

	// Then: file values are used and the rest falls back to defaults
	require.NoError(t, err)
	assert.Equal(t, "debug", conf.LogLevel)
	assert.Equal(t, ":9090", conf.HTTP.Addr)
	assert.Equal(t, "/tmp/games.db", conf.SQLite.Path)
	assert.Equal(t, "medium", conf.Bot.DefaultDifficulty)
	assert.True(t, conf.Bot.ParallelSearch)
	assert.Equal(t, "localhost:6379", conf.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
