package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Match.InitialTime)
	assert.Equal(t, time.Second, cfg.Match.TickInterval)
	assert.True(t, cfg.Match.Autosave)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Zero(t, cfg.Store.TTL)
	assert.Equal(t, "info", cfg.Development.LogLevel)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	data := `
server:
  port: 9090
match:
  initial_time: 10m
  autosave: false
store:
  driver: redis
  redis_url: redis://cache:6379/2
  ttl: 72h
development:
  debug: true
  log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 10*time.Minute, cfg.Match.InitialTime)
	assert.False(t, cfg.Match.Autosave)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis://cache:6379/2", cfg.Store.RedisURL)
	assert.Equal(t, 72*time.Hour, cfg.Store.TTL)
	assert.True(t, cfg.Development.Debug)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("HOTSEAT_SERVER_PORT", "7000")
	t.Setenv("HOTSEAT_STORE_DRIVER", "postgres")
	t.Setenv("HOTSEAT_MATCH_INITIAL_TIME", "5m")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Match.InitialTime)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("HOTSEAT_STORE_DRIVER", "sqlite")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [1, 2"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
