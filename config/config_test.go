package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "warehouse-jobs", cfg.QUEUE.Name)
	assert.Equal(t, 5, cfg.QUEUE.Concurrency)
	assert.Equal(t, 10, cfg.QUEUE.RateMax)
	assert.Equal(t, time.Second, cfg.QUEUE.RateDuration)
	assert.Equal(t, 24*time.Hour, cfg.QUEUE.CleanupGrace)
	assert.Empty(t, cfg.DATABASE.Redis.Url, "missing broker url is not a startup error")
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := `
APP:
  PORT: ":9090"
QUEUE:
  CONCURRENCY: 3
  CLEANUP_INTERVAL: 30m
DATABASE:
  REDIS:
    URL: redis://localhost:6379/0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yaml"), []byte(yaml), 0644))
	t.Setenv("WHJOBS_QUEUE_CONCURRENCY", "7")

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Port)
	assert.Equal(t, 7, cfg.QUEUE.Concurrency)
	assert.Equal(t, 30*time.Minute, cfg.QUEUE.CleanupInterval)
	assert.Equal(t, "redis://localhost:6379/0", cfg.DATABASE.Redis.Url)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yaml"), []byte("QUEUE: [unterminated"), 0644))

	_, err := Load(viper.New(), dir)
	assert.Error(t, err)
}
