package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOOM_SECRET_KEY", "0000000000000000000000000000000000000000000000000000000000000000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "loom.db", cfg.DB.Path)
	require.Equal(t, "@hourly", cfg.Scheduler.SyncSchedule)
	require.InDelta(t, 0.8, cfg.Reconcile.AutoApplyThreshold, 1e-9)
	require.Equal(t, uint(3), cfg.Apply.MaxAttempts)
}

func TestLoadRequiresSecretKey(t *testing.T) {
	t.Setenv("LOOM_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOOM_SECRET_KEY", "0000000000000000000000000000000000000000000000000000000000000000")
	t.Setenv("LOOM_SERVER_PORT", "9999")
	t.Setenv("LOOM_LOG_LEVEL", "debug")
	t.Setenv("LOOM_ANTHROPIC_MODEL", "claude-haiku-4-5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "claude-haiku-4-5", cfg.Anthropic.Model)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
scheduler:
  lease_ttl: 5m
reconcile:
  auto_apply_threshold: 0.9
`), 0o600))

	t.Setenv("LOOM_CONFIG_PATH", path)
	t.Setenv("LOOM_SECRET_KEY", "0000000000000000000000000000000000000000000000000000000000000000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, Duration(5*time.Minute), cfg.Scheduler.LeaseTTL)
	require.InDelta(t, 0.9, cfg.Reconcile.AutoApplyThreshold, 1e-9)
}
