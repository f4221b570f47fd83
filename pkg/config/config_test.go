package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "NO URUT", cfg.Source.KeyColumn)
	assert.Equal(t, "DATA AGENDA SURAT MASUK 2025", cfg.Source.Table)
	assert.Equal(t, 2025, cfg.Source.TargetYear)
	assert.Equal(t, "surat_masuk", cfg.Firestore.RecordsCollection)
	assert.Equal(t, "config", cfg.Firestore.ConfigCollection)
	assert.Equal(t, "system", cfg.Firestore.ConfigDocument)
	assert.Equal(t, "sync_signal.txt", cfg.Drive.SignalName)
	assert.Equal(t, StateBackendFile, cfg.State.Backend)
	assert.Equal(t, time.Minute, cfg.Control.TickInterval)
	assert.Equal(t, 10, cfg.Control.SyncEveryTick)
	assert.Equal(t, 15*time.Second, cfg.Control.ConfigTimeout)
	assert.Equal(t, 8317, cfg.Admin.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOURCE_DB_PATH", "/mnt/shared/agenda.db")
	t.Setenv("STATE_BACKEND", "redis")
	t.Setenv("CONTROL_TICK_INTERVAL", "30s")
	t.Setenv("SYNC_EVERY_TICKS", "5")
	t.Setenv("ADMIN_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/mnt/shared/agenda.db", cfg.Source.DBPath)
	assert.Equal(t, StateBackendRedis, cfg.State.Backend)
	assert.Equal(t, 30*time.Second, cfg.Control.TickInterval)
	assert.Equal(t, 5, cfg.Control.SyncEveryTick)
	assert.Equal(t, 9000, cfg.Admin.Port)
}

func TestLoadRejectsUnknownStateBackend(t *testing.T) {
	t.Setenv("STATE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("not-a-duration", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}
