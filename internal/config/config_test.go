package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.PresenceTTL)
	assert.Equal(t, 50*time.Millisecond, cfg.CoalesceWindow)
	assert.Equal(t, 15*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 100, cfg.MaxClientsPerSite)
	assert.Equal(t, int64(5000), cfg.MaxConnections)
	assert.NotEmpty(t, cfg.InstanceID)
}

func TestLoad_RequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PRESENCE_TTL_SECONDS", "45")
	t.Setenv("BROADCAST_COALESCE_MS", "100")
	t.Setenv("MAX_CLIENTS_PER_SITE", "10")
	t.Setenv("INSTANCE_ID", "test-instance")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.PresenceTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.CoalesceWindow)
	assert.Equal(t, 10, cfg.MaxClientsPerSite)
	assert.Equal(t, "test-instance", cfg.InstanceID)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric ttl", "PRESENCE_TTL_SECONDS", "abc"},
		{"zero ttl", "PRESENCE_TTL_SECONDS", "0"},
		{"negative coalesce window", "BROADCAST_COALESCE_MS", "-5"},
		{"non-numeric max clients", "MAX_CLIENTS_PER_SITE", "lots"},
		{"zero max clients", "MAX_CLIENTS_PER_SITE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
