package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv    string
	Port      string
	RedisURL  string
	LogLevel  string
	LogFormat string

	// InstanceID identifies this process in the fleet registry.
	InstanceID string

	// PresenceTTL is the expiry window applied at every presence write.
	// Long enough to bridge normal update intervals, short enough that a
	// silently dropped connection disappears promptly.
	PresenceTTL time.Duration

	// CoalesceWindow is how long broadcast triggers accumulate before
	// one scan-and-push serves them all.
	CoalesceWindow time.Duration

	// HeartbeatInterval is how often this instance renews its fleet
	// registration.
	HeartbeatInterval time.Duration

	MaxClientsPerSite int
	MaxConnections    int64
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		Port:       getEnv("PORT", "8080"),
		RedisURL:   getEnv("REDIS_URL", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "text"),
		InstanceID: getEnv("INSTANCE_ID", defaultInstanceID()),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	var err error
	if cfg.PresenceTTL, err = getDurationEnv("PRESENCE_TTL_SECONDS", time.Second, 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CoalesceWindow, err = getDurationEnv("BROADCAST_COALESCE_MS", time.Millisecond, 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = getDurationEnv("HEARTBEAT_SECONDS", time.Second, 15*time.Second); err != nil {
		return nil, err
	}

	maxPerSite, err := getIntEnv("MAX_CLIENTS_PER_SITE", 100)
	if err != nil {
		return nil, err
	}
	cfg.MaxClientsPerSite = maxPerSite

	maxConns, err := getIntEnv("MAX_CONNECTIONS", 5000)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnections = int64(maxConns)

	if cfg.PresenceTTL <= 0 {
		return nil, fmt.Errorf("PRESENCE_TTL_SECONDS must be positive")
	}
	if cfg.CoalesceWindow <= 0 {
		return nil, fmt.Errorf("BROADCAST_COALESCE_MS must be positive")
	}
	if cfg.MaxClientsPerSite <= 0 {
		return nil, fmt.Errorf("MAX_CLIENTS_PER_SITE must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getDurationEnv(key string, unit, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return time.Duration(value) * unit, nil
}

func defaultInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return uuid.NewString()
}
