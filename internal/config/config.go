package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string
	RemoteBaseURL   string
	StorageBackend  string
	StateDir        string
	SQLitePath      string
	RedisAddr       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		RemoteBaseURL:   envOrDefault("REMOTE_BASE_URL", "http://localhost:8080"),
		StorageBackend:  envOrDefault("STORAGE_BACKEND", "memory"),
		StateDir:        envOrDefault("STATE_DIR", ".storefront-state"),
		SQLitePath:      envOrDefault("SQLITE_PATH", "storefront-state.db"),
		RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
		RequestTimeout:  envDuration("REQUEST_TIMEOUT_SECONDS", 10*time.Second),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}
