package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralizes runtime settings for the CLI and the tracker.
type Config struct {
	AppEnv   string
	LogLevel string

	BaseURL        string
	APIToken       string
	RequestTimeout time.Duration
	MaxUploadMB    int

	PollBaseInterval time.Duration
	PollMaxInterval  time.Duration
	PollMinInterval  time.Duration

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisGroup    string
	RedisConsumer string
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BaseURL:        strings.TrimSuffix(getEnv("ATOMIZE_BASE_URL", "http://localhost:8000"), "/"),
		APIToken:       getEnv("ATOMIZE_API_TOKEN", ""),
		RequestTimeout: getEnvMillis("ATOMIZE_TIMEOUT_MS", 30000),
		MaxUploadMB:    getEnvInt("ATOMIZE_MAX_UPLOAD_MB", 1024),

		PollBaseInterval: getEnvMillis("POLL_BASE_INTERVAL_MS", 1000),
		PollMaxInterval:  getEnvMillis("POLL_MAX_INTERVAL_MS", 5000),
		PollMinInterval:  getEnvMillis("POLL_MIN_INTERVAL_MS", 250),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "atomize_job_events"),
		RedisGroup:    getEnv("REDIS_GROUP", "atomize_watchers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "cli-1"),
	}
}

// MaxUploadBytes returns the upload cap, or 0 when uncapped.
func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}
