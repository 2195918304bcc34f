package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration, read from environment variables
// with defaults suited for local development.
type Config struct {
	Addr           string
	DBPath         string
	LogLevel       string
	Workers        int
	QueueCapacity  int
	LoadInterval   time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	CompletionMode string // "outbox" or "status"
	Executor       string // "sleep" or "webhook"
	WebhookURL     string
	WebhookTimeout time.Duration
	WorkDelay      time.Duration
	Debug          bool
}

func Load() Config {
	return Config{
		Addr:           getEnv("WORKPILE_ADDR", ":8080"),
		DBPath:         getEnv("WORKPILE_DB", "workpile.db"),
		LogLevel:       getEnv("WORKPILE_LOG_LEVEL", "info"),
		Workers:        getEnvInt("WORKPILE_WORKERS", 3),
		QueueCapacity:  getEnvInt("WORKPILE_QUEUE_CAPACITY", 1024),
		LoadInterval:   getEnvDuration("WORKPILE_LOAD_INTERVAL", 30*time.Second),
		MaxAttempts:    getEnvInt("WORKPILE_MAX_ATTEMPTS", 3),
		BackoffBase:    getEnvDuration("WORKPILE_BACKOFF_BASE", time.Second),
		CompletionMode: getEnv("WORKPILE_COMPLETION_MODE", "outbox"),
		Executor:       getEnv("WORKPILE_EXECUTOR", "sleep"),
		WebhookURL:     getEnv("WORKPILE_WEBHOOK_URL", ""),
		WebhookTimeout: getEnvDuration("WORKPILE_WEBHOOK_TIMEOUT", 30*time.Second),
		WorkDelay:      getEnvDuration("WORKPILE_WORK_DELAY", 100*time.Millisecond),
		Debug:          getEnvBool("WORKPILE_DEBUG", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
