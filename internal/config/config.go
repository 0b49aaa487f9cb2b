// Package config provides configuration for the chat server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendKV     = "kv"
)

// Key-value drivers used by the kv backend.
const (
	KVDriverSQLite = "sqlite"
	KVDriverRedis  = "redis"
	KVDriverMemory = "memory"
)

// Reply schedulers.
const (
	SchedulerTimer = "timer"
	SchedulerAsynq = "asynq"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Chat storage
	StoreBackend string
	KVDriver     string
	DatabaseURL  string
	RedisURL     string
	KVNamespace  string

	// Admin directory
	AdminDatabaseURL string

	// Reply dispatcher
	Scheduler      string
	ReplyDelay     time.Duration
	ReplyLocale    string
	SeedSampleData bool

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 5000),
		StoreBackend:     getEnv("STORE_BACKEND", BackendMemory),
		KVDriver:         getEnv("KV_DRIVER", KVDriverSQLite),
		DatabaseURL:      getEnv("DATABASE_URL", "file:chat.db?cache=shared&mode=rwc"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		KVNamespace:      getEnv("KV_NAMESPACE", "default"),
		AdminDatabaseURL: getEnv("ADMIN_DATABASE_URL", "file:admin.db?cache=shared&mode=rwc"),
		Scheduler:        getEnv("SCHEDULER", SchedulerTimer),
		ReplyDelay:       time.Duration(getEnvInt("REPLY_DELAY_MS", 1500)) * time.Millisecond,
		ReplyLocale:      getEnv("REPLY_LOCALE", "en"),
		SeedSampleData:   getEnvBool("SEED_SAMPLE_DATA", true),
		PingInterval:     time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:     time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:      time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:   int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports unknown enum values and impossible durations.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendMemory, BackendKV:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend))
	}
	switch c.KVDriver {
	case KVDriverSQLite, KVDriverRedis, KVDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("KV_DRIVER: unknown driver %q", c.KVDriver))
	}
	switch c.Scheduler {
	case SchedulerTimer, SchedulerAsynq:
	default:
		errs = append(errs, fmt.Errorf("SCHEDULER: unknown scheduler %q", c.Scheduler))
	}
	switch c.ReplyLocale {
	case "en", "ko":
	default:
		errs = append(errs, fmt.Errorf("REPLY_LOCALE: unsupported locale %q", c.ReplyLocale))
	}
	if c.ReplyDelay < 0 {
		errs = append(errs, errors.New("REPLY_DELAY_MS must not be negative"))
	}
	if c.HTTPPort <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_PORT: invalid port %d", c.HTTPPort))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}
