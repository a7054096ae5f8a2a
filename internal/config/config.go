package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory = "memory"
	StorePebble = "pebble"
	StoreMySQL  = "mysql"
)

// Config holds all runtime configuration for the marketplace.
type Config struct {
	Port            int
	LogLevel        string
	StoreDriver     string
	PebblePath      string
	MySQLDSN        string
	RedisAddr       string
	IdempotencyTTL  time.Duration
	WebhookTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	storeDriver := getStr("STORE_DRIVER", StoreMemory)
	if !isValidStoreDriver(storeDriver) {
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: memory, pebble, mysql", storeDriver)
	}

	idempotencyTTL, err := getDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	if idempotencyTTL <= 0 {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: must be positive")
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		StoreDriver:     storeDriver,
		PebblePath:      getStr("PEBBLE_PATH", "data/ledger"),
		MySQLDSN:        getStr("MYSQL_DSN", "root:root@tcp(localhost:3306)/marketplace?parseTime=true"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		IdempotencyTTL:  idempotencyTTL,
		WebhookTimeout:  webhookTimeout,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func isValidStoreDriver(driver string) bool {
	switch driver {
	case StoreMemory, StorePebble, StoreMySQL:
		return true
	}
	return false
}
