// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMS      SMSConfig
	Fraud    FraudConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// SMSConfig controls the outbound notification gate. An empty APIKey puts the
// gate in mock mode: messages are staged locally and never leave the process.
type SMSConfig struct {
	APIKey          string
	BaseURL         string
	DailyLimit      int
	AlertDailyLimit int
	RequestTimeout  time.Duration
}

// FraudConfig holds the rule-engine thresholds. Values are tunable but the
// rule precedence in internal/risk is fixed.
type FraudConfig struct {
	LargeAmountThreshold int64
	VelocityThreshold    int
	VelocityWindow       time.Duration
	// SwapLookback bounds how far back a device change still counts as a
	// recent swap. Zero means the whole event history is consulted.
	SwapLookback time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-secret"),
		},
		SMS: SMSConfig{
			APIKey:          getEnv("FAST2SMS_API_KEY", ""),
			BaseURL:         getEnv("FAST2SMS_BASE_URL", "https://www.fast2sms.com/dev/bulkV2"),
			DailyLimit:      getIntEnv("SMS_DAILY_LIMIT", 10),
			AlertDailyLimit: getIntEnv("SMS_ALERT_DAILY_LIMIT", 3),
			RequestTimeout:  getDurationEnv("SMS_REQUEST_TIMEOUT", 10*time.Second),
		},
		Fraud: FraudConfig{
			LargeAmountThreshold: getInt64Env("FRAUD_LARGE_AMOUNT_THRESHOLD", 50000),
			VelocityThreshold:    getIntEnv("FRAUD_VELOCITY_THRESHOLD", 5),
			VelocityWindow:       getDurationEnv("FRAUD_VELOCITY_WINDOW", 10*time.Minute),
			SwapLookback:         getDurationEnv("FRAUD_SWAP_LOOKBACK", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
