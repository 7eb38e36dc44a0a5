package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// APIKeyEnv is the environment variable holding the upstream credential.
// It is read at request time, not at startup, so a rotated key takes
// effect without a restart.
const APIKeyEnv = "ANTHROPIC_API_KEY"

type Config struct {
	ServerPort string
	LogLevel   string

	// Rate limiting
	RateLimitWindow   time.Duration
	RateLimitMax      int
	RateLimitDailyCap int

	// Optional integrations; empty means disabled
	DatabaseURL   string
	RedisURL      string
	FetchCacheTTL time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		RateLimitMax:      getEnvInt("RATE_LIMIT_MAX", 3),
		RateLimitDailyCap: getEnvInt("RATE_LIMIT_DAILY_CAP", 100),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		FetchCacheTTL:     getEnvDuration("FETCH_CACHE_TTL", 5*time.Minute),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
