package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Every field is sourced from the
// environment; a local .env file is loaded first when present.
type Config struct {
	Addr        string
	Environment string

	PostgresDSN string
	RedisURL    string

	AuthSecret string
	TokenTTL   time.Duration
	CacheTTL   time.Duration

	RateBurst  int
	RatePerSec int

	MaxBodyBytes int64
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	// Missing .env is fine; exported variables take over.
	_ = godotenv.Load()

	cfg := Config{
		Addr:         getEnv("REMITDESK_ADDR", ":8080"),
		Environment:  getEnv("REMITDESK_ENV", "development"),
		PostgresDSN:  os.Getenv("REMITDESK_PG_DSN"),
		RedisURL:     os.Getenv("REMITDESK_REDIS_URL"),
		AuthSecret:   os.Getenv("REMITDESK_AUTH_SECRET"),
		RateBurst:    getEnvInt("REMITDESK_RATE_BURST", 20),
		RatePerSec:   getEnvInt("REMITDESK_RATE_PER_SEC", 10),
		MaxBodyBytes: int64(getEnvInt("REMITDESK_MAX_BODY_BYTES", 1<<20)),
	}

	var err error
	if cfg.TokenTTL, err = getEnvDuration("REMITDESK_TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = getEnvDuration("REMITDESK_CACHE_TTL", 60*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("REMITDESK_AUTH_SECRET is required")
	}
	return cfg, nil
}

// Production reports whether the service runs with production error hygiene.
func (c Config) Production() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}
