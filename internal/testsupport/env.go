package testsupport

import (
	"os"
	"strconv"
	"testing"

	"leverguard/internal/adapters/config"
)

// LoadPostgresConfigFromEnv reads the ledger database used by integration tests.
// The test is skipped when the environment is not set up.
func LoadPostgresConfigFromEnv(t *testing.T) config.PostgresConfig {
	t.Helper()
	requireEnv(t, "POSTGRES_HOST", "POSTGRES_USER", "POSTGRES_DB")

	return config.PostgresConfig{
		Enabled:  true,
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     intValue("POSTGRES_PORT", 5432),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: os.Getenv("POSTGRES_DB"),
		SSLMode:  valueWithDefault("POSTGRES_SSL_MODE", "disable"),
		MaxConns: 4,
	}
}

// LoadRedisConfigFromEnv reads the Redis instance used by integration tests
func LoadRedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()
	requireEnv(t, "REDIS_HOST")

	return config.RedisConfig{
		Enabled:      true,
		Host:         os.Getenv("REDIS_HOST"),
		Port:         intValue("REDIS_PORT", 6379),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           intValue("REDIS_DB", 1),
		AlertChannel: "leverguard:test:alerts",
		PricePrefix:  "price:",
	}
}

func requireEnv(t *testing.T, keys ...string) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v to run", missing)
	}
}

func valueWithDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intValue(key string, fallback int) int {
	if parsed, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return parsed
	}
	return fallback
}
