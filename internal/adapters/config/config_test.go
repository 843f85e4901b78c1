package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leverguard/pkg/errors"
)

func defaults(t *testing.T) *Config {
	t.Helper()
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))
	return &cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "leverguard", cfg.App.Name)
	assert.Equal(t, 3001, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 5*time.Second, cfg.Monitor.SinkTimeout)
	assert.Equal(t, 0.7, cfg.Monitor.WarningThreshold)
	assert.Equal(t, 0.9, cfg.Monitor.CriticalThreshold)
	assert.Equal(t, 2.0, cfg.Monitor.LeverageFloor)
	assert.Equal(t, 0.7, cfg.Monitor.LeverageReduction)
	assert.Equal(t, 1000, cfg.Monitor.AlertLogSize)
	assert.Equal(t, SourceDemo, cfg.Monitor.PositionSource)
	assert.Equal(t, FeedSimulated, cfg.Monitor.PriceFeed)
	assert.False(t, cfg.Narrative.Enabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL", "5s")
	t.Setenv("MONITOR_WARNING_THRESHOLD", "0.6")
	t.Setenv("NARRATIVE_PROVIDER", "openai")
	t.Setenv("NARRATIVE_API_KEY", "sk-test")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 0.6, cfg.Monitor.WarningThreshold)
	assert.True(t, cfg.Narrative.Enabled())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"warning above critical", func(c *Config) { c.Monitor.WarningThreshold = 0.95 }},
		{"critical above one", func(c *Config) { c.Monitor.CriticalThreshold = 1.2 }},
		{"zero warning", func(c *Config) { c.Monitor.WarningThreshold = 0 }},
		{"floor below one", func(c *Config) { c.Monitor.LeverageFloor = 0.5 }},
		{"reduction of one", func(c *Config) { c.Monitor.LeverageReduction = 1 }},
		{"zero interval", func(c *Config) { c.Monitor.Interval = 0 }},
		{"zero log size", func(c *Config) { c.Monitor.AlertLogSize = 0 }},
		{"unknown source", func(c *Config) { c.Monitor.PositionSource = "chain" }},
		{"postgres source without postgres", func(c *Config) { c.Monitor.PositionSource = SourcePostgres }},
		{"redis feed without redis", func(c *Config) { c.Monitor.PriceFeed = FeedRedis }},
		{"narrative without key", func(c *Config) { c.Narrative.Provider = ProviderGemini }},
		{"unknown narrative provider", func(c *Config) { c.Narrative.Provider = "claude" }},
		{"telegram without chat", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.BotToken = "t" }},
		{"sentry without dsn", func(c *Config) { c.ErrorTracking.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestValidate_DefaultsPass(t *testing.T) {
	assert.NoError(t, defaults(t).Validate())
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "ledger", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ledger sslmode=disable", c.DSN())
}
