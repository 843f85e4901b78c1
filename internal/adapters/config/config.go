package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"leverguard/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Monitor       MonitorConfig
	Narrative     NarrativeConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"leverguard"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`
}

type HTTPConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"3001"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// Position sources and price feeds
const (
	SourceDemo     = "demo"
	SourcePostgres = "postgres"

	FeedSimulated = "simulated"
	FeedRedis     = "redis"
)

// MonitorConfig controls the risk evaluation loop
type MonitorConfig struct {
	Interval          time.Duration `envconfig:"MONITOR_INTERVAL" default:"30s"`
	WarningThreshold  float64       `envconfig:"MONITOR_WARNING_THRESHOLD" default:"0.7"`
	CriticalThreshold float64       `envconfig:"MONITOR_CRITICAL_THRESHOLD" default:"0.9"`
	LeverageFloor     float64       `envconfig:"MONITOR_LEVERAGE_FLOOR" default:"2"`
	LeverageReduction float64       `envconfig:"MONITOR_LEVERAGE_REDUCTION" default:"0.7"`
	AlertLogSize      int           `envconfig:"MONITOR_ALERT_LOG_SIZE" default:"1000"`
	MaxConcurrency    int           `envconfig:"MONITOR_MAX_CONCURRENCY" default:"8"`
	PriceFeed         string        `envconfig:"MONITOR_PRICE_FEED" default:"simulated"`
	PriceVolatility   float64       `envconfig:"MONITOR_PRICE_VOLATILITY" default:"0.02"`
	PositionSource    string        `envconfig:"MONITOR_POSITION_SOURCE" default:"demo"`
	AutoMitigation    bool          `envconfig:"MONITOR_AUTO_MITIGATION" default:"true"`
	StopTimeout       time.Duration `envconfig:"MONITOR_STOP_TIMEOUT" default:"2m"`
	PublishBufferSize int           `envconfig:"MONITOR_SUBSCRIBER_BUFFER" default:"256"`
	SinkTimeout       time.Duration `envconfig:"MONITOR_SINK_TIMEOUT" default:"5s"`
}

// Narrative providers
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type NarrativeConfig struct {
	Provider          string        `envconfig:"NARRATIVE_PROVIDER" default:"none"`
	APIKey            string        `envconfig:"NARRATIVE_API_KEY"`
	BaseURL           string        `envconfig:"NARRATIVE_BASE_URL"`
	Model             string        `envconfig:"NARRATIVE_MODEL"`
	Timeout           time.Duration `envconfig:"NARRATIVE_TIMEOUT" default:"20s"`
	RequestsPerMinute int           `envconfig:"NARRATIVE_REQUESTS_PER_MINUTE" default:"30"`
	MaxTokens         int64         `envconfig:"NARRATIVE_MAX_TOKENS" default:"300"`
	SkipStartupCheck  bool          `envconfig:"NARRATIVE_SKIP_STARTUP_CHECK" default:"false"`
}

// Enabled reports whether a narrative provider is configured
func (c NarrativeConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

type PostgresConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	// AlertChannel is the pub/sub channel alerts are published on
	AlertChannel string `envconfig:"REDIS_ALERT_CHANNEL" default:"leverguard:alerts"`
	// PricePrefix prefixes the price cache keys, e.g. price:ETH
	PricePrefix string `envconfig:"REDIS_PRICE_PREFIX" default:"price:"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled    bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers    []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	AlertTopic string   `envconfig:"KAFKA_ALERT_TOPIC" default:"risk.alerts"`
}

type TelegramConfig struct {
	Enabled  bool   `envconfig:"TELEGRAM_ENABLED" default:"false"`
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the monitor cannot start with
func (c *Config) Validate() error {
	var errs errors.MultiError
	m := c.Monitor

	if m.WarningThreshold <= 0 || m.WarningThreshold >= m.CriticalThreshold || m.CriticalThreshold > 1 {
		errs.Add(fmt.Errorf("thresholds must satisfy 0 < warning < critical <= 1, got %v / %v", m.WarningThreshold, m.CriticalThreshold))
	}
	if m.LeverageFloor < 1 {
		errs.Add(fmt.Errorf("MONITOR_LEVERAGE_FLOOR must be >= 1, got %v", m.LeverageFloor))
	}
	if m.LeverageReduction <= 0 || m.LeverageReduction >= 1 {
		errs.Add(fmt.Errorf("MONITOR_LEVERAGE_REDUCTION must be in (0, 1), got %v", m.LeverageReduction))
	}
	if m.Interval <= 0 {
		errs.Add(fmt.Errorf("MONITOR_INTERVAL must be positive, got %s", m.Interval))
	}
	if m.AlertLogSize <= 0 {
		errs.Add(fmt.Errorf("MONITOR_ALERT_LOG_SIZE must be positive, got %d", m.AlertLogSize))
	}
	if m.MaxConcurrency <= 0 {
		errs.Add(fmt.Errorf("MONITOR_MAX_CONCURRENCY must be positive, got %d", m.MaxConcurrency))
	}
	if m.PriceVolatility < 0 || m.PriceVolatility >= 1 {
		errs.Add(fmt.Errorf("MONITOR_PRICE_VOLATILITY must be in [0, 1), got %v", m.PriceVolatility))
	}

	switch m.PositionSource {
	case SourceDemo:
	case SourcePostgres:
		if !c.Postgres.Enabled {
			errs.Add(fmt.Errorf("MONITOR_POSITION_SOURCE=postgres requires POSTGRES_ENABLED"))
		}
	default:
		errs.Add(fmt.Errorf("unknown MONITOR_POSITION_SOURCE %q", m.PositionSource))
	}

	switch m.PriceFeed {
	case FeedSimulated:
	case FeedRedis:
		if !c.Redis.Enabled {
			errs.Add(fmt.Errorf("MONITOR_PRICE_FEED=redis requires REDIS_ENABLED"))
		}
	default:
		errs.Add(fmt.Errorf("unknown MONITOR_PRICE_FEED %q", m.PriceFeed))
	}

	switch strings.ToLower(c.Narrative.Provider) {
	case "", ProviderNone:
	case ProviderOpenAI, ProviderGemini:
		if c.Narrative.APIKey == "" {
			errs.Add(fmt.Errorf("NARRATIVE_API_KEY is required for provider %s", c.Narrative.Provider))
		}
	default:
		errs.Add(fmt.Errorf("unknown NARRATIVE_PROVIDER %q", c.Narrative.Provider))
	}

	if c.Postgres.Enabled && (c.Postgres.User == "" || c.Postgres.Database == "") {
		errs.Add(fmt.Errorf("POSTGRES_USER and POSTGRES_DB are required when POSTGRES_ENABLED"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs.Add(fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED"))
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		errs.Add(fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED"))
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.SentryDSN == "" {
		errs.Add(fmt.Errorf("SENTRY_DSN is required when ERROR_TRACKING_ENABLED"))
	}

	if errs.HasErrors() {
		return errors.Wrapf(errors.ErrInvalidConfig, "%d problem(s): %v", len(errs.Errors), errs.Errors)
	}
	return nil
}
