package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"leverguard/internal/adapters/ai"
	"leverguard/internal/adapters/config"
	errnoop "leverguard/internal/adapters/errors/noop"
	"leverguard/internal/adapters/errors/sentry"
	"leverguard/internal/adapters/kafka"
	pgclient "leverguard/internal/adapters/postgres"
	"leverguard/internal/adapters/pricefeed"
	redisclient "leverguard/internal/adapters/redis"
	"leverguard/internal/adapters/telegram"
	"leverguard/internal/api"
	"leverguard/internal/api/health"
	"leverguard/internal/api/ws"
	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	"leverguard/internal/events"
	"leverguard/internal/metrics"
	"leverguard/internal/repository/memory"
	pgrepo "leverguard/internal/repository/postgres"
	riskservice "leverguard/internal/services/risk"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// connectTimeout bounds every startup dial to an external store
const connectTimeout = 10 * time.Second

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// InitConfig loads configuration and initializes logging, error tracking and metrics
func (c *Container) InitConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return errors.Wrap(err, "failed to init logger")
	}
	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	// amounts and prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	metrics.Init()
	return nil
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// InitInfrastructure connects the optional Postgres and Redis stores
func (c *Container) InitInfrastructure() error {
	cfg := c.Config

	needsPG := cfg.Postgres.Enabled || cfg.Monitor.PositionSource == config.SourcePostgres
	if needsPG {
		c.Log.Info("Connecting to PostgreSQL...")
		ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
		pg, err := pgclient.NewClient(ctx, cfg.Postgres)
		cancel()
		if err != nil {
			return errors.Wrap(err, "failed to connect postgres")
		}
		c.PG = pg
		c.Log.Info("✓ PostgreSQL connected")
	}

	needsRedis := cfg.Redis.Enabled || cfg.Monitor.PriceFeed == config.FeedRedis
	if needsRedis {
		c.Log.Info("Connecting to Redis...")
		ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
		rdb, err := redisclient.NewClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			return errors.Wrap(err, "failed to connect redis")
		}
		c.Redis = rdb
		c.Log.Info("✓ Redis connected")
	}

	return nil
}

// ========================================
// Phase 3: Position book
// ========================================

// InitRepositories creates the in-memory stores and seeds the position book
func (c *Container) InitRepositories() error {
	c.Repos.Positions = memory.NewPositionStore()
	c.Repos.Alerts = memory.NewAlertLog(c.Config.Monitor.AlertLogSize)

	source, err := c.providePositionSource()
	if err != nil {
		return err
	}
	c.Repos.Source = source

	ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
	defer cancel()

	n, err := c.Repos.Positions.Load(ctx, source)
	if err != nil {
		return errors.Wrap(err, "failed to seed positions")
	}
	c.Log.Infow("✓ Position book loaded",
		"source", c.Config.Monitor.PositionSource,
		"positions", n,
	)
	return nil
}

func (c *Container) providePositionSource() (position.Source, error) {
	switch c.Config.Monitor.PositionSource {
	case config.SourceDemo, "":
		return position.NewDemoSource(), nil
	case config.SourcePostgres:
		return pgrepo.NewPositionSource(c.PG.DB()), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown position source %q", c.Config.Monitor.PositionSource)
	}
}

// ========================================
// Phase 4: External Adapters
// ========================================

// InitAdapters builds the price feed, narrator and alert sinks
func (c *Container) InitAdapters() error {
	cfg := c.Config

	feed, err := c.providePriceFeed()
	if err != nil {
		return err
	}
	c.Adapters.PriceFeed = feed

	narrator, err := ai.NewNarrator(c.Context, cfg.Narrative)
	if err != nil {
		return errors.Wrap(err, "failed to init narrative provider")
	}
	c.Adapters.Narrator = narrator

	c.Adapters.Hub = ws.NewHub(cfg.Monitor.PublishBufferSize, cfg.HTTP.CORSOrigins, c.Log)

	sinks, err := c.provideSinks()
	if err != nil {
		return err
	}
	c.Adapters.Broadcaster = events.NewBroadcaster(c.Log, sinks...).
		WithTimeout(c.Config.Monitor.SinkTimeout)
	c.Log.Infow("✓ Alert sinks ready", "sinks", c.Adapters.Broadcaster.Sinks())
	return nil
}

func (c *Container) providePriceFeed() (position.PriceFeed, error) {
	switch c.Config.Monitor.PriceFeed {
	case config.FeedSimulated, "":
		return pricefeed.NewSimulated(c.Config.Monitor.PriceVolatility), nil
	case config.FeedRedis:
		return pricefeed.NewRedisFeed(c.Redis, c.Config.Redis.PricePrefix), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown price feed %q", c.Config.Monitor.PriceFeed)
	}
}

// provideSinks returns the WebSocket hub plus every enabled external sink
func (c *Container) provideSinks() ([]events.Sink, error) {
	cfg := c.Config
	sinks := []events.Sink{c.Adapters.Hub}

	if cfg.Kafka.Enabled {
		c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		sinks = append(sinks, events.NewKafkaSink(c.Adapters.KafkaProducer, cfg.Kafka.AlertTopic))
	}

	if cfg.Redis.Enabled && c.Redis != nil {
		sinks = append(sinks, events.NewRedisSink(c.Redis, cfg.Redis.AlertChannel))
	}

	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(telegram.Config{Token: cfg.Telegram.BotToken}, c.Log)
		if err != nil {
			return nil, errors.Wrap(err, "failed to init telegram bot")
		}
		sinks = append(sinks, telegram.NewNotifier(bot, cfg.Telegram.ChatID))
	}

	return sinks, nil
}

// ========================================
// Phase 5: Risk pipeline
// ========================================

// InitServices wires the alert factory, mitigator, monitor and read model
func (c *Container) InitServices() error {
	m := c.Config.Monitor
	thresholds := risk.Thresholds{Warning: m.WarningThreshold, Critical: m.CriticalThreshold}

	c.Services.AlertFactory = riskservice.NewAlertFactory(thresholds, c.Adapters.Narrator, c.Log)

	if m.AutoMitigation {
		policy := riskservice.MitigationPolicy{
			LeverageFloor:   decimal.NewFromFloat(m.LeverageFloor),
			ReductionFactor: decimal.NewFromFloat(m.LeverageReduction),
		}
		c.Services.Mitigator = riskservice.NewMitigator(c.Repos.Positions, policy, c.Services.AlertFactory, c.Log)
	} else {
		c.Log.Warn("Automatic mitigation disabled")
	}

	c.Services.Monitor = riskservice.NewMonitor(
		c.Repos.Positions,
		c.Adapters.PriceFeed,
		c.Services.AlertFactory,
		c.Services.Mitigator,
		c.Repos.Alerts,
		c.Adapters.Broadcaster,
		riskservice.MonitorConfig{
			Thresholds:     thresholds,
			MaxConcurrency: m.MaxConcurrency,
		},
		c.Log,
	)
	c.Services.Query = riskservice.NewQuery(c.Repos.Positions, c.Repos.Alerts)
	return nil
}

// ========================================
// Phase 7: Application Layer
// ========================================

// InitApplication builds the HTTP surface and registers the book collector
func (c *Container) InitApplication() error {
	cfg := c.Config

	c.Application.HealthHandler = health.New(
		c.Log,
		c.Background.WorkerScheduler,
		c.healthChecks(),
		cfg.App.Name,
		cfg.App.Version,
	)

	router := api.NewRouter(api.Dependencies{
		Leverage:    api.NewLeverageHandler(c.Services.Query, c.Log),
		Health:      c.Application.HealthHandler,
		Subscribers: c.Adapters.Hub,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Log:         c.Log,
	})
	c.Application.HTTPServer = api.NewServer(cfg.HTTP.Port, router, c.Log)

	metrics.RegisterBookCollector(metrics.NewBookCollector(c.Repos.Positions, c.Repos.Alerts))
	return nil
}

func (c *Container) healthChecks() map[string]health.Checker {
	checks := map[string]health.Checker{}
	if c.PG != nil {
		checks["postgres"] = c.PG.Health
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Health
	}
	return checks
}

func (c *Container) httpShutdownTimeout() time.Duration {
	if c.Config == nil {
		return 0
	}
	return c.Config.HTTP.ShutdownTimeout
}

// provideErrorTracker returns Sentry when configured, otherwise a no-op tracker
func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	et := cfg.ErrorTracking
	if !et.Enabled || et.SentryDSN == "" || !strings.EqualFold(et.Provider, "sentry") {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(et.SentryDSN, et.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}
