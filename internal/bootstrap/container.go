package bootstrap

import (
	"context"
	"sync"

	"leverguard/internal/adapters/config"
	"leverguard/internal/adapters/kafka"
	pgclient "leverguard/internal/adapters/postgres"
	redisclient "leverguard/internal/adapters/redis"
	"leverguard/internal/api"
	"leverguard/internal/api/health"
	"leverguard/internal/api/ws"
	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	"leverguard/internal/events"
	"leverguard/internal/repository/memory"
	riskservice "leverguard/internal/services/risk"
	"leverguard/internal/workers"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure (optional external stores)
	PG    *pgclient.Client
	Redis *redisclient.Client

	// Position book and alert log
	Repos *Repositories

	// External adapters
	Adapters *Adapters

	// Risk pipeline
	Services *Services

	// HTTP surface
	Application *Application

	// Background processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups the in-memory stores
type Repositories struct {
	Positions *memory.PositionStore
	Alerts    *memory.AlertLog
	Source    position.Source
}

// Adapters groups external adapters
type Adapters struct {
	PriceFeed     position.PriceFeed
	Narrator      risk.Narrator // nil when narratives are disabled
	KafkaProducer *kafka.Producer
	Hub           *ws.Hub
	Broadcaster   *events.Broadcaster
}

// Services groups the risk pipeline
type Services struct {
	AlertFactory *riskservice.AlertFactory
	Mitigator    *riskservice.Mitigator // nil when auto-mitigation is off
	Monitor      *riskservice.Monitor
	Query        *riskservice.Query
}

// Application groups the HTTP layer
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// Init initializes all components in dependency order.
// Any failure aborts startup; the caller should not call Start.
func (c *Container) Init() error {
	phases := []struct {
		name string
		fn   func() error
	}{
		{"config", c.InitConfig},
		{"infrastructure", c.InitInfrastructure},
		{"repositories", c.InitRepositories},
		{"adapters", c.InitAdapters},
		{"services", c.InitServices},
		{"background", c.InitBackground},
		{"application", c.InitApplication},
	}

	for _, phase := range phases {
		if err := phase.fn(); err != nil {
			return errors.Wrapf(err, "init %s", phase.name)
		}
	}
	return nil
}

// Start starts the scheduler and the HTTP server
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}
	c.Log.Infow("✓ Risk monitor scheduled",
		"interval", c.Config.Monitor.Interval,
		"positions", c.Repos.Positions.Len(),
	)

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // fatal HTTP error triggers shutdown
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Cancel()

	c.Lifecycle.Shutdown(ShutdownTargets{
		WG:              c.WG,
		WorkerScheduler: c.Background.WorkerScheduler,
		Hub:             c.Adapters.Hub,
		HTTPServer:      c.Application.HTTPServer,
		HTTPTimeout:     c.httpShutdownTimeout(),
		KafkaProducer:   c.Adapters.KafkaProducer,
		PG:              c.PG,
		Redis:           c.Redis,
		ErrorTracker:    c.ErrorTracker,
	}, c.Log)
}
