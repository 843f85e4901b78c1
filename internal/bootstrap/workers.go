package bootstrap

import (
	"leverguard/internal/workers"
)

// ========================================
// Phase 6: Background Processing
// ========================================

// InitBackground registers the risk monitor with the scheduler
func (c *Container) InitBackground() error {
	m := c.Config.Monitor

	scheduler := workers.NewScheduler(
		workers.WithStopTimeout(m.StopTimeout),
		workers.WithLogger(c.Log),
	)
	for _, w := range provideWorkers(c) {
		scheduler.RegisterWorker(w)
	}

	c.Background.WorkerScheduler = scheduler
	c.Log.Infow("✓ Workers registered", "count", len(scheduler.GetWorkers()))
	return nil
}

// provideWorkers returns every background worker of the service
func provideWorkers(c *Container) []workers.Worker {
	return []workers.Worker{
		workers.NewRiskMonitorWorker(c.Services.Monitor, c.Config.Monitor.Interval, true),
	}
}
