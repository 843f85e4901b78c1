package bootstrap

import (
	"context"
	"sync"
	"time"

	"leverguard/internal/adapters/kafka"
	pgclient "leverguard/internal/adapters/postgres"
	redisclient "leverguard/internal/adapters/redis"
	"leverguard/internal/api"
	"leverguard/internal/api/ws"
	"leverguard/internal/workers"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 3 * time.Minute,
	}
}

// ShutdownTargets lists the components Shutdown stops. Nil entries are skipped.
type ShutdownTargets struct {
	WG              *sync.WaitGroup
	WorkerScheduler *workers.Scheduler
	Hub             *ws.Hub
	HTTPServer      *api.Server
	HTTPTimeout     time.Duration
	KafkaProducer   *kafka.Producer
	PG              *pgclient.Client
	Redis           *redisclient.Client
	ErrorTracker    errors.Tracker
}

// Shutdown performs coordinated cleanup in this order:
// 1. Stop the risk monitor so no new alerts are produced
// 2. Disconnect WebSocket subscribers
// 3. Stop accepting HTTP requests
// 4. Close the Kafka producer
// 5. Flush errors and logs
// 6. Close data stores last
func (l *Lifecycle) Shutdown(t ShutdownTargets, log *logger.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/7] Stopping background workers...")
	if t.WorkerScheduler != nil {
		if err := t.WorkerScheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	log.Info("[2/7] Closing WebSocket subscribers...")
	if t.Hub != nil {
		t.Hub.Close()
		log.Info("✓ WebSocket subscribers closed")
	}

	log.Info("[3/7] Stopping HTTP server...")
	if t.HTTPServer != nil {
		timeout := t.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, timeout)
		if err := t.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}
	if t.WG != nil {
		l.waitForGoroutines(t.WG, 5*time.Second, log)
	}

	log.Info("[4/7] Closing Kafka producer...")
	if t.KafkaProducer != nil {
		if err := t.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[5/7] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, t.ErrorTracker, log)

	log.Info("[6/7] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	}

	log.Info("[7/7] Closing data stores...")
	l.closeStores(t.PG, t.Redis, log)

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeStores closes the optional Postgres and Redis connections
func (l *Lifecycle) closeStores(pg *pgclient.Client, rdb *redisclient.Client, log *logger.Logger) {
	var errs errors.MultiError

	if pg != nil {
		if err := pg.Close(); err != nil {
			errs.Add(errors.Wrap(err, "postgres"))
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			errs.Add(errors.Wrap(err, "redis"))
		}
	}

	if errs.HasErrors() {
		log.Errorw("Data store close errors", "error", &errs)
	} else {
		log.Info("✓ Data stores closed")
	}
}
