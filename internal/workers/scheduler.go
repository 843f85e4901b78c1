package workers

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// DefaultStopTimeout bounds how long Stop waits for in-flight passes
const DefaultStopTimeout = 2 * time.Minute

// State is a worker's scheduling state
type State int32

const (
	// StateIdle means the worker is waiting for its next tick
	StateIdle State = iota
	// StateEvaluating means a pass is in progress
	StateEvaluating
)

// String returns string representation
func (s State) String() string {
	if s == StateEvaluating {
		return "evaluating"
	}
	return "idle"
}

type scheduledWorker struct {
	Worker
	state   atomic.Int32
	skipped atomic.Int64
}

// Scheduler manages and coordinates multiple workers.
// A worker never runs two passes at once: a tick that fires while its
// previous pass is still running is dropped.
type Scheduler struct {
	workers     []*scheduledWorker
	clock       Clock
	stopTimeout time.Duration
	cancel      context.CancelFunc
	loops       sync.WaitGroup
	passes      sync.WaitGroup
	draining    atomic.Bool
	mu          sync.RWMutex
	log         *logger.Logger
	started     bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithStopTimeout overrides DefaultStopTimeout
func WithStopTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithLogger overrides the global logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler creates a new worker scheduler
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:       SystemClock{},
		stopTimeout: DefaultStopTimeout,
		log:         logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "scheduler")
	return s
}

// RegisterWorker adds a worker to the scheduler
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, &scheduledWorker{Worker: w})
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start begins running all registered workers.
// It refuses to start while passes from a timed-out Stop are still running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.ErrSchedulerStarted
	}
	if s.draining.Load() {
		s.mu.Unlock()
		return errors.ErrSchedulerDraining
	}

	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Infow("Starting worker scheduler", "workers", len(s.workers))

	for _, sw := range s.workers {
		if !sw.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", sw.Name())
			continue
		}

		s.loops.Add(1)
		go s.runWorker(runCtx, sw)
	}

	return nil
}

// Stop cancels all workers and waits for in-flight passes up to the stop timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.ErrSchedulerStopped
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Info("Stopping worker scheduler...")

	// cleared only once both wait groups are released
	s.draining.Store(true)
	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		s.passes.Wait()
		s.draining.Store(false)
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Info("All workers stopped gracefully")
	case <-time.After(s.stopTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", s.stopTimeout)
		shutdownErr = errors.Wrapf(errors.ErrTimeout, "shutdown timeout after %s", s.stopTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

// runWorker drives one worker from its ticker
func (s *Scheduler) runWorker(ctx context.Context, sw *scheduledWorker) {
	defer s.loops.Done()

	s.log.Infow("Worker started", "worker", sw.Name())

	ticker := s.clock.NewTicker(sw.Interval())
	defer ticker.Stop()

	// Run immediately on start
	s.trigger(ctx, sw)

	for {
		select {
		case <-ctx.Done():
			s.log.Infow("Worker stopping due to context cancellation", "worker", sw.Name())
			return

		case <-ticker.C():
			s.trigger(ctx, sw)
		}
	}
}

// trigger starts a pass unless one is already running
func (s *Scheduler) trigger(ctx context.Context, sw *scheduledWorker) {
	if ctx.Err() != nil {
		return
	}
	if !sw.state.CompareAndSwap(int32(StateIdle), int32(StateEvaluating)) {
		sw.skipped.Add(1)
		metrics.RecordSkippedTick(sw.Name())
		s.log.Debugw("Tick skipped, previous pass still running", "worker", sw.Name())
		return
	}

	s.passes.Add(1)
	go func() {
		defer s.passes.Done()
		defer sw.state.Store(int32(StateIdle))
		s.executeWorker(ctx, sw)
	}()
}

// executeWorker runs a single iteration of the worker with error handling
func (s *Scheduler) executeWorker(ctx context.Context, sw *scheduledWorker) {
	start := s.clock.Now()
	recorder, _ := sw.Worker.(healthRecorder)

	defer func() {
		if r := recover(); r != nil {
			finished := s.clock.Now()
			duration := finished.Sub(start)
			s.log.Errorw("Worker panicked",
				"worker", sw.Name(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			metrics.RecordWorkerPanic(sw.Name())
			if recorder != nil {
				recorder.RecordError(errors.Newf("panic: %v", r), finished, duration)
			}
		}
	}()

	err := sw.Run(ctx)
	finished := s.clock.Now()
	duration := finished.Sub(start)
	metrics.RecordWorkerExecution(sw.Name(), duration, err)

	if err != nil {
		if recorder != nil {
			recorder.RecordError(err, finished, duration)
		}
		if ctx.Err() != nil {
			s.log.Debugw("Worker pass interrupted by shutdown", "worker", sw.Name(), "error", err)
			return
		}
		s.log.Errorw("Worker execution failed",
			"worker", sw.Name(),
			"error", err,
			"duration", duration,
		)
		return
	}

	if recorder != nil {
		recorder.RecordRun(finished, duration)
	}
	s.log.Debugw("Worker execution completed",
		"worker", sw.Name(),
		"duration", duration,
	)
}

// GetWorkers returns a list of all registered workers (for debugging/monitoring)
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	for i, sw := range s.workers {
		workers[i] = sw.Worker
	}
	return workers
}

// State returns the scheduling state of a worker
func (s *Scheduler) State(name string) State {
	if sw := s.find(name); sw != nil {
		return State(sw.state.Load())
	}
	return StateIdle
}

// SkippedTicks returns how many ticks a worker has dropped
func (s *Scheduler) SkippedTicks(name string) int64 {
	if sw := s.find(name); sw != nil {
		return sw.skipped.Load()
	}
	return 0
}

// Health returns health snapshots for all workers that report it
func (s *Scheduler) Health() map[string]WorkerHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]WorkerHealth, len(s.workers))
	for _, sw := range s.workers {
		var h WorkerHealth
		if hw, ok := sw.Worker.(WorkerWithHealth); ok {
			h = hw.Health()
		} else {
			h.Enabled = sw.Enabled()
		}
		h.IsRunning = State(sw.state.Load()) == StateEvaluating
		h.SkippedTicks = sw.skipped.Load()
		out[sw.Name()] = h
	}
	return out
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Scheduler) find(name string) *scheduledWorker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sw := range s.workers {
		if sw.Name() == name {
			return sw
		}
	}
	return nil
}
