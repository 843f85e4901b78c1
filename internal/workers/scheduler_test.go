package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// Mock worker for testing
type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

// fakeClock hands out manually driven tickers and, when now is set, a fixed time
type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
	now     time.Time
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		return time.Now()
	}
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) ticker(t *testing.T, i int) *fakeTicker {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.tickers) > i
	}, time.Second, time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[i]
}

// tick blocks until the worker loop has received the tick
func (tk *fakeTicker) tick() {
	tk.ch <- time.Now()
}

func newTestScheduler(clock Clock) *Scheduler {
	return NewScheduler(
		WithClock(clock),
		WithLogger(logger.New(zap.NewNop())),
		WithStopTimeout(2*time.Second),
	)
}

func TestScheduler_RunsImmediatelyAndOnEveryTick(t *testing.T) {
	clock := &fakeClock{}
	scheduler := newTestScheduler(clock)

	worker := newMockWorker("test-worker", 30*time.Second, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	require.Eventually(t, func() bool { return worker.GetRunCount() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return scheduler.State("test-worker") == StateIdle }, time.Second, time.Millisecond)

	tk := clock.ticker(t, 0)
	tk.tick()
	require.Eventually(t, func() bool { return worker.GetRunCount() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return scheduler.State("test-worker") == StateIdle }, time.Second, time.Millisecond)

	tk.tick()
	require.Eventually(t, func() bool { return worker.GetRunCount() == 3 }, time.Second, time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())
	assert.Zero(t, scheduler.SkippedTicks("test-worker"))
}

func TestScheduler_SkipsTickWhilePassRunning(t *testing.T) {
	clock := &fakeClock{}
	scheduler := newTestScheduler(clock)

	release := make(chan struct{})
	worker := newMockWorker("slow-worker", 30*time.Second, true)
	worker.runFunc = func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return scheduler.State("slow-worker") == StateEvaluating }, time.Second, time.Millisecond)

	tk := clock.ticker(t, 0)
	tk.tick()
	tk.tick()
	// the second send only returns once the first tick has been handled
	require.Eventually(t, func() bool { return scheduler.SkippedTicks("slow-worker") == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, worker.GetRunCount())

	close(release)
	require.Eventually(t, func() bool { return scheduler.State("slow-worker") == StateIdle }, time.Second, time.Millisecond)

	tk.tick()
	require.Eventually(t, func() bool { return worker.GetRunCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.Equal(t, int64(2), scheduler.Health()["slow-worker"].SkippedTicks)
}

func TestScheduler_ReturnsToIdleAfterErrorAndPanic(t *testing.T) {
	clock := &fakeClock{}
	scheduler := newTestScheduler(clock)

	var calls int32
	worker := newMockWorker("flaky-worker", 30*time.Second, true)
	worker.runFunc = func(ctx context.Context) error {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return errors.New("pass failed")
		case 2:
			panic("pass exploded")
		}
		return nil
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	tk := clock.ticker(t, 0)

	for want := 1; want <= 3; want++ {
		require.Eventually(t, func() bool {
			return worker.GetRunCount() == want && scheduler.State("flaky-worker") == StateIdle
		}, time.Second, time.Millisecond)
		if want < 3 {
			tk.tick()
		}
	}

	require.NoError(t, scheduler.Stop())

	health := worker.Health()
	assert.Equal(t, int64(3), health.RunCount)
	assert.Equal(t, int64(2), health.ErrorCount)
	assert.Empty(t, health.LastError)
}

func TestScheduler_GracefulShutdown(t *testing.T) {
	scheduler := newTestScheduler(&fakeClock{})

	var finished atomic.Bool
	worker := newMockWorker("slow-worker", 30*time.Second, true)
	worker.runFunc = func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return worker.GetRunCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.True(t, finished.Load(), "Stop should wait for the in-flight pass")
}

func TestScheduler_StopTimeout(t *testing.T) {
	scheduler := NewScheduler(
		WithClock(&fakeClock{}),
		WithLogger(logger.New(zap.NewNop())),
		WithStopTimeout(20*time.Millisecond),
	)

	release := make(chan struct{})
	defer close(release)

	worker := newMockWorker("stuck-worker", 30*time.Second, true)
	worker.runFunc = func(ctx context.Context) error {
		<-release
		return nil
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return worker.GetRunCount() == 1 }, time.Second, time.Millisecond)

	err := scheduler.Stop()
	assert.True(t, errors.Is(err, errors.ErrTimeout))
}

func TestScheduler_RestartWaitsForDrainedPasses(t *testing.T) {
	scheduler := NewScheduler(
		WithClock(&fakeClock{}),
		WithLogger(logger.New(zap.NewNop())),
		WithStopTimeout(20*time.Millisecond),
	)

	release := make(chan struct{})
	var released atomic.Bool

	worker := newMockWorker("stuck-worker", 30*time.Second, true)
	worker.runFunc = func(ctx context.Context) error {
		if !released.Load() {
			<-release
		}
		return nil
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return worker.GetRunCount() == 1 }, time.Second, time.Millisecond)
	assert.True(t, errors.Is(scheduler.Stop(), errors.ErrTimeout))

	err := scheduler.Start(context.Background())
	assert.True(t, errors.Is(err, errors.ErrSchedulerDraining))
	assert.False(t, scheduler.IsRunning())

	released.Store(true)
	close(release)
	require.Eventually(t, func() bool {
		return scheduler.Start(context.Background()) == nil
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return worker.GetRunCount() == 2 }, time.Second, time.Millisecond)
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_HealthUsesClock(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: at}
	scheduler := newTestScheduler(clock)

	failing := newMockWorker("failing-worker", 30*time.Second, true)
	failing.runFunc = func(context.Context) error { return errors.New("boom") }
	healthy := newMockWorker("healthy-worker", 30*time.Second, true)
	scheduler.RegisterWorker(failing)
	scheduler.RegisterWorker(healthy)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool {
		h := scheduler.Health()
		return h["failing-worker"].ErrorCount == 1 && h["healthy-worker"].RunCount == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, scheduler.Stop())

	health := scheduler.Health()
	assert.Equal(t, at, health["failing-worker"].LastRun)
	assert.Equal(t, "boom", health["failing-worker"].LastError)
	assert.Equal(t, at, health["healthy-worker"].LastRun)
	assert.Empty(t, health["healthy-worker"].LastError)
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := newTestScheduler(&fakeClock{})

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, scheduler.Start(ctx))
	cancel()

	// Stop should work even after context cancellation
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_DisabledWorker(t *testing.T) {
	scheduler := newTestScheduler(&fakeClock{})

	enabledWorker := newMockWorker("enabled-worker", 100*time.Millisecond, true)
	disabledWorker := newMockWorker("disabled-worker", 100*time.Millisecond, false)

	scheduler.RegisterWorker(enabledWorker)
	scheduler.RegisterWorker(disabledWorker)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return enabledWorker.GetRunCount() > 0 }, time.Second, time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Equal(t, 0, disabledWorker.GetRunCount())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := newTestScheduler(&fakeClock{})
	scheduler.RegisterWorker(newMockWorker("test-worker", 100*time.Millisecond, true))

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))

	err := scheduler.Start(ctx)
	assert.True(t, errors.Is(err, errors.ErrSchedulerStarted))

	require.NoError(t, scheduler.Stop())
	assert.True(t, errors.Is(scheduler.Stop(), errors.ErrSchedulerStopped))
}

func TestScheduler_GetWorkers(t *testing.T) {
	scheduler := newTestScheduler(&fakeClock{})

	scheduler.RegisterWorker(newMockWorker("worker-1", 100*time.Millisecond, true))
	scheduler.RegisterWorker(newMockWorker("worker-2", 200*time.Millisecond, false))

	workers := scheduler.GetWorkers()
	assert.Len(t, workers, 2)
	assert.Equal(t, "worker-1", workers[0].Name())
	assert.Equal(t, "worker-2", workers[1].Name())
}

func TestSystemClock_Ticker(t *testing.T) {
	tk := SystemClock{}.NewTicker(time.Millisecond)
	defer tk.Stop()

	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("system ticker did not fire")
	}
}
