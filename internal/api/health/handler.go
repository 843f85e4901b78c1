package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"leverguard/internal/workers"
	"leverguard/pkg/logger"
)

// Status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Checker probes one dependency, e.g. postgres or redis
type Checker func(ctx context.Context) error

// SchedulerStatus reports the background workers
type SchedulerStatus interface {
	IsRunning() bool
	Health() map[string]workers.WorkerHealth
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	checks      map[string]Checker
	scheduler   SchedulerStatus
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health handler. checks may be empty when no external store is configured.
func New(log *logger.Logger, scheduler SchedulerStatus, checks map[string]Checker, serviceName, version string) *Handler {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &Handler{
		log:         log.With("component", "health"),
		checks:      checks,
		scheduler:   scheduler,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                          `json:"status"`
	Service   string                          `json:"service"`
	Version   string                          `json:"version"`
	Uptime    string                          `json:"uptime"`
	Timestamp string                          `json:"timestamp"`
	Checks    map[string]ComponentHealth      `json:"checks"`
	Workers   map[string]workers.WorkerHealth `json:"workers,omitempty"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 while the process is up
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness is 200 only when the monitor is scheduled and every dependency answers
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.runChecks(ctx)
	if h.scheduler != nil && !h.scheduler.IsRunning() {
		checks["scheduler"] = ComponentHealth{Status: StatusUnhealthy, Error: "scheduler not running"}
		healthy = false
	}

	status := h.status(checks)
	code := http.StatusOK
	if !healthy {
		status.Status = StatusUnhealthy
		code = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}
	writeJSON(w, code, status)
}

// HandleHealth returns detailed status including worker health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy := h.runChecks(ctx)
	status := h.status(checks)
	if h.scheduler != nil {
		status.Workers = h.scheduler.Health()
		if !h.scheduler.IsRunning() {
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		// the alert log and read API keep working without the optional stores
		status.Status = StatusDegraded
	}
	writeJSON(w, code, status)
}

// HandleServiceStatus is the short status document served at /api/health
func (h *Handler) HandleServiceStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   h.serviceName,
	})
}

func (h *Handler) status(checks map[string]ComponentHealth) HealthStatus {
	return HealthStatus{
		Status:    StatusHealthy,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) runChecks(ctx context.Context) (map[string]ComponentHealth, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]ComponentHealth, len(names))
	healthy := true
	for _, name := range names {
		start := time.Now()
		err := h.checks[name](ctx)
		elapsed := time.Since(start)

		if err != nil {
			h.log.Warnw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
			out[name] = ComponentHealth{Status: StatusUnhealthy, ResponseTime: elapsed.String(), Error: err.Error()}
			healthy = false
			continue
		}
		out[name] = ComponentHealth{Status: StatusHealthy, ResponseTime: elapsed.String()}
	}
	return out, healthy
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
