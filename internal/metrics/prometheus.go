package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error|panic
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverguard_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leverguard_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	WorkerSkippedTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_worker_skipped_ticks_total",
			Help: "Ticks dropped because the previous pass was still running",
		},
		[]string{"worker"},
	)

	// Risk metrics
	PositionEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_position_evaluations_total",
			Help: "Total number of per-position evaluations",
		},
		[]string{"status"}, // status: ok|skipped|error|panic
	)

	PositionRiskScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leverguard_position_risk_score",
			Help: "Latest risk score per position",
		},
		[]string{"position_id", "asset"},
	)

	AlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_alerts_emitted_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"kind", "severity"},
	)

	Mitigations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_mitigations_total",
			Help: "Total number of automatic leverage reductions",
		},
		[]string{"status"}, // status: applied|not_needed|error
	)

	InvalidPositions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_invalid_positions_total",
			Help: "Positions skipped because their data failed validation",
		},
		[]string{"stage"},
	)

	// Narrative metrics
	NarrativeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_narrative_calls_total",
			Help: "Total number of narrative service calls",
		},
		[]string{"provider", "status"}, // status: success|error
	)

	NarrativeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverguard_narrative_latency_seconds",
			Help:    "Narrative service latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	// Delivery metrics
	SinkDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_sink_deliveries_total",
			Help: "Total alert deliveries per sink",
		},
		[]string{"sink", "status"}, // status: success|error
	)

	WebSocketSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "leverguard_websocket_subscribers",
			Help: "Current number of connected WebSocket subscribers",
		},
	)

	WebSocketDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leverguard_websocket_dropped_messages_total",
			Help: "Messages not delivered because a subscriber was not ready or its buffer was full",
		},
	)

	// Price feed metrics
	PriceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_price_fetches_total",
			Help: "Total number of price feed lookups",
		},
		[]string{"feed", "status"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverguard_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverguard_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"route", "method", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverguard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		// Worker metrics
		prometheus.MustRegister(WorkerExecutions)
		prometheus.MustRegister(WorkerDuration)
		prometheus.MustRegister(WorkerLastRun)
		prometheus.MustRegister(WorkerSkippedTicks)

		// Risk metrics
		prometheus.MustRegister(PositionEvaluations)
		prometheus.MustRegister(PositionRiskScore)
		prometheus.MustRegister(AlertsEmitted)
		prometheus.MustRegister(Mitigations)
		prometheus.MustRegister(InvalidPositions)

		// Narrative metrics
		prometheus.MustRegister(NarrativeCalls)
		prometheus.MustRegister(NarrativeLatency)

		// Delivery metrics
		prometheus.MustRegister(SinkDeliveries)
		prometheus.MustRegister(WebSocketSubscribers)
		prometheus.MustRegister(WebSocketDropped)
		prometheus.MustRegister(PriceFetches)

		// Database metrics
		prometheus.MustRegister(DBQueries)
		prometheus.MustRegister(DBQueryDuration)

		// HTTP metrics
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordWorkerPanic records a recovered worker panic
func RecordWorkerPanic(worker string) {
	WorkerExecutions.WithLabelValues(worker, "panic").Inc()
}

// RecordSkippedTick records a tick dropped by the overlap guard
func RecordSkippedTick(worker string) {
	WorkerSkippedTicks.WithLabelValues(worker).Inc()
}

// RecordEvaluation records the outcome of one position evaluation
func RecordEvaluation(positionID, asset, outcome string, score float64) {
	PositionEvaluations.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		PositionRiskScore.WithLabelValues(positionID, asset).Set(score)
	}
}

// RecordAlert records an emitted alert
func RecordAlert(kind, severity string) {
	AlertsEmitted.WithLabelValues(kind, severity).Inc()
}

// RecordMitigation records a mitigation attempt
func RecordMitigation(outcome string) {
	Mitigations.WithLabelValues(outcome).Inc()
}

// RecordInvalidPosition records a position dropped by validation
func RecordInvalidPosition(stage string) {
	InvalidPositions.WithLabelValues(stage).Inc()
}

// RecordNarrativeCall records a narrative service call
func RecordNarrativeCall(provider string, latency time.Duration, err error) {
	NarrativeCalls.WithLabelValues(provider, status(err)).Inc()
	NarrativeLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordSinkDelivery records one alert delivery attempt
func RecordSinkDelivery(sink string, err error) {
	SinkDeliveries.WithLabelValues(sink, status(err)).Inc()
}

// RecordPriceFetch records a price feed lookup
func RecordPriceFetch(feed string, err error) {
	PriceFetches.WithLabelValues(feed, status(err)).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	DBQueries.WithLabelValues(database, operation, status(err)).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, method, httpCode(code)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
