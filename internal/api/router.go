package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"leverguard/internal/api/health"
	"leverguard/internal/metrics"
	"leverguard/pkg/logger"
)

// Dependencies holds everything the router serves
type Dependencies struct {
	Leverage    *LeverageHandler
	Health      *health.Handler
	Subscribers http.Handler // WebSocket alert stream
	CORSOrigins []string
	Log         *logger.Logger
}

// NewRouter builds the HTTP surface:
//
//	/api/health, /health, /ready, /live
//	/api/leverage/positions[/{id}[/risk]]
//	/api/leverage/alerts?limit=N
//	/api/leverage/stats
//	/ws, /metrics
func NewRouter(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery(deps.Log))
	router.Use(logging(deps.Log))
	router.Use(cors(deps.CORSOrigins))

	get := []string{http.MethodGet, http.MethodOptions}

	router.HandleFunc("/api/health", deps.Health.HandleServiceStatus).Methods(get...)
	router.HandleFunc("/health", deps.Health.HandleHealth).Methods(get...)
	router.HandleFunc("/ready", deps.Health.HandleReadiness).Methods(get...)
	router.HandleFunc("/live", deps.Health.HandleLiveness).Methods(get...)

	leverage := router.PathPrefix("/api/leverage").Subrouter()
	leverage.HandleFunc("/positions", deps.Leverage.ListPositions).Methods(get...)
	leverage.HandleFunc("/positions/{id}", deps.Leverage.GetPosition).Methods(get...)
	leverage.HandleFunc("/positions/{id}/risk", deps.Leverage.GetRisk).Methods(get...)
	leverage.HandleFunc("/alerts", deps.Leverage.ListAlerts).Methods(get...)
	leverage.HandleFunc("/stats", deps.Leverage.GetStats).Methods(get...)

	if deps.Subscribers != nil {
		router.Handle("/ws", deps.Subscribers).Methods(http.MethodGet)
	}
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return router
}
