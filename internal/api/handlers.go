package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	riskservice "leverguard/internal/services/risk"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// RiskReader is the read side of the monitor
type RiskReader interface {
	Positions(ctx context.Context) []position.Position
	Position(ctx context.Context, id string) (position.Position, error)
	Alerts(ctx context.Context, limit int) []risk.Alert
	Analyze(ctx context.Context, id string) (risk.Analysis, error)
	Stats(ctx context.Context) risk.Stats
}

var _ RiskReader = (*riskservice.Query)(nil)

// LeverageHandler serves positions, alerts and statistics
type LeverageHandler struct {
	reader RiskReader
	log    *logger.Logger
}

// NewLeverageHandler creates the leverage API handler
func NewLeverageHandler(reader RiskReader, log *logger.Logger) *LeverageHandler {
	return &LeverageHandler{reader: reader, log: log.With("component", "leverage_api")}
}

// ListPositions handles GET /api/leverage/positions
func (h *LeverageHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.reader.Positions(r.Context()))
}

// GetPosition handles GET /api/leverage/positions/{id}
func (h *LeverageHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	p, err := h.reader.Position(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, p)
}

// GetRisk handles GET /api/leverage/positions/{id}/risk
func (h *LeverageHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.reader.Analyze(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, analysis)
}

// ListAlerts handles GET /api/leverage/alerts?limit=N
func (h *LeverageHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := riskservice.DefaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeData(w, h.reader.Alerts(r.Context(), limit))
}

// GetStats handles GET /api/leverage/stats
func (h *LeverageHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.reader.Stats(r.Context()))
}

func (h *LeverageHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, errors.ErrPositionNotFound) {
		writeError(w, http.StatusNotFound, "Position not found")
		return
	}
	h.log.Errorw("Leverage API request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
