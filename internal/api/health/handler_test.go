package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leverguard/internal/workers"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

type fakeScheduler struct {
	running bool
}

func (f fakeScheduler) IsRunning() bool { return f.running }

func (f fakeScheduler) Health() map[string]workers.WorkerHealth {
	return map[string]workers.WorkerHealth{
		workers.RiskMonitorName: {RunCount: 3, Enabled: true},
	}
}

func serve(t *testing.T, fn http.HandlerFunc) (*httptest.ResponseRecorder, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec, status
}

func okCheck(context.Context) error { return nil }

func failingCheck(context.Context) error { return errors.New("connection refused") }

func TestHandleReadiness(t *testing.T) {
	tests := []struct {
		name     string
		running  bool
		checks   map[string]Checker
		wantCode int
	}{
		{"ready", true, map[string]Checker{"redis": okCheck}, http.StatusOK},
		{"no stores configured", true, nil, http.StatusOK},
		{"dependency down", true, map[string]Checker{"redis": okCheck, "postgres": failingCheck}, http.StatusServiceUnavailable},
		{"scheduler stopped", false, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(logger.New(zap.NewNop()), fakeScheduler{running: tt.running}, tt.checks, "leverguard", "test")
			rec, status := serve(t, h.HandleReadiness)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, StatusUnhealthy, status.Status)
			}
		})
	}
}

func TestHandleHealth_IncludesWorkers(t *testing.T) {
	h := New(logger.New(zap.NewNop()), fakeScheduler{running: true}, map[string]Checker{"postgres": failingCheck}, "leverguard", "test")

	rec, status := serve(t, h.HandleHealth)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "connection refused", status.Checks["postgres"].Error)
	assert.Equal(t, int64(3), status.Workers[workers.RiskMonitorName].RunCount)
}

func TestHandleServiceStatus(t *testing.T) {
	h := New(logger.New(zap.NewNop()), nil, nil, "leverguard", "test")

	rec := httptest.NewRecorder()
	h.HandleServiceStatus(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "leverguard", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}
