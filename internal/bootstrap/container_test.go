package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leverguard/internal/domain/risk"
	"leverguard/internal/workers"
	"leverguard/pkg/errors"
)

func setStandaloneEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                 "test",
		"LOG_LEVEL":               "error",
		"MONITOR_POSITION_SOURCE": "demo",
		"MONITOR_PRICE_FEED":      "simulated",
		"NARRATIVE_PROVIDER":      "none",
		"POSTGRES_ENABLED":        "false",
		"REDIS_ENABLED":           "false",
		"KAFKA_ENABLED":           "false",
		"TELEGRAM_ENABLED":        "false",
		"ERROR_TRACKING_ENABLED":  "false",
	} {
		t.Setenv(k, v)
	}
}

func TestContainer_InitStandalone(t *testing.T) {
	setStandaloneEnv(t)

	c := NewContainer()
	require.NoError(t, c.Init())
	t.Cleanup(c.Shutdown)

	assert.Equal(t, 2, c.Repos.Positions.Len())
	assert.Nil(t, c.Adapters.Narrator)
	assert.Equal(t, []string{"websocket"}, c.Adapters.Broadcaster.Sinks())
	assert.NotNil(t, c.Services.Mitigator)
	assert.Nil(t, c.PG)
	assert.Nil(t, c.Redis)

	ws := c.Background.WorkerScheduler.GetWorkers()
	require.Len(t, ws, 1)
	assert.Equal(t, workers.RiskMonitorName, ws[0].Name())

	// one pass over the demo book raises the pos_1 warning
	summary, err := c.Services.Monitor.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Evaluated)

	alerts := c.Services.Query.Alerts(context.Background(), 10)
	require.NotEmpty(t, alerts)
	assert.Equal(t, "pos_1", alerts[0].PositionID)
	assert.Equal(t, risk.SeverityWarning, alerts[0].Severity)
}

func TestContainer_InitRejectsInvalidConfig(t *testing.T) {
	setStandaloneEnv(t)
	t.Setenv("MONITOR_WARNING_THRESHOLD", "0.95")

	err := NewContainer().Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init config")
}

func TestContainer_InitRejectsUnknownFeed(t *testing.T) {
	setStandaloneEnv(t)
	t.Setenv("MONITOR_PRICE_FEED", "carrier-pigeon")

	err := NewContainer().Init()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
