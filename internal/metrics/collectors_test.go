package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leverguard/internal/domain/position"
)

type stubLister []position.Position

func (s stubLister) List(context.Context) []position.Position { return s }

type stubCounter struct{ n, c int }

func (s stubCounter) Len() int { return s.n }
func (s stubCounter) Cap() int { return s.c }

func TestBookCollector(t *testing.T) {
	positions := stubLister{
		{Collateral: decimal.NewFromInt(10), Borrowed: decimal.NewFromInt(5), Leverage: decimal.NewFromInt(2), HealthFactor: decimal.NewFromInt(2)},
		{Collateral: decimal.NewFromInt(20), Borrowed: decimal.NewFromInt(15), Leverage: decimal.NewFromInt(4), HealthFactor: decimal.RequireFromString("0.5")},
	}
	c := NewBookCollector(positions, stubCounter{n: 3, c: 1000})

	// 1 total + 4 bands + 2 amounts + 2 alert log
	assert.Equal(t, 9, testutil.CollectAndCount(c))

	expected := `
# HELP leverguard_positions Number of monitored positions
# TYPE leverguard_positions gauge
leverguard_positions 2
# HELP leverguard_alert_log_entries Alerts currently retained in the in-memory log
# TYPE leverguard_alert_log_entries gauge
leverguard_alert_log_entries 3
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"leverguard_positions", "leverguard_alert_log_entries"))
}

func TestHTTPCode(t *testing.T) {
	assert.Equal(t, "2xx", httpCode(200))
	assert.Equal(t, "4xx", httpCode(404))
	assert.Equal(t, "5xx", httpCode(503))
}
