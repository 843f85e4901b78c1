package riskservice

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leverguard/internal/domain/risk"
	"leverguard/internal/repository/memory"
	"leverguard/pkg/errors"
)

func TestMitigationPolicy_Target(t *testing.T) {
	policy := DefaultMitigationPolicy()

	tests := []struct {
		leverage string
		want     string
	}{
		{"8.5", "5.95"},
		{"10", "7"},
		{"2.5", "2"},
		{"2.857", "2"},
		{"3", "2.1"},
	}

	for _, tt := range tests {
		got := policy.Target(decimal.RequireFromString(tt.leverage))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "leverage %s: got %s", tt.leverage, got)
	}
}

func TestMitigator_NeverBelowFloor(t *testing.T) {
	floor := decimal.NewFromInt(2)

	for _, lev := range []string{"2.01", "2.5", "2.857142", "3", "4.2", "8.5", "25", "100"} {
		t.Run(lev, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewPositionStore()
			p := scenarioPosition("pos")
			p.Leverage = decimal.RequireFromString(lev)
			require.NoError(t, store.Put(ctx, p))

			factory := NewAlertFactory(risk.DefaultThresholds(), nil, testLogger())
			m := NewMitigator(store, DefaultMitigationPolicy(), factory, testLogger())

			alert, after, err := m.Mitigate(ctx, "pos")
			require.NoError(t, err)

			want := decimal.Max(floor, p.Leverage.Mul(decimal.RequireFromString("0.7")))
			assert.True(t, after.Leverage.Equal(want), "got %s want %s", after.Leverage, want)
			assert.True(t, after.Leverage.GreaterThanOrEqual(floor))
			assert.True(t, after.Borrowed.LessThan(p.Borrowed))
			assert.True(t, after.Borrowed.IsPositive())
			assert.Equal(t, risk.AlertKindMitigation, alert.Kind)
			assert.Equal(t, risk.SeverityWarning, alert.Severity)
		})
	}
}

func TestMitigator_AtFloorIsNoop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	p := scenarioPosition("pos")
	p.Leverage = decimal.NewFromInt(2)
	require.NoError(t, store.Put(ctx, p))
	before, _ := store.Get(ctx, "pos")

	factory := NewAlertFactory(risk.DefaultThresholds(), nil, testLogger())
	m := NewMitigator(store, DefaultMitigationPolicy(), factory, testLogger())

	_, _, err := m.Mitigate(ctx, "pos")
	assert.True(t, errors.Is(err, errors.ErrMitigationNotNeeded))

	after, _ := store.Get(ctx, "pos")
	assert.Equal(t, before, after)
}

func TestMitigator_Missing(t *testing.T) {
	factory := NewAlertFactory(risk.DefaultThresholds(), nil, testLogger())
	m := NewMitigator(memory.NewPositionStore(), DefaultMitigationPolicy(), factory, testLogger())

	_, _, err := m.Mitigate(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))
}
