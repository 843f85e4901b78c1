package risk

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"leverguard/internal/domain/position"
)

func ethPosition(price float64) position.Position {
	p := position.Position{
		ID:               "pos_1",
		Asset:            "ETH",
		Collateral:       decimal.NewFromInt(10),
		Borrowed:         decimal.NewFromInt(75000),
		Leverage:         decimal.RequireFromString("8.5"),
		CurrentPrice:     decimal.NewFromFloat(price),
		LiquidationPrice: decimal.NewFromInt(3200),
	}
	p.RecomputeHealth()
	return p
}

func TestEvaluate_WarningScenario(t *testing.T) {
	s := Evaluate(ethPosition(3500))

	assert.InDelta(t, 0.6889, s.HealthFactorRisk, 1e-4)
	assert.Equal(t, 0.85, s.LeverageRisk)
	assert.InDelta(t, 0.9143, s.LiquidationDistanceRisk, 1e-4)
	assert.InDelta(t, 0.8819, s.Value, 1e-4)

	th := DefaultThresholds()
	assert.Equal(t, TierAlert, th.Classify(s))
	assert.Equal(t, SeverityWarning, th.SeverityFor(s))
}

func TestEvaluate_CriticalScenario(t *testing.T) {
	// 10 * 2250 / 75000 = 0.3
	p := ethPosition(2250)
	assert.True(t, p.HealthFactor.Equal(decimal.RequireFromString("0.3")))

	s := Evaluate(p)
	assert.InDelta(t, 0.8, s.HealthFactorRisk, 1e-12)
	assert.InDelta(t, 0.939, s.Value, 1e-3)

	th := DefaultThresholds()
	assert.Equal(t, TierLiquidation, th.Classify(s))
	assert.Equal(t, SeverityCritical, th.SeverityFor(s))
}

func TestEvaluate_ExactWeights(t *testing.T) {
	p := ethPosition(3500)
	hf := p.HealthFactor.InexactFloat64()

	want := 0.5*math.Max(0, (1.5-hf)/1.5) +
		0.3*math.Min(1, 8.5/10) +
		0.2*math.Max(0, 1-(3500.0-3200.0)/3500.0)

	assert.Equal(t, math.Min(1, want), Evaluate(p).Value)
}

func TestEvaluate_HealthyFactorHasNoHealthRisk(t *testing.T) {
	for _, price := range []float64{11250, 12000, 50000, 1e6} {
		p := ethPosition(price)
		assert.True(t, p.HealthFactor.GreaterThanOrEqual(decimal.RequireFromString("1.5")))
		assert.Zero(t, Evaluate(p).HealthFactorRisk, "price %v", price)
	}
}

func TestEvaluate_LeverageSaturates(t *testing.T) {
	for _, lev := range []string{"10", "12.5", "100"} {
		p := ethPosition(3500)
		p.Leverage = decimal.RequireFromString(lev)
		assert.Equal(t, 1.0, Evaluate(p).LeverageRisk, "leverage %s", lev)
	}
}

func TestEvaluate_ClampedToUnitInterval(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		leverage string
		borrowed int64
		liq      int64
	}{
		{"deep underwater", 10, "50", 1_000_000, 5000},
		{"no debt", 3500, "1", 0, 0},
		{"tiny price", 0.0001, "9", 75000, 3200},
		{"liquidation at zero", 3500, "3", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ethPosition(tt.price)
			p.Leverage = decimal.RequireFromString(tt.leverage)
			p.Borrowed = decimal.NewFromInt(tt.borrowed)
			p.LiquidationPrice = decimal.NewFromInt(tt.liq)
			p.RecomputeHealth()

			s := Evaluate(p)
			assert.GreaterOrEqual(t, s.Value, 0.0)
			assert.LessOrEqual(t, s.Value, 1.0)
		})
	}
}

func TestEvaluate_DoesNotMutate(t *testing.T) {
	p := ethPosition(3500)
	before := p
	Evaluate(p)
	assert.Equal(t, before, p)
}

func TestThresholds_Classify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		value float64
		want  Tier
	}{
		{0, TierNone},
		{0.6999, TierNone},
		{0.7, TierAlert},
		{0.8999, TierAlert},
		{0.9, TierLiquidation},
		{1, TierLiquidation},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Classify(Score{Value: tt.value}), "value %v", tt.value)
	}
}

func TestSeverity_Valid(t *testing.T) {
	assert.True(t, SeverityWarning.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.True(t, SeverityLiquidation.Valid())
	assert.False(t, Severity("info").Valid())
}
