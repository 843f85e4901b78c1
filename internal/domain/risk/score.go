package risk

import (
	"math"

	"leverguard/internal/domain/position"
)

// Scoring weights and clamp points. Thresholds elsewhere are calibrated
// against these exact values; changing any of them changes alerting behaviour.
const (
	HealthFactorWeight        = 0.5
	LeverageWeight            = 0.3
	LiquidationDistanceWeight = 0.2

	// SafeHealthFactor is the health factor at and above which health risk is zero
	SafeHealthFactor = 1.5

	// LeverageSaturation is the leverage at and above which leverage risk is one
	LeverageSaturation = 10.0
)

// Score is the transient result of scoring one position
type Score struct {
	Value                   float64 `json:"riskScore"`
	HealthFactorRisk        float64 `json:"healthFactorRisk"`
	LeverageRisk            float64 `json:"leverageRisk"`
	LiquidationDistanceRisk float64 `json:"liquidationDistanceRisk"`
}

// Percent returns the score as a percentage
func (s Score) Percent() float64 {
	return s.Value * 100
}

// Evaluate scores a position. It does not modify its argument.
func Evaluate(p position.Position) Score {
	hf := p.HealthFactor.InexactFloat64()
	leverage := p.Leverage.InexactFloat64()
	price := p.CurrentPrice.InexactFloat64()
	liquidation := p.LiquidationPrice.InexactFloat64()

	s := Score{
		HealthFactorRisk: math.Max(0, (SafeHealthFactor-hf)/SafeHealthFactor),
		LeverageRisk:     math.Min(1, leverage/LeverageSaturation),
	}
	if price > 0 {
		s.LiquidationDistanceRisk = math.Max(0, 1-(price-liquidation)/price)
	}

	s.Value = math.Min(1,
		s.HealthFactorRisk*HealthFactorWeight+
			s.LeverageRisk*LeverageWeight+
			s.LiquidationDistanceRisk*LiquidationDistanceWeight,
	)
	return s
}

// Tier classifies a score against the alerting thresholds
type Tier int

const (
	// TierNone means no alert this cycle
	TierNone Tier = iota
	// TierAlert means a warning alert is emitted
	TierAlert
	// TierLiquidation means a critical alert is emitted and mitigation runs
	TierLiquidation
)

// String returns string representation
func (t Tier) String() string {
	switch t {
	case TierAlert:
		return "alert"
	case TierLiquidation:
		return "liquidation"
	default:
		return "none"
	}
}

// Thresholds holds the warning and critical cut points
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds returns the 0.7 / 0.9 product thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 0.7, Critical: 0.9}
}

// Classify maps a score to a tier
func (t Thresholds) Classify(s Score) Tier {
	switch {
	case s.Value >= t.Critical:
		return TierLiquidation
	case s.Value >= t.Warning:
		return TierAlert
	default:
		return TierNone
	}
}

// SeverityFor maps a score to the severity of its alert
func (t Thresholds) SeverityFor(s Score) Severity {
	if s.Value >= t.Critical {
		return SeverityCritical
	}
	return SeverityWarning
}
