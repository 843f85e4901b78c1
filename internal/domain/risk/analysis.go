package risk

import (
	"math"
	"time"

	"leverguard/internal/domain/position"
)

// Level is a human-facing risk bucket
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Color returns the display color associated with the level
func (l Level) Color() string {
	switch l {
	case LevelCritical:
		return "#ef4444"
	case LevelHigh:
		return "#f97316"
	case LevelMedium:
		return "#eab308"
	default:
		return "#22c55e"
	}
}

// LevelFor buckets a score value
func LevelFor(value float64) Level {
	switch {
	case value >= 0.8:
		return LevelCritical
	case value >= 0.6:
		return LevelHigh
	case value >= 0.3:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Metrics are the raw position figures shown alongside an analysis
type Metrics struct {
	HealthFactor           float64 `json:"healthFactor"`
	Leverage               float64 `json:"leverage"`
	LiquidationDistancePct float64 `json:"liquidationDistance"`
	CollateralRatioPct     float64 `json:"collateralRatio"`
}

// Analysis is the on-demand risk breakdown of one position
type Analysis struct {
	PositionID      string    `json:"positionId"`
	RiskLevel       Level     `json:"riskLevel"`
	Color           string    `json:"color"`
	Score           Score     `json:"score"`
	RiskScore       float64   `json:"riskScore"`
	Metrics         Metrics   `json:"metrics"`
	Recommendations []string  `json:"recommendations"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Analyze builds the risk breakdown for p using the full three-term score
func Analyze(p position.Position, now time.Time) Analysis {
	score := Evaluate(p)
	level := LevelFor(score.Value)

	price := p.CurrentPrice.InexactFloat64()
	var distance float64
	if price > 0 {
		distance = (price - p.LiquidationPrice.InexactFloat64()) / price * 100
	}

	// collateral value over debt, same quantity as the health factor
	ratio := p.HealthFactor.InexactFloat64() * 100

	return Analysis{
		PositionID: p.ID,
		RiskLevel:  level,
		Color:      level.Color(),
		Score:      score,
		RiskScore:  score.Value,
		Metrics: Metrics{
			HealthFactor:           p.HealthFactor.InexactFloat64(),
			Leverage:               p.Leverage.InexactFloat64(),
			LiquidationDistancePct: round2(distance),
			CollateralRatioPct:     round2(ratio),
		},
		Recommendations: Recommendations(score.Value),
		LastUpdated:     now.UTC(),
	}
}

// Recommendations returns advisory actions for a score value
func Recommendations(value float64) []string {
	switch {
	case value >= 0.7:
		return []string{
			"Consider reducing leverage immediately",
			"Add more collateral to improve health factor",
			"Monitor position closely for liquidation risk",
		}
	case value >= 0.4:
		return []string{
			"Monitor market conditions carefully",
			"Consider setting stop-loss orders",
		}
	default:
		return []string{
			"Position appears stable",
			"Continue regular monitoring",
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
