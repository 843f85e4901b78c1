package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"leverguard/internal/domain/position"
)

// StatsAlertWindow is how many recent alerts the stats summary counts
const StatsAlertWindow = 100

// Health factor band edges used by the distribution
var (
	bandLow    = decimal.RequireFromString("1.5")
	bandMedium = decimal.RequireFromString("1.2")
	bandHigh   = decimal.RequireFromString("1.1")
)

// Overview aggregates the book
type Overview struct {
	TotalPositions  int             `json:"totalPositions"`
	TotalCollateral decimal.Decimal `json:"totalCollateral"`
	TotalBorrowed   decimal.Decimal `json:"totalBorrowed"`
	AvgLeverage     decimal.Decimal `json:"avgLeverage"`
}

// Distribution counts positions per health factor band
type Distribution struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// AlertCounts counts recent alerts per severity
type AlertCounts struct {
	Total       int `json:"total"`
	Warning     int `json:"warning"`
	Critical    int `json:"critical"`
	Liquidation int `json:"liquidation"`
}

// Stats is the leverage book summary
type Stats struct {
	Overview         Overview     `json:"overview"`
	RiskDistribution Distribution `json:"riskDistribution"`
	RecentAlerts     AlertCounts  `json:"recentAlerts"`
	Timestamp        time.Time    `json:"timestamp"`
}

// ComputeStats summarises positions and recent alerts
func ComputeStats(positions []position.Position, alerts []Alert, now time.Time) Stats {
	stats := Stats{Timestamp: now.UTC()}

	leverageSum := decimal.Zero
	for _, p := range positions {
		stats.Overview.TotalCollateral = stats.Overview.TotalCollateral.Add(p.Collateral)
		stats.Overview.TotalBorrowed = stats.Overview.TotalBorrowed.Add(p.Borrowed)
		leverageSum = leverageSum.Add(p.Leverage)

		switch hf := p.HealthFactor; {
		case hf.GreaterThanOrEqual(bandLow):
			stats.RiskDistribution.Low++
		case hf.GreaterThanOrEqual(bandMedium):
			stats.RiskDistribution.Medium++
		case hf.GreaterThanOrEqual(bandHigh):
			stats.RiskDistribution.High++
		default:
			stats.RiskDistribution.Critical++
		}
	}

	stats.Overview.TotalPositions = len(positions)
	if len(positions) > 0 {
		stats.Overview.AvgLeverage = leverageSum.
			Div(decimal.NewFromInt(int64(len(positions)))).
			Round(2)
	}

	stats.RecentAlerts.Total = len(alerts)
	for _, a := range alerts {
		switch a.Severity {
		case SeverityWarning:
			stats.RecentAlerts.Warning++
		case SeverityCritical:
			stats.RecentAlerts.Critical++
		case SeverityLiquidation:
			stats.RecentAlerts.Liquidation++
		}
	}

	return stats
}
