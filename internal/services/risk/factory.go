package riskservice

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	"leverguard/pkg/logger"
	"leverguard/pkg/templates"
)

// FallbackNarrative replaces the narrative when the narrator fails
const FallbackNarrative = "narrative unavailable, manual review recommended"

// AlertFactory turns scored positions into alerts
type AlertFactory struct {
	thresholds risk.Thresholds
	narrator   risk.Narrator
	now        func() time.Time
	log        *logger.Logger
}

// NewAlertFactory creates an alert factory. narrator may be nil, in which
// case alerts carry no narrative.
func NewAlertFactory(thresholds risk.Thresholds, narrator risk.Narrator, log *logger.Logger) *AlertFactory {
	return &AlertFactory{
		thresholds: thresholds,
		narrator:   narrator,
		now:        time.Now,
		log:        log.With("component", "alert_factory"),
	}
}

// Build creates the risk alert for a position scoring at or above the warning threshold.
// Narrative failures never fail the build.
func (f *AlertFactory) Build(ctx context.Context, p position.Position, score risk.Score) risk.Alert {
	severity := f.thresholds.SeverityFor(score)
	now := f.now().UTC()

	alert := risk.Alert{
		ID:         newAlertID(alertPrefix, now),
		PositionID: p.ID,
		Kind:       risk.AlertKindRisk,
		Severity:   severity,
		Message:    riskMessage(p, score, severity),
		Timestamp:  now,
	}

	if f.narrator != nil {
		alert.Narrative = f.narrate(ctx, p)
	}
	return alert
}

// MitigationAlert reports an applied leverage reduction
func (f *AlertFactory) MitigationAlert(before, after position.Position, repaid decimal.Decimal) risk.Alert {
	now := f.now().UTC()
	return risk.Alert{
		ID:         newAlertID(mitigationPrefix, now),
		PositionID: after.ID,
		Kind:       risk.AlertKindMitigation,
		Severity:   risk.SeverityWarning,
		Message: fmt.Sprintf(
			"Auto-adjusted: Reduced leverage from %sx to %sx to prevent liquidation (repaid %s %s)",
			before.Leverage.String(),
			after.Leverage.String(),
			humanize.CommafWithDigits(repaid.InexactFloat64(), 2),
			after.Asset,
		),
		Timestamp: now,
	}
}

func (f *AlertFactory) narrate(ctx context.Context, p position.Position) string {
	var text string
	prompt, err := NarrativePrompt(p)
	if err == nil {
		text, err = f.narrator.Narrate(ctx, risk.NarrativeRequest{PositionID: p.ID, Prompt: prompt})
	}
	if err != nil {
		f.log.Warnw("Narrative generation failed, using fallback",
			"position_id", p.ID,
			"error", err,
		)
		return FallbackNarrative
	}
	if text == "" {
		return FallbackNarrative
	}
	return text
}

func riskMessage(p position.Position, score risk.Score, severity risk.Severity) string {
	if severity == risk.SeverityCritical {
		return fmt.Sprintf("CRITICAL: Position %s (%s) at %.1f%% risk. Liquidation imminent!", p.ID, p.Asset, score.Percent())
	}
	return fmt.Sprintf("WARNING: Position %s (%s) at %.1f%% risk. Consider reducing leverage.", p.ID, p.Asset, score.Percent())
}

// NarrativePrompt renders the position as a prompt for the narrative service
func NarrativePrompt(p position.Position) (string, error) {
	return templates.Get().Render(templates.PositionRiskPrompt, p)
}
