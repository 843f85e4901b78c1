package workers

import (
	"context"
	"time"

	riskservice "leverguard/internal/services/risk"
	"leverguard/pkg/errors"
)

// RiskMonitorName is the scheduler name of the risk monitoring worker
const RiskMonitorName = "risk_monitor"

// PassRunner evaluates every monitored position once
type PassRunner interface {
	EvaluateAll(ctx context.Context) (riskservice.PassSummary, error)
}

// RiskMonitorWorker runs one risk evaluation pass per tick
type RiskMonitorWorker struct {
	*BaseWorker
	monitor PassRunner
}

// NewRiskMonitorWorker creates the risk monitoring worker
func NewRiskMonitorWorker(monitor PassRunner, interval time.Duration, enabled bool) *RiskMonitorWorker {
	return &RiskMonitorWorker{
		BaseWorker: NewBaseWorker(RiskMonitorName, interval, enabled),
		monitor:    monitor,
	}
}

// Run executes one pass. Per-position failures are absorbed by the monitor;
// only cancellation is reported as an error.
func (w *RiskMonitorWorker) Run(ctx context.Context) error {
	summary, err := w.monitor.EvaluateAll(ctx)
	if err != nil {
		return errors.Wrap(err, "risk pass")
	}

	if summary.Failed > 0 {
		w.Log().Warnw("Risk pass finished with skipped positions",
			"positions", summary.Positions,
			"failed", summary.Failed,
		)
	}
	if summary.Alerts > 0 {
		w.Log().Infow("Risk pass emitted alerts",
			"alerts", summary.Alerts,
			"mitigations", summary.Mitigations,
			"duration", summary.Duration,
		)
	}
	return nil
}
