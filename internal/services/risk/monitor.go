package riskservice

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// DefaultMaxConcurrency bounds parallel position evaluations in one pass
const DefaultMaxConcurrency = 8

// Outcome is the result of evaluating one position
type Outcome struct {
	Position position.Position
	Score    risk.Score
	Tier     risk.Tier
	Alerts   []risk.Alert
}

// PassSummary describes one evaluation pass
type PassSummary struct {
	Positions   int
	Evaluated   int
	Failed      int
	Alerts      int
	Mitigations int
	Duration    time.Duration
}

// MonitorConfig holds the monitor's tunables
type MonitorConfig struct {
	Thresholds     risk.Thresholds
	MaxConcurrency int
}

// Monitor runs the per-position evaluation pipeline:
// price refresh, score, alert, then mitigation.
type Monitor struct {
	store     position.Store
	feed      position.PriceFeed
	factory   *AlertFactory
	mitigator *Mitigator
	alerts    risk.AlertRepository
	publisher risk.Publisher
	cfg       MonitorConfig
	log       *logger.Logger
}

// NewMonitor creates a monitor. feed and publisher may be nil.
func NewMonitor(
	store position.Store,
	feed position.PriceFeed,
	factory *AlertFactory,
	mitigator *Mitigator,
	alerts risk.AlertRepository,
	publisher risk.Publisher,
	cfg MonitorConfig,
	log *logger.Logger,
) *Monitor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Monitor{
		store:     store,
		feed:      feed,
		factory:   factory,
		mitigator: mitigator,
		alerts:    alerts,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With("component", "risk_monitor"),
	}
}

// EvaluateAll evaluates every position once. Each position is an independent
// unit of work: a failure or panic in one never stops the others.
func (m *Monitor) EvaluateAll(ctx context.Context) (PassSummary, error) {
	start := time.Now()
	positions := m.store.List(ctx)

	var evaluated, failed, alerts, mitigations atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(m.cfg.MaxConcurrency)

	for _, p := range positions {
		id := p.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out, err := m.safeEvaluate(ctx, id)
			if err != nil {
				failed.Add(1)
				return nil
			}
			evaluated.Add(1)
			for _, a := range out.Alerts {
				alerts.Add(1)
				if a.Kind == risk.AlertKindMitigation {
					mitigations.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := PassSummary{
		Positions:   len(positions),
		Evaluated:   int(evaluated.Load()),
		Failed:      int(failed.Load()),
		Alerts:      int(alerts.Load()),
		Mitigations: int(mitigations.Load()),
		Duration:    time.Since(start),
	}

	m.log.Debugw("Risk pass completed",
		"positions", summary.Positions,
		"evaluated", summary.Evaluated,
		"failed", summary.Failed,
		"alerts", summary.Alerts,
		"mitigations", summary.Mitigations,
		"duration", summary.Duration,
	)

	return summary, ctx.Err()
}

func (m *Monitor) safeEvaluate(ctx context.Context, id string) (out Outcome, err error) {
	ctx = errors.WithPositionID(ctx, id)

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "panic evaluating %s: %v", id, r)
			m.log.ErrorWithContext(ctx, err, map[string]string{
				"component":   "risk_monitor",
				"position_id": id,
			})
			m.log.Debugw("Panic stack", "position_id", id, "stack", string(debug.Stack()))
			metrics.RecordEvaluation(id, "", "panic", 0)
		}
	}()

	out, err = m.Evaluate(ctx, id)
	if err != nil {
		m.log.Warnw("Position skipped this cycle",
			"position_id", id,
			"error", err,
		)
		metrics.RecordEvaluation(id, "", "error", 0)
	}
	return out, err
}

// Evaluate runs the full pipeline for one position
func (m *Monitor) Evaluate(ctx context.Context, id string) (Outcome, error) {
	p, err := m.refreshPrice(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	score := risk.Evaluate(p)
	tier := m.cfg.Thresholds.Classify(score)
	metrics.RecordEvaluation(p.ID, p.Asset, "ok", score.Value)

	out := Outcome{Position: p, Score: score, Tier: tier}
	if tier == risk.TierNone {
		return out, nil
	}

	alert := m.factory.Build(ctx, p, score)
	m.emit(ctx, alert)
	out.Alerts = append(out.Alerts, alert)

	if tier != risk.TierLiquidation || m.mitigator == nil {
		return out, nil
	}

	adjustment, mitigated, err := m.mitigator.Mitigate(ctx, id)
	switch {
	case errors.Is(err, errors.ErrMitigationNotNeeded):
		m.log.Debugw("Mitigation not needed", "position_id", id, "leverage", p.Leverage.String())
		metrics.RecordMitigation("not_needed")
		return out, nil
	case err != nil:
		metrics.RecordMitigation("error")
		return out, errors.Wrap(err, "mitigate")
	}

	metrics.RecordMitigation("applied")
	m.emit(ctx, adjustment)
	out.Alerts = append(out.Alerts, adjustment)
	out.Position = mitigated
	return out, nil
}

func (m *Monitor) refreshPrice(ctx context.Context, id string) (position.Position, error) {
	snapshot, ok := m.store.Get(ctx, id)
	if !ok {
		return position.Position{}, errors.Wrapf(errors.ErrPositionNotFound, "position %s", id)
	}
	if m.feed == nil {
		return snapshot, nil
	}

	price, err := m.feed.Price(ctx, snapshot)
	if err != nil {
		return position.Position{}, errors.Wrap(err, "price feed")
	}
	if !price.IsPositive() {
		return position.Position{}, errors.Wrapf(errors.ErrPriceUnavailable, "%s: non-positive price %s", snapshot.Asset, price)
	}

	return m.store.Update(ctx, id, func(p *position.Position) error {
		p.CurrentPrice = price
		return nil
	})
}

func (m *Monitor) emit(ctx context.Context, alert risk.Alert) {
	m.alerts.Append(alert)
	metrics.RecordAlert(string(alert.Kind), alert.Severity.String())

	m.log.Infow(fmt.Sprintf("Risk alert: %s", alert.Message),
		"alert_id", alert.ID,
		"position_id", alert.PositionID,
		"severity", alert.Severity,
		"kind", alert.Kind,
	)

	if m.publisher != nil {
		m.publisher.Publish(ctx, alert)
	}
}
