package riskservice

import (
	"context"
	"time"

	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	"leverguard/pkg/errors"
)

// DefaultAlertLimit is used when callers do not ask for a specific count
const DefaultAlertLimit = 50

// Query is the read side consumed by the HTTP layer
type Query struct {
	store  position.Store
	alerts risk.AlertRepository
	now    func() time.Time
}

// NewQuery creates the read API
func NewQuery(store position.Store, alerts risk.AlertRepository) *Query {
	return &Query{store: store, alerts: alerts, now: time.Now}
}

// Positions returns all monitored positions
func (q *Query) Positions(ctx context.Context) []position.Position {
	return q.store.List(ctx)
}

// Position returns one position or ErrPositionNotFound
func (q *Query) Position(ctx context.Context, id string) (position.Position, error) {
	p, ok := q.store.Get(ctx, id)
	if !ok {
		return position.Position{}, errors.Wrapf(errors.ErrPositionNotFound, "position %s", id)
	}
	return p, nil
}

// Alerts returns up to limit recent alerts, most recent first
func (q *Query) Alerts(_ context.Context, limit int) []risk.Alert {
	return q.alerts.Recent(limit)
}

// Analyze returns the risk breakdown of one position
func (q *Query) Analyze(ctx context.Context, id string) (risk.Analysis, error) {
	p, err := q.Position(ctx, id)
	if err != nil {
		return risk.Analysis{}, err
	}
	return risk.Analyze(p, q.now()), nil
}

// Stats summarises the book and the most recent alerts
func (q *Query) Stats(ctx context.Context) risk.Stats {
	return risk.ComputeStats(q.store.List(ctx), q.alerts.Recent(risk.StatsAlertWindow), q.now())
}
