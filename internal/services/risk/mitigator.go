package riskservice

import (
	"context"

	"github.com/shopspring/decimal"

	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// MitigationPolicy controls automatic deleveraging
type MitigationPolicy struct {
	// LeverageFloor is the lowest leverage mitigation will ever set
	LeverageFloor decimal.Decimal
	// ReductionFactor multiplies the current leverage to get the target
	ReductionFactor decimal.Decimal
}

// DefaultMitigationPolicy returns floor 2x, factor 0.7
func DefaultMitigationPolicy() MitigationPolicy {
	return MitigationPolicy{
		LeverageFloor:   decimal.NewFromInt(2),
		ReductionFactor: decimal.RequireFromString("0.7"),
	}
}

// Target returns max(floor, leverage * factor)
func (p MitigationPolicy) Target(leverage decimal.Decimal) decimal.Decimal {
	return decimal.Max(p.LeverageFloor, leverage.Mul(p.ReductionFactor))
}

// Mitigator reduces leverage on positions at liquidation-tier risk
type Mitigator struct {
	store   position.Store
	policy  MitigationPolicy
	factory *AlertFactory
	log     *logger.Logger
}

// NewMitigator creates a mitigator
func NewMitigator(store position.Store, policy MitigationPolicy, factory *AlertFactory, log *logger.Logger) *Mitigator {
	return &Mitigator{
		store:   store,
		policy:  policy,
		factory: factory,
		log:     log.With("component", "mitigator"),
	}
}

// Mitigate deleverages a position under its store lock and returns the
// adjustment alert with the post-mitigation position.
// It returns ErrMitigationNotNeeded when leverage is already at or below the floor.
func (m *Mitigator) Mitigate(ctx context.Context, id string) (risk.Alert, position.Position, error) {
	var (
		before position.Position
		repaid decimal.Decimal
	)

	after, err := m.store.Update(ctx, id, func(p *position.Position) error {
		if p.Leverage.LessThanOrEqual(m.policy.LeverageFloor) {
			return errors.Wrapf(errors.ErrMitigationNotNeeded, "position %s at %sx", p.ID, p.Leverage)
		}
		before = *p

		target := m.policy.Target(p.Leverage)
		reduction := decimal.NewFromInt(1).Sub(target.Div(p.Leverage))
		repaid = p.Borrowed.Mul(reduction)

		p.Borrowed = p.Borrowed.Sub(repaid)
		p.Leverage = target
		return nil
	})
	if err != nil {
		return risk.Alert{}, after, err
	}

	m.log.Infow("Leverage reduced",
		"position_id", id,
		"from", before.Leverage.String(),
		"to", after.Leverage.String(),
		"repaid", repaid.StringFixed(2),
		"health_factor", after.HealthFactor.StringFixed(4),
	)

	return m.factory.MitigationAlert(before, after, repaid), after, nil
}
