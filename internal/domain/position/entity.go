package position

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"leverguard/pkg/errors"
)

// NoDebtHealthFactor stands in for an infinite health factor when nothing is borrowed
var NoDebtHealthFactor = decimal.NewFromInt(1_000_000)

// Position is a leveraged position snapshot.
// HealthFactor is derived; only RecomputeHealth writes it.
type Position struct {
	ID    string `json:"id" db:"id"`
	Owner string `json:"userAddress" db:"owner_address"`
	Asset string `json:"asset" db:"asset"`

	Collateral decimal.Decimal `json:"collateral" db:"collateral"`
	Borrowed   decimal.Decimal `json:"borrowed" db:"borrowed"`
	Leverage   decimal.Decimal `json:"leverage" db:"leverage"`

	CurrentPrice     decimal.Decimal `json:"currentPrice" db:"current_price"`
	LiquidationPrice decimal.Decimal `json:"liquidationPrice" db:"liquidation_price"`
	HealthFactor     decimal.Decimal `json:"healthFactor" db:"-"`

	UpdatedAt time.Time `json:"timestamp" db:"updated_at"`
}

// RecomputeHealth sets HealthFactor = collateral * currentPrice / borrowed
func (p *Position) RecomputeHealth() {
	if p.Borrowed.IsZero() {
		p.HealthFactor = NoDebtHealthFactor
		return
	}
	p.HealthFactor = p.Collateral.Mul(p.CurrentPrice).Div(p.Borrowed)
}

// Validate checks the invariants required to score a position.
// A current price below the liquidation price is allowed.
func (p *Position) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return invalid(p.ID, "id", "must not be empty", p.ID)
	case strings.TrimSpace(p.Asset) == "":
		return invalid(p.ID, "asset", "must not be empty", p.Asset)
	case !p.Collateral.IsPositive():
		return invalid(p.ID, "collateral", "must be > 0", p.Collateral)
	case p.Borrowed.IsNegative():
		return invalid(p.ID, "borrowed", "must be >= 0", p.Borrowed)
	case !p.Leverage.IsPositive():
		return invalid(p.ID, "leverage", "must be > 0", p.Leverage)
	case !p.CurrentPrice.IsPositive():
		return invalid(p.ID, "currentPrice", "must be > 0", p.CurrentPrice)
	case p.LiquidationPrice.IsNegative():
		return invalid(p.ID, "liquidationPrice", "must be >= 0", p.LiquidationPrice)
	}
	return nil
}

func invalid(id, field, msg string, value interface{}) error {
	return errors.Wrapf(errors.ErrInvalidPosition, "position %s: %s", id, errors.NewValidationError(field, msg, value).Error())
}
