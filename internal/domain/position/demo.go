package position

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DemoSource serves a fixed set of positions for local runs and demos
type DemoSource struct {
	now func() time.Time
}

// NewDemoSource creates the demo seed source
func NewDemoSource() *DemoSource {
	return &DemoSource{now: time.Now}
}

// Load returns fresh copies of the demo positions
func (s *DemoSource) Load(_ context.Context) ([]*Position, error) {
	now := s.now().UTC()
	return []*Position{
		{
			ID:               "pos_1",
			Owner:            "0x1234...5678",
			Asset:            "ETH",
			Collateral:       decimal.NewFromInt(10),
			Borrowed:         decimal.NewFromInt(75000),
			Leverage:         decimal.RequireFromString("8.5"),
			CurrentPrice:     decimal.NewFromInt(3500),
			LiquidationPrice: decimal.NewFromInt(3200),
			UpdatedAt:        now,
		},
		{
			ID:               "pos_2",
			Owner:            "0x9876...5432",
			Asset:            "BTC",
			Collateral:       decimal.RequireFromString("2.3"),
			Borrowed:         decimal.NewFromInt(200000),
			Leverage:         decimal.RequireFromString("4.2"),
			CurrentPrice:     decimal.NewFromInt(95000),
			LiquidationPrice: decimal.NewFromInt(88000),
			UpdatedAt:        now,
		},
	}, nil
}
