package position

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store owns the live position set.
// Update runs fn under the position's own lock and recomputes health before
// releasing it, so a price refresh and a mitigation on the same id never interleave.
type Store interface {
	Put(ctx context.Context, p Position) error
	List(ctx context.Context) []Position
	Get(ctx context.Context, id string) (Position, bool)
	Update(ctx context.Context, id string, fn func(p *Position) error) (Position, error)
}

// Source supplies the initial set of leveraged positions (ledger, indexer, demo seed)
type Source interface {
	Load(ctx context.Context) ([]*Position, error)
}

// PriceFeed returns the latest price for a position's asset
type PriceFeed interface {
	Price(ctx context.Context, p Position) (decimal.Decimal, error)
}
