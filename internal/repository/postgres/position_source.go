package postgres

import (
	"context"
	"time"

	"leverguard/internal/domain/position"
	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
)

var _ position.Source = (*PositionSource)(nil)

const selectOpenPositions = `
	SELECT id, owner_address, asset,
	       collateral, borrowed, leverage,
	       current_price, liquidation_price, updated_at
	FROM leveraged_positions
	WHERE status = 'open'
	ORDER BY opened_at, id`

const countOpenPositions = `SELECT COUNT(*) FROM leveraged_positions WHERE status = 'open'`

// PositionSource loads open leveraged positions from the ledger database
type PositionSource struct {
	db DBTX
}

// NewPositionSource creates a ledger backed position source
func NewPositionSource(db DBTX) *PositionSource {
	return &PositionSource{db: db}
}

// Load returns every open position in ledger order
func (s *PositionSource) Load(ctx context.Context) ([]*position.Position, error) {
	start := time.Now()

	var rows []position.Position
	err := s.db.SelectContext(ctx, &rows, selectOpenPositions)
	metrics.RecordDBQuery("postgres", "load_positions", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "select open positions")
	}

	out := make([]*position.Position, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

// Count returns the number of open positions
func (s *PositionSource) Count(ctx context.Context) (int, error) {
	start := time.Now()

	var n int
	err := s.db.GetContext(ctx, &n, countOpenPositions)
	metrics.RecordDBQuery("postgres", "count_positions", time.Since(start), err)
	if err != nil {
		return 0, errors.Wrap(err, "count open positions")
	}
	return n, nil
}
