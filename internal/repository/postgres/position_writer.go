package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"leverguard/internal/domain/position"
	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
)

// Schema creates the ledger table read by PositionSource
//
//go:embed schema.sql
var Schema string

const upsertPosition = `
	INSERT INTO leveraged_positions (
		id, owner_address, asset,
		collateral, borrowed, leverage,
		current_price, liquidation_price, updated_at
	) VALUES (
		:id, :owner_address, :asset,
		:collateral, :borrowed, :leverage,
		:current_price, :liquidation_price, :updated_at
	)
	ON CONFLICT (id) DO UPDATE SET
		owner_address     = EXCLUDED.owner_address,
		asset             = EXCLUDED.asset,
		collateral        = EXCLUDED.collateral,
		borrowed          = EXCLUDED.borrowed,
		leverage          = EXCLUDED.leverage,
		current_price     = EXCLUDED.current_price,
		liquidation_price = EXCLUDED.liquidation_price,
		status            = 'open',
		updated_at        = EXCLUDED.updated_at`

// Execer is satisfied by both *sqlx.DB and *sqlx.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// PositionWriter seeds the ledger table. Used by the seeder command and integration tests.
type PositionWriter struct {
	db Execer
}

// NewPositionWriter creates a ledger writer
func NewPositionWriter(db Execer) *PositionWriter {
	return &PositionWriter{db: db}
}

// Migrate applies Schema. Safe to run repeatedly.
func (w *PositionWriter) Migrate(ctx context.Context) error {
	start := time.Now()
	_, err := w.db.ExecContext(ctx, Schema)
	metrics.RecordDBQuery("postgres", "migrate", time.Since(start), err)
	if err != nil {
		return errors.Wrap(err, "apply leveraged_positions schema")
	}
	return nil
}

// Upsert inserts or reopens each position, validating it first
func (w *PositionWriter) Upsert(ctx context.Context, positions []*position.Position) (int, error) {
	for i, p := range positions {
		if err := p.Validate(); err != nil {
			return i, err
		}

		start := time.Now()
		_, err := w.db.NamedExecContext(ctx, upsertPosition, p)
		metrics.RecordDBQuery("postgres", "upsert_position", time.Since(start), err)
		if err != nil {
			return i, errors.Wrapf(err, "upsert position %s", p.ID)
		}
	}
	return len(positions), nil
}
