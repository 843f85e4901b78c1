package postgres

import (
	"context"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx, so readers run inside test transactions
type DBTX interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
