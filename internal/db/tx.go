package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxStarter is satisfied by *pgxpool.Pool and by pgx.Tx (savepoints).
type TxStarter interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn inside one transaction. Any error from fn rolls the whole
// transaction back; nothing fn wrote is visible unless it returns nil.
func WithTx(ctx context.Context, starter TxStarter, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := starter.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
