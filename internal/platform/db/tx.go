package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// WithTx runs fn inside a single transaction carried on the context.
// Repositories pick the transaction up through TxFromContext, so a service
// operation spanning several repository calls commits or rolls back as one
// write. The transaction is rolled back on error or panic.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TxFromContext returns the transaction carried on the context, or nil
// when the caller is not inside WithTx.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// TxRunner is the transaction boundary services depend on. Wiring passes
// Runner(pool); tests pass a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func Runner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return WithTx(ctx, pool, fn)
	}
}
