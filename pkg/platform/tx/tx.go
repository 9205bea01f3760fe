// Package tx carries an open database transaction through a context so that
// store methods called inside a transactor's callback join the same transaction.
package tx

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
)

type (
	sqlKey struct{}
	pgxKey struct{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, sqlKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(sqlKey{}).(*sql.Tx)
	return tx, ok
}

// WithPgx stores a pgx transaction in context.
func WithPgx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, pgxKey{}, tx)
}

// PgxFrom extracts a pgx transaction from context if present.
func PgxFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(pgxKey{}).(pgx.Tx)
	return tx, ok
}
