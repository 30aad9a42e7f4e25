package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const connKey contextKey = "db_conn"

// Queryable is the subset of pgx operations shared by pools, connections and
// transactions. Repositories issue their SQL through it so that the same code
// runs inside and outside a transaction.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ConnFromContext retrieves a transaction-scoped handle placed by WithTx, or
// nil when the caller is not inside a transaction.
func ConnFromContext(ctx context.Context) Queryable {
	q, _ := ctx.Value(connKey).(Queryable)
	return q
}

// WithQueryable returns a context carrying q as the database handle.
// Repository calls made with the returned context run against q instead of
// the pool; WithTx uses this internally, and tests use it to substitute
// fakes.
func WithQueryable(ctx context.Context, q Queryable) context.Context {
	return context.WithValue(ctx, connKey, q)
}

// WithTx runs fn inside a database transaction. The transaction handle rides
// the context so that every repository call made from fn joins it; the
// transaction commits when fn returns nil and rolls back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(WithQueryable(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TxRunner is the function signature services use to request transactional
// execution without depending on pgx directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// RunInTx adapts a pool to a TxRunner.
func RunInTx(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return WithTx(ctx, pool, fn)
	}
}
