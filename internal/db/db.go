// Package db is the hand-maintained query layer over Postgres. It keeps the
// conventional Querier/Queries split so handlers and the worker depend on a
// narrow interface that tests can stub, while the store package swaps in a
// transaction-scoped Queries via WithTx.
package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries executes all SQL in this package against the given DBTX.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to a connection pool (or transaction).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries scoped to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
