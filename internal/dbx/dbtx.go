// Package dbx holds the small database plumbing the repository layer is
// built on: the DBTX query interface that lets a repository run against
// either a bare connection or an open transaction, and WithTx for wrapping
// multi-statement writes.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the slice of database/sql the repositories query through.
// *sql.DB and *sql.Tx both satisfy it, so the same repository code works
// standalone or inside WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx opens a transaction and runs fn against it, committing when fn
// returns nil and rolling back otherwise. A panic inside fn rolls back and
// is rethrown.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
