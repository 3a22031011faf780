// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlconn

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
)

// ErrTXDone is returned when a committed or rolled back transaction is used.
var ErrTXDone = sql.ErrTxDone

// TX is a driver.Conn running every command in one transaction.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

var _ driver.Conn = (*TX)(nil)

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// Begin starts a transaction. A transaction must be ended
// with a [TX.Commit] or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Dialect returns the provider of the database dialect.
func (tx *TX) Dialect() dialect.Provider {
	return tx.db.provider
}

// Query runs cmd in the transaction and returns its rows.
func (tx *TX) Query(ctx context.Context, cmd *driver.Command) (driver.Cursor, error) {
	if tx.isDone() {
		return nil, ErrTXDone
	}
	args, finish := bindArgs(cmd, tx.db.provider.Features().NamedParameters)
	rows, err := tx.stmt(ctx, cmd.Text).QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return newCursor(rows, finish), nil
}

// Exec runs cmd in the transaction without returning rows.
func (tx *TX) Exec(ctx context.Context, cmd *driver.Command) (driver.Result, error) {
	if tx.isDone() {
		return nil, ErrTXDone
	}
	args, finish := bindArgs(cmd, tx.db.provider.Features().NamedParameters)
	res, err := tx.stmt(ctx, cmd.Text).ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	finish()
	return res, nil
}

// runner is satisfied by both sql.Tx and sql.Stmt.
type runner interface {
	QueryContext(ctx context.Context, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
}

// stmt returns a runner for text. A statement already prepared on the
// database is registered on the transaction. Note that this does not
// re-prepare the statement on the driver. The transaction statement is
// closed by database/sql when the transaction is committed or rolled back.
func (tx *TX) stmt(ctx context.Context, text string) runner {
	if tx.db.stmts != nil {
		if stmt, ok := tx.db.stmts.lookup(text); ok {
			return tx.sqltx.StmtContext(ctx, stmt)
		}
	}
	return txText{tx: tx.sqltx, text: text}
}

// txText runs unprepared text on a transaction.
type txText struct {
	tx   *sql.Tx
	text string
}

func (t txText) QueryContext(ctx context.Context, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.text, args...)
}

func (t txText) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.text, args...)
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}
