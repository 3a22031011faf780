// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlconn

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
)

// DB is a driver.Conn backed by a sql.DB.
type DB struct {
	sqldb    *sql.DB
	provider dialect.Provider
	// stmts is nil unless statements are prepared.
	stmts *stmtCache
}

var _ driver.Conn = (*DB)(nil)

// Option configures a DB.
type Option func(*DB)

// WithPreparedStatements prepares each distinct command text once and
// reuses the prepared statement afterwards. The statements are closed by
// [DB.Close].
func WithPreparedStatements() Option {
	return func(db *DB) {
		db.stmts = newStmtCache()
	}
}

// New wraps sqldb. dialectName is looked up with dialect.Get.
func New(sqldb *sql.DB, dialectName string, opts ...Option) (*DB, error) {
	provider, err := dialect.Get(dialectName)
	if err != nil {
		return nil, err
	}
	db := &DB{sqldb: sqldb, provider: provider}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Dialect returns the provider of the database dialect.
func (db *DB) Dialect() dialect.Provider {
	return db.provider
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Query runs cmd and returns its rows.
func (db *DB) Query(ctx context.Context, cmd *driver.Command) (driver.Cursor, error) {
	args, finish := bindArgs(cmd, db.provider.Features().NamedParameters)
	var rows *sql.Rows
	var err error
	if db.stmts != nil {
		var stmt *sql.Stmt
		stmt, err = db.stmts.prepare(ctx, db.sqldb, cmd.Text)
		if err != nil {
			return nil, err
		}
		rows, err = stmt.QueryContext(ctx, args...)
	} else {
		rows, err = db.sqldb.QueryContext(ctx, cmd.Text, args...)
	}
	if err != nil {
		return nil, err
	}
	return newCursor(rows, finish), nil
}

// Exec runs cmd without returning rows.
func (db *DB) Exec(ctx context.Context, cmd *driver.Command) (driver.Result, error) {
	args, finish := bindArgs(cmd, db.provider.Features().NamedParameters)
	var res sql.Result
	var err error
	if db.stmts != nil {
		var stmt *sql.Stmt
		stmt, err = db.stmts.prepare(ctx, db.sqldb, cmd.Text)
		if err != nil {
			return nil, err
		}
		res, err = stmt.ExecContext(ctx, args...)
	} else {
		res, err = db.sqldb.ExecContext(ctx, cmd.Text, args...)
	}
	if err != nil {
		return nil, err
	}
	finish()
	return res, nil
}

// Close closes any prepared statements and then the database.
func (db *DB) Close() error {
	if db.stmts != nil {
		db.stmts.closeAll()
	}
	return db.sqldb.Close()
}

// bindArgs returns the query arguments of cmd. Output parameters are bound
// with sql.Out; finish copies their values back onto the command and must
// be called once the rows have been closed.
func bindArgs(cmd *driver.Command, named bool) ([]any, func()) {
	params := cmd.Parameters()
	args := make([]any, len(params))
	var outputs []func()
	for i, p := range params {
		arg := p.Value
		if p.Direction != driver.In {
			dest := outputDest(p.Value)
			arg = sql.Out{Dest: dest.Interface(), In: p.Direction == driver.InOut}
			outputs = append(outputs, func() {
				p.Value = dest.Elem().Interface()
			})
		}
		if named {
			arg = sql.Named(p.Name, arg)
		}
		args[i] = arg
	}
	return args, func() {
		for _, output := range outputs {
			output()
		}
	}
}

// outputDest returns a pointer initialised with v, of v's type when known.
func outputDest(v any) reflect.Value {
	if v == nil {
		return reflect.New(reflect.TypeOf((*any)(nil)).Elem())
	}
	dest := reflect.New(reflect.TypeOf(v))
	dest.Elem().Set(reflect.ValueOf(v))
	return dest
}

// cursor runs a callback once the rows are closed.
type cursor struct {
	*sql.Rows
	finish func()
}

func newCursor(rows *sql.Rows, finish func()) *cursor {
	return &cursor{Rows: rows, finish: finish}
}

func (c *cursor) Close() error {
	err := c.Rows.Close()
	if c.finish != nil {
		c.finish()
		c.finish = nil
	}
	return err
}
