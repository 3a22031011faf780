// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/command"
	"github.com/canonical/sqlrecord/internal/errs"
)

// DB runs commands built for record types on a connection.
type DB struct {
	conn   driver.Conn
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used to trace commands. Commands are logged at
// debug level with their parameters inlined as literals.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// NewDB creates a new [DB] from a connection. Both sqlconn.DB and sqlconn.TX
// can be used.
func NewDB(conn driver.Conn, opts ...Option) *DB {
	if conn == nil {
		return nil
	}
	db := &DB{conn: conn, logger: slog.Default()}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Conn returns the underlying connection.
func (db *DB) Conn() driver.Conn {
	return db.conn
}

// Dialect returns the format provider of the connection.
func (db *DB) Dialect() dialect.Provider {
	return db.conn.Dialect()
}

// Placeholder returns the placeholder for the 1-based parameter ordinal, for
// use in predicates.
func (db *DB) Placeholder(ordinal int) string {
	return db.conn.Dialect().Placeholder(ordinal)
}

func (db *DB) query(ctx context.Context, op string, cmd *driver.Command) (driver.Cursor, error) {
	db.trace(ctx, op, cmd)
	cur, err := db.conn.Query(ctx, cmd)
	if err != nil {
		return nil, errs.Execution(op, err)
	}
	return cur, nil
}

func (db *DB) exec(ctx context.Context, op string, cmd *driver.Command) (driver.Result, error) {
	db.trace(ctx, op, cmd)
	res, err := db.conn.Exec(ctx, cmd)
	if err != nil {
		return nil, errs.Execution(op, err)
	}
	return res, nil
}

func (db *DB) trace(ctx context.Context, op string, cmd *driver.Command) {
	if !db.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	db.logger.DebugContext(ctx, "executing command",
		"op", op,
		"dialect", db.Dialect().Name(),
		"command", command.Render(cmd, db.Dialect()),
	)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// recordValue returns the struct held by record, which may be a pointer.
func recordValue(record any) (reflect.Value, error) {
	if record == nil {
		return reflect.Value{}, errs.Usage("need record, got nil")
	}
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errs.Usage("need record, got nil %s", v.Type())
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, errs.Usage("need struct record, got %s", v.Type())
	}
	return v, nil
}

// recordType returns T, or the type T points to.
func recordType[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// recordAs converts a pointer to a new record into T.
func recordAs[T any](record reflect.Value) T {
	if v, ok := record.Interface().(T); ok {
		return v
	}
	return record.Elem().Interface().(T)
}
