// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package driver

import (
	"context"
	"database/sql"

	"github.com/canonical/sqlrecord/dialect"
)

// Conn executes commands. It is implemented by the connection layer.
type Conn interface {
	// Dialect returns the format provider used to build commands for
	// this connection.
	Dialect() dialect.Provider
	// Query executes cmd and returns a cursor positioned before the first
	// row of the first result set.
	Query(ctx context.Context, cmd *Command) (Cursor, error)
	// Exec executes cmd without returning rows.
	Exec(ctx context.Context, cmd *Command) (Result, error)
}

// Cursor is a forward-only, single pass handle over one or more tabular
// result sets.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	NextResultSet() bool
	Err() error
	Close() error
}

// Result summarises an executed command.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

var (
	_ Cursor = (*sql.Rows)(nil)
	_ Result = sql.Result(nil)
)
