// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlconn

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry     = 1062
	mysqlNoReferencedRow    = 1216
	mysqlRowIsReferenced    = 1217
	mysqlRowIsReferenced2   = 1451
	mysqlNoReferencedRow2   = 1452
	mysqlCheckViolated      = 3819
	mysqlColumnCannotBeNull = 1048
)

// IsConstraintError reports whether err is an integrity constraint
// violation raised by the database. ExecutionErrors are unwrapped.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlNoReferencedRow, mysqlRowIsReferenced,
			mysqlRowIsReferenced2, mysqlNoReferencedRow2, mysqlCheckViolated,
			mysqlColumnCannotBeNull:
			return true
		}
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return IsUniqueConstraintError(err) || IsForeignKeyConstraintError(err)
}

// IsUniqueConstraintError reports whether err is a unique or primary key
// violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
		"Violation of PRIMARY KEY",   // SQL Server
		"Cannot insert duplicate key",
	)
}

// IsForeignKeyConstraintError reports whether err is a foreign key
// violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlNoReferencedRow, mysqlRowIsReferenced, mysqlRowIsReferenced2, mysqlNoReferencedRow2:
			return true
		}
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return containsAny(err.Error(),
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
		"conflicted with the FOREIGN KEY", // SQL Server
		"a foreign key constraint fails",  // MySQL
	)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
