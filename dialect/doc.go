// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package dialect contains the format providers used by sqlrecord to render SQL
for a particular database engine.

A Provider is a set of pure functions: it escapes identifiers, renders literal
values for a declared column type, produces parameter placeholders and the
statement separator. Command builders are written against the Provider
interface only, never against a concrete dialect.

# Supported dialects

	tsql      SQL Server and other T-SQL engines     [name]   @p1
	mysql     MySQL and MariaDB                      `name`   ?
	postgres  PostgreSQL                             "name"   $1
	cql       Cassandra / ScyllaDB (wide-column)     "name"   ?
	sqlite    SQLite                                 "name"   ?

Providers are looked up by name with Get, which also accepts the usual driver
names ("sqlserver", "pgx", "sqlite3", ...).

# Declared types

Column types are declared as free text (for example "decimal(10,2)") and parsed
by ParseType into a Kind. Literal formatting is driven by the declared Kind,
falling back to the runtime type of the value when the Kind is unknown.
*/
package dialect
