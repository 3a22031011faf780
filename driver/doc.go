// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package driver defines the minimal capability set sqlrecord needs from a
database connection: a Conn that executes a Command and either yields a
Cursor over one or more result sets or a Result.

Connectors built on database/sql can hand *sql.Rows and sql.Result back
directly since both satisfy Cursor and Result.
*/
package driver
