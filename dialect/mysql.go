// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import "strings"

// mysql is the provider for MySQL and MariaDB.
type mysql struct{}

var mysqlLiterals = literalStyle{
	trueToken:  "TRUE",
	falseToken: "FALSE",
	quote:      func(s string) string { return "'" + escapeMySQLString(s) + "'" },
	binary:     func(b []byte) string { return "X'" + hexUpper(b) + "'" },
}

// escapeMySQLString escapes backslashes as well as quotes, since MySQL
// treats backslash as an escape character inside string literals.
func escapeMySQLString(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

func (mysql) Name() string { return MySQL }

func (mysql) EscapeIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysql) FormatLiteral(v any, declared Type) string {
	return mysqlLiterals.formatLiteral(v, declared)
}

func (mysql) Placeholder(int) string { return "?" }

func (mysql) StatementSeparator() string { return ";" }

func (mysql) Features() Features {
	return Features{
		Identity:   IdentityLastInsertID,
		Procedures: ProceduresCall,
	}
}
