// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import "strings"

// sqlite is the provider for SQLite.
type sqlite struct{}

var sqliteLiterals = literalStyle{
	trueToken:  "1",
	falseToken: "0",
	quote:      quoteDoubling,
	binary:     func(b []byte) string { return "X'" + hexUpper(b) + "'" },
}

func (sqlite) Name() string { return SQLite }

func (sqlite) EscapeIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqlite) FormatLiteral(v any, declared Type) string {
	return sqliteLiterals.formatLiteral(v, declared)
}

func (sqlite) Placeholder(int) string { return "?" }

func (sqlite) StatementSeparator() string { return ";" }

func (sqlite) Features() Features {
	return Features{Identity: IdentityLastInsertID}
}
