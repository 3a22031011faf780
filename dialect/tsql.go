// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import (
	"strconv"
	"strings"
)

// tsql is the provider for SQL Server style engines.
type tsql struct{}

var tsqlLiterals = literalStyle{
	trueToken:  "1",
	falseToken: "0",
	// N'' keeps non-ASCII text intact in nvarchar columns.
	quote:  func(s string) string { return "N" + quoteDoubling(s) },
	binary: func(b []byte) string { return "0x" + hexUpper(b) },
}

func (tsql) Name() string { return TSQL }

func (tsql) EscapeIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (tsql) FormatLiteral(v any, declared Type) string {
	return tsqlLiterals.formatLiteral(v, declared)
}

func (tsql) Placeholder(ordinal int) string { return "@p" + strconv.Itoa(ordinal) }

func (tsql) StatementSeparator() string { return ";" }

func (tsql) Features() Features {
	return Features{
		NamedParameters: true,
		Identity:        IdentityOutput,
		Procedures:      ProceduresExec,
	}
}
