// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import "strings"

// cql is the provider for wide-column stores speaking CQL.
type cql struct{}

var cqlLiterals = literalStyle{
	trueToken:  "true",
	falseToken: "false",
	quote:      quoteDoubling,
	binary:     func(b []byte) string { return "0x" + hexUpper(b) },
	bareUUID:   true,
}

func (cql) Name() string { return CQL }

func (cql) EscapeIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (cql) FormatLiteral(v any, declared Type) string {
	return cqlLiterals.formatLiteral(v, declared)
}

func (cql) Placeholder(int) string { return "?" }

func (cql) StatementSeparator() string { return ";" }

// CQL has no server generated keys and no stored procedures.
func (cql) Features() Features {
	return Features{
		Identity:   IdentityGenerated,
		Procedures: ProceduresUnsupported,
	}
}
