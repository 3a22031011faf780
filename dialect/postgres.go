// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import (
	"strconv"

	"github.com/lib/pq"
)

// postgres is the provider for PostgreSQL.
type postgres struct{}

var postgresLiterals = literalStyle{
	trueToken:  "TRUE",
	falseToken: "FALSE",
	quote:      pq.QuoteLiteral,
	binary:     func(b []byte) string { return `'\x` + hexUpper(b) + `'::bytea` },
}

func (postgres) Name() string { return Postgres }

func (postgres) EscapeIdentifier(name string) string { return pq.QuoteIdentifier(name) }

func (postgres) FormatLiteral(v any, declared Type) string {
	return postgresLiterals.formatLiteral(v, declared)
}

func (postgres) Placeholder(ordinal int) string { return "$" + strconv.Itoa(ordinal) }

func (postgres) StatementSeparator() string { return ";" }

func (postgres) Features() Features {
	return Features{
		Identity:   IdentityReturning,
		Procedures: ProceduresCall,
	}
}
