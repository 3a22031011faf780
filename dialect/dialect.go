// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import (
	"sort"
	"strings"
	"sync"

	"github.com/canonical/sqlrecord/internal/errs"
)

// Dialect names.
const (
	TSQL     = "tsql"
	MySQL    = "mysql"
	Postgres = "postgres"
	CQL      = "cql"
	SQLite   = "sqlite"
)

// Provider renders the dialect specific parts of a command.
type Provider interface {
	// Name returns the canonical dialect name.
	Name() string
	// EscapeIdentifier quotes a single identifier (table, column, schema).
	EscapeIdentifier(name string) string
	// FormatLiteral renders v as a literal for a column of the declared type.
	FormatLiteral(v any, declared Type) string
	// Placeholder returns the placeholder for the 1-based parameter ordinal.
	Placeholder(ordinal int) string
	// StatementSeparator returns the token terminating a statement.
	StatementSeparator() string
	// Features describes how the engine reports generated keys and calls
	// stored procedures.
	Features() Features
}

// IdentityStyle is the way an engine hands back generated key values.
type IdentityStyle int

const (
	// IdentityLastInsertID reads the key from the driver result.
	IdentityLastInsertID IdentityStyle = iota
	// IdentityOutput appends OUTPUT INSERTED.<col> to the INSERT.
	IdentityOutput
	// IdentityReturning appends RETURNING <col> to the INSERT.
	IdentityReturning
	// IdentityGenerated generates a UUID on the client before inserting.
	IdentityGenerated
)

// ProcedureStyle is the syntax used to invoke a stored procedure.
type ProcedureStyle int

const (
	ProceduresUnsupported ProcedureStyle = iota
	// ProceduresExec renders EXEC name @arg = @p1, ...
	ProceduresExec
	// ProceduresCall renders CALL name(?, ...)
	ProceduresCall
)

// Features lists the dialect capabilities command builders depend on.
type Features struct {
	// NamedParameters is true when placeholders are bound by name rather
	// than by position.
	NamedParameters bool
	Identity        IdentityStyle
	Procedures      ProcedureStyle
}

var (
	registryMutex sync.RWMutex
	registry      = map[string]Provider{}
	aliases       = map[string]string{
		"mssql":      TSQL,
		"sqlserver":  TSQL,
		"azuresql":   TSQL,
		"mariadb":    MySQL,
		"postgresql": Postgres,
		"pgx":        Postgres,
		"cassandra":  CQL,
		"scylla":     CQL,
		"sqlite3":    SQLite,
	}
)

func init() {
	for _, p := range []Provider{tsql{}, mysql{}, postgres{}, cql{}, sqlite{}} {
		Register(p)
	}
}

// Register makes a provider available to Get under its name. A provider
// registered with an existing name replaces the previous one.
func Register(p Provider) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry[strings.ToLower(p.Name())] = p
}

// Get returns the provider registered under name or one of its aliases.
func Get(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	registryMutex.RLock()
	p, ok := registry[key]
	registryMutex.RUnlock()
	if !ok {
		return nil, errs.Configuration("unknown dialect %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// MustGet is the same as Get except that it panics on error.
func MustGet(name string) Provider {
	p, err := Get(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Names returns the sorted names of the registered providers.
func Names() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
