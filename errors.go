// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"database/sql"

	"github.com/canonical/sqlrecord/internal/errs"
)

// SchemaError reports missing or invalid schema information. It is only
// returned while preparing queries, builders or mappers.
type SchemaError = errs.SchemaError

// ConfigurationError reports a dependency that could not be resolved, such
// as a result mapper or a feature the dialect lacks.
type ConfigurationError = errs.ConfigurationError

// ExecutionError carries a failure reported by the database. Its message is
// the one of the original error, which is available through errors.As.
type ExecutionError = errs.ExecutionError

// UsageError reports an API misuse.
type UsageError = errs.UsageError

var (
	// ErrClosed is wrapped by the UsageError returned when a closed Query or
	// Iterator is used.
	ErrClosed = errs.ErrClosed
	ErrNoRows = sql.ErrNoRows
)

func closedError() error {
	return &errs.UsageError{Err: errs.ErrClosed}
}
