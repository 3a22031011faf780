// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package errs holds the error taxonomy shared by every layer of sqlrecord.
// The root package re-exports the types so callers can use errors.As on them.
package errs

import (
	"errors"
	"fmt"
)

// ErrClosed is wrapped by a UsageError when a disposed Query or Iterator is
// used.
var ErrClosed = errors.New("query is closed")

// SchemaError reports missing or invalid descriptor information. It is only
// ever returned while building descriptors, builders or mappers.
type SchemaError struct {
	// Type is the name of the record type being described.
	Type string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Type == "" {
		return "schema: " + e.Err.Error()
	}
	return fmt.Sprintf("schema of %s: %s", e.Type, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ConfigurationError reports a dependency that could not be resolved, such
// as a result mapper or a dialect capability.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Err.Error() }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExecutionError carries a failure reported by the backend engine. The
// message of the original error is returned unchanged.
type ExecutionError struct {
	// Op is the operation that failed, e.g. "query" or "insert".
	Op  string
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// UsageError reports an API misuse, for example running a disposed query.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Schema returns a SchemaError for the named type.
func Schema(typeName string, format string, args ...any) error {
	return &SchemaError{Type: typeName, Err: fmt.Errorf(format, args...)}
}

// Configuration returns a ConfigurationError.
func Configuration(format string, args ...any) error {
	return &ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// Usage returns a UsageError.
func Usage(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// Execution wraps err in an ExecutionError unless it already carries one of
// the taxonomy types.
func Execution(op string, err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return err
	}
	return &ExecutionError{Op: op, Err: err}
}

func classified(err error) bool {
	var (
		se *SchemaError
		ce *ConfigurationError
		ee *ExecutionError
		ue *UsageError
	)
	return errors.As(err, &se) || errors.As(err, &ce) || errors.As(err, &ee) || errors.As(err, &ue)
}
