// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"reflect"

	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/mapper"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Mapper maps the current result set of a cursor to a slice of records.
// Map must consume rows only from the current result set and must not
// advance to the next one.
type Mapper interface {
	Map(cur driver.Cursor) (any, error)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc[T any] func(cur driver.Cursor) ([]T, error)

// Map calls f(cur).
func (f MapperFunc[T]) Map(cur driver.Cursor) (any, error) {
	return f(cur)
}

// sliceMapper is the default mapper, reading a result set into a slice of
// the exact type of a destination.
type sliceMapper struct {
	generic   *mapper.Generic
	sliceType reflect.Type
}

// defaultMapper builds a generic mapper for slices of sliceType. It returns
// a ConfigurationError when the element type cannot be described.
func defaultMapper(sliceType reflect.Type) (*sliceMapper, error) {
	desc, err := schema.Describe(sliceType.Elem())
	if err != nil {
		return nil, &errs.ConfigurationError{Err: err}
	}
	return &sliceMapper{generic: mapper.New(desc), sliceType: sliceType}, nil
}

func (m *sliceMapper) Map(cur driver.Cursor) (any, error) {
	slice := reflect.New(m.sliceType).Elem()
	slice.Set(reflect.MakeSlice(m.sliceType, 0, 0))
	if err := m.generic.Append(cur, slice); err != nil {
		return nil, err
	}
	return slice.Interface(), nil
}
