// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package mapper converts the rows of a cursor into records described by a
// schema descriptor.
package mapper

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Generic maps rows onto the columns of a descriptor. Navigation fields are
// never touched.
type Generic struct {
	desc *schema.Descriptor
}

// New returns a mapper for records described by desc.
func New(desc *schema.Descriptor) *Generic {
	return &Generic{desc: desc}
}

// Descriptor returns the descriptor the mapper was built from.
func (g *Generic) Descriptor() *schema.Descriptor {
	return g.desc
}

// Map reads the remaining rows of the current result set into a new,
// non-nil slice of records.
func (g *Generic) Map(cur driver.Cursor) (any, error) {
	slice := reflect.New(reflect.SliceOf(g.desc.Type)).Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, 0))
	if err := g.Append(cur, slice); err != nil {
		return nil, err
	}
	return slice.Interface(), nil
}

// Append reads the remaining rows of the current result set and appends a
// record for each onto slice, which must be a settable slice of the
// described type or of pointers to it.
func (g *Generic) Append(cur driver.Cursor, slice reflect.Value) error {
	if slice.Kind() != reflect.Slice || !slice.CanSet() {
		return errs.Usage("need settable slice, got %s", slice.Type())
	}
	elem := slice.Type().Elem()
	pointers := elem.Kind() == reflect.Pointer
	if elem != g.desc.Type && !(pointers && elem.Elem() == g.desc.Type) {
		return errs.Usage("cannot map %s into slice of %s", g.desc.Type, elem)
	}

	r, err := g.Reader(cur)
	if err != nil {
		return err
	}
	for cur.Next() {
		record, err := r.Read()
		if err != nil {
			return err
		}
		if pointers {
			slice.Set(reflect.Append(slice, record))
		} else {
			slice.Set(reflect.Append(slice, record.Elem()))
		}
	}
	return cur.Err()
}

// RowReader maps the rows of one result set. Cursor columns are matched to
// descriptor columns ignoring case and quoting. Unmatched columns are
// skipped and unmatched fields keep their zero value.
type RowReader struct {
	desc  *schema.Descriptor
	cur   driver.Cursor
	names []string
	plan  []*schema.Column
	cells []any
	dests []any
}

// Reader matches the columns of the current result set of cur.
func (g *Generic) Reader(cur driver.Cursor) (*RowReader, error) {
	names, err := cur.Columns()
	if err != nil {
		return nil, err
	}
	r := &RowReader{
		desc:  g.desc,
		cur:   cur,
		names: names,
		plan:  make([]*schema.Column, len(names)),
		cells: make([]any, len(names)),
		dests: make([]any, len(names)),
	}
	for i, name := range names {
		if c, ok := g.desc.Column(normalizeColumn(name)); ok {
			r.plan[i] = &c
		}
		r.dests[i] = &r.cells[i]
	}
	return r, nil
}

// Read scans the current row and returns a pointer to a new record.
func (r *RowReader) Read() (reflect.Value, error) {
	if err := r.cur.Scan(r.dests...); err != nil {
		return reflect.Value{}, err
	}
	record := reflect.New(r.desc.Type)
	for i, c := range r.plan {
		if c == nil {
			continue
		}
		if err := Assign(c.Value(record.Elem()), r.cells[i]); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot map column %q onto %s.%s: %w", r.names[i], r.desc.Type.Name(), c.Property, err)
		}
	}
	return record, nil
}

// Rows reads the remaining rows of the current result set into a non-nil
// slice of T, where T is the described type or a pointer to it.
func Rows[T any](cur driver.Cursor, desc *schema.Descriptor) ([]T, error) {
	out := []T{}
	if err := New(desc).Append(cur, reflect.ValueOf(&out).Elem()); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeColumn strips quoting and any table qualifier from a cursor
// column name.
func normalizeColumn(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.Trim(name, "\"`[]")
}
