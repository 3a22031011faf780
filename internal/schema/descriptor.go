// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"reflect"
	"strings"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/internal/errs"
)

// Descriptor is the schema of a record type.
type Descriptor struct {
	Type   reflect.Type
	Table  string
	Schema string
	// Columns are in field declaration order.
	Columns []Column
	// Keys holds the positions in Columns of the primary key columns.
	Keys        []int
	Navigations []Navigation
}

// Column describes a single mapped field.
type Column struct {
	// Property is the Go field name.
	Property     string
	Name         string
	DeclaredType dialect.Type
	Ordinal      int
	PrimaryKey   bool
	Identity     bool
	Nullable     bool
	// Index is the field index sequence for reflect.Value.FieldByIndex.
	Index  []int
	GoType reflect.Type
}

// Navigation describes a one-to-many relation materialised as a slice
// field on the owner.
type Navigation struct {
	Property string
	Index    []int
	// Target is the struct type of the related records.
	Target reflect.Type
	// Pointer is true for []*Target fields.
	Pointer bool
	// LocalColumns are matched pairwise against ForeignColumns on the
	// target.
	LocalColumns   []string
	ForeignColumns []string
}

// KeyColumns returns the primary key columns in declaration order.
func (d *Descriptor) KeyColumns() []Column {
	cols := make([]Column, len(d.Keys))
	for i, k := range d.Keys {
		cols[i] = d.Columns[k]
	}
	return cols
}

// RequireKeys returns a SchemaError if the type declares no primary key.
func (d *Descriptor) RequireKeys() error {
	if len(d.Keys) == 0 {
		return errs.Schema(d.Type.String(), "no primary key declared")
	}
	return nil
}

// Identity returns the identity column, if there is one.
func (d *Descriptor) Identity() (Column, bool) {
	for _, c := range d.Columns {
		if c.Identity {
			return c, true
		}
	}
	return Column{}, false
}

// Column finds a column by name, ignoring case.
func (d *Descriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Navigation finds a navigation by its property name.
func (d *Descriptor) Navigation(property string) (Navigation, bool) {
	for _, n := range d.Navigations {
		if n.Property == property {
			return n, true
		}
	}
	return Navigation{}, false
}

// Value returns the field of record holding column c. record must be a
// struct value of the described type.
func (c Column) Value(record reflect.Value) reflect.Value {
	return record.FieldByIndex(c.Index)
}
