// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/internal/errs"
)

var descriptors = newCache[*Descriptor]()

// Describe returns the Descriptor of the struct type t, generating and
// caching it as required. Pointer types are dereferenced.
func Describe(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, errs.Schema("", "cannot describe nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	d, err := descriptors.get(t, generate)
	if err != nil {
		return nil, &errs.SchemaError{Type: t.String(), Err: err}
	}
	return d, nil
}

// DescribeOf returns the Descriptor of T.
func DescribeOf[T any]() (*Descriptor, error) {
	return Describe(reflect.TypeOf((*T)(nil)).Elem())
}

// generate produces the descriptor of a struct type.
func generate(t reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("can only describe struct types, got %s", t.Kind())
	}
	if t.Name() == "" {
		return nil, errors.New("cannot describe anonymous struct")
	}

	cols, err := columnsOf(t)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errors.Errorf(`no "db" tags found in struct %q`, t.Name())
	}

	d := &Descriptor{
		Type:    t,
		Table:   tableName(t),
		Schema:  schemaName(t),
		Columns: cols,
	}
	identities := 0
	for i, c := range cols {
		if c.PrimaryKey {
			d.Keys = append(d.Keys, i)
		}
		if c.Identity {
			identities++
		}
	}
	if identities > 1 {
		return nil, errors.Errorf("%d identity columns declared, at most one is allowed", identities)
	}

	d.Navigations, err = navigationsOf(t, cols)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// columnsOf returns the columns of t without looking at navigations.
func columnsOf(t reflect.Type) ([]Column, error) {
	var cols []Column
	seen := make(map[string]string)
	err := walkFields(t, nil, func(f reflect.StructField, index []int) error {
		tag, ok := f.Tag.Lookup("db")
		if !ok || tag == "-" {
			return nil
		}
		if !f.IsExported() {
			return errors.Errorf("field %q of struct %s not exported", f.Name, t.Name())
		}
		if _, ok := f.Tag.Lookup("nav"); ok {
			return errors.Errorf("field %s.%s has both db and nav tags", t.Name(), f.Name)
		}
		ct, err := parseTag(tag)
		if err != nil {
			return errors.Wrapf(err, "cannot parse tag for field %s.%s", t.Name(), f.Name)
		}
		if ct.dir != dirIn {
			return errors.Errorf("field %s.%s: out and inout are only valid on procedure parameters", t.Name(), f.Name)
		}
		key := strings.ToLower(ct.name)
		if prev, dup := seen[key]; dup {
			return errors.Errorf("column %q is declared by both %s and %s", ct.name, prev, f.Name)
		}
		seen[key] = f.Name

		cols = append(cols, Column{
			Property:     f.Name,
			Name:         ct.name,
			DeclaredType: dialect.ParseType(f.Tag.Get("sqltype")),
			Ordinal:      len(cols),
			PrimaryKey:   ct.primaryKey,
			Identity:     ct.identity,
			Nullable:     ct.nullable || f.Type.Kind() == reflect.Pointer,
			Index:        index,
			GoType:       f.Type,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// navigationsOf returns the navigations of t. The columns of each target
// type are computed directly so that mutually referencing types do not
// recurse.
func navigationsOf(t reflect.Type, cols []Column) ([]Navigation, error) {
	var navs []Navigation
	err := walkFields(t, nil, func(f reflect.StructField, index []int) error {
		tag, ok := f.Tag.Lookup("nav")
		if !ok {
			return nil
		}
		if !f.IsExported() {
			return errors.Errorf("field %q of struct %s not exported", f.Name, t.Name())
		}
		if f.Type.Kind() != reflect.Slice {
			return errors.Errorf("navigation %s.%s must be a slice, got %s", t.Name(), f.Name, f.Type)
		}
		target, pointer := f.Type.Elem(), false
		if target.Kind() == reflect.Pointer {
			target, pointer = target.Elem(), true
		}
		if target.Kind() != reflect.Struct {
			return errors.Errorf("navigation %s.%s must be a slice of structs, got %s", t.Name(), f.Name, f.Type)
		}
		local, foreign, err := parseNavTag(tag)
		if err != nil {
			return errors.Wrapf(err, "cannot parse tag for field %s.%s", t.Name(), f.Name)
		}
		targetCols, err := columnsOf(target)
		if err != nil {
			return errors.Wrapf(err, "navigation %s.%s", t.Name(), f.Name)
		}
		for i := range local {
			if !hasColumn(cols, local[i]) {
				return errors.Errorf("navigation %s.%s references unknown column %q", t.Name(), f.Name, local[i])
			}
			if !hasColumn(targetCols, foreign[i]) {
				return errors.Errorf("navigation %s.%s references unknown column %q on %s", t.Name(), f.Name, foreign[i], target.Name())
			}
		}
		navs = append(navs, Navigation{
			Property:       f.Name,
			Index:          index,
			Target:         target,
			Pointer:        pointer,
			LocalColumns:   local,
			ForeignColumns: foreign,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return navs, nil
}

func hasColumn(cols []Column, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// walkFields calls visit for every field of t. The fields of untagged
// embedded structs are visited as if they were declared on t.
func walkFields(t reflect.Type, parent []int, visit func(reflect.StructField, []int) error) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := make([]int, len(parent)+1)
		copy(index, parent)
		index[len(parent)] = i

		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("db") == "" && f.Tag.Get("nav") == "" {
			if err := walkFields(f.Type, index, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(f, index); err != nil {
			return err
		}
	}
	return nil
}
