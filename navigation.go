// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/mapper"
	"github.com/canonical/sqlrecord/internal/schema"
)

// populate fills the navigation fields of the owners held in the slice
// records. Each navigation is fetched with a single keyed query covering
// every owner, and the children are grouped onto their owners in memory.
// Every owner ends up with a non-nil slice.
func populate(ctx context.Context, db *DB, desc *schema.Descriptor, records reflect.Value, navs []schema.Navigation) error {
	owners := make([]reflect.Value, records.Len())
	for i := range owners {
		owner := records.Index(i)
		if owner.Kind() == reflect.Pointer {
			owner = owner.Elem()
		}
		owners[i] = owner
	}
	if len(owners) == 0 {
		return nil
	}

	for _, nav := range navs {
		if err := populateOne(ctx, db, desc, owners, nav); err != nil {
			return err
		}
	}
	return nil
}

func populateOne(ctx context.Context, db *DB, desc *schema.Descriptor, owners []reflect.Value, nav schema.Navigation) error {
	sel, target, err := builders.selectFor(nav.Target, db.Dialect())
	if err != nil {
		return err
	}
	local, err := columns(desc, nav.LocalColumns)
	if err != nil {
		return err
	}
	foreign, err := columns(target, nav.ForeignColumns)
	if err != nil {
		return err
	}

	// Collect the distinct owner keys. Owners with a NULL key have no
	// children.
	ownerKeys := make([]string, len(owners))
	seen := make(map[string]bool)
	var tuples [][]any
	for i, owner := range owners {
		tuple, ok := keyValues(owner, local)
		if !ok {
			continue
		}
		key := tupleKey(tuple)
		ownerKeys[i] = key
		if !seen[key] {
			seen[key] = true
			tuples = append(tuples, tuple)
		}
	}

	fieldType := owners[0].FieldByIndex(nav.Index).Type()
	groups := make(map[string]reflect.Value)
	if len(tuples) > 0 {
		cur, err := db.query(ctx, "query", sel.In(nav.ForeignColumns, tuples))
		if err != nil {
			return err
		}
		children := reflect.New(fieldType).Elem()
		err = mapper.New(target).Append(cur, children)
		if cerr := cur.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errs.Execution("query", err)
		}

		for i := 0; i < children.Len(); i++ {
			child := children.Index(i)
			record := child
			if nav.Pointer {
				record = child.Elem()
			}
			tuple, ok := keyValues(record, foreign)
			if !ok {
				continue
			}
			key := tupleKey(tuple)
			group, ok := groups[key]
			if !ok {
				group = reflect.MakeSlice(fieldType, 0, 1)
			}
			groups[key] = reflect.Append(group, child)
		}
	}

	for i, owner := range owners {
		group, ok := groups[ownerKeys[i]]
		if !ok || ownerKeys[i] == "" {
			group = reflect.MakeSlice(fieldType, 0, 0)
		}
		owner.FieldByIndex(nav.Index).Set(group)
	}
	return nil
}

func columns(desc *schema.Descriptor, names []string) ([]schema.Column, error) {
	cols := make([]schema.Column, len(names))
	for i, name := range names {
		c, ok := desc.Column(name)
		if !ok {
			return nil, errs.Schema(desc.Type.String(), "no column named %q", name)
		}
		cols[i] = c
	}
	return cols, nil
}

// keyValues returns the values of cols in record. It returns false when any
// of them is NULL.
func keyValues(record reflect.Value, cols []schema.Column) ([]any, bool) {
	values := make([]any, len(cols))
	for i, c := range cols {
		v := c.Value(record)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		value := v.Interface()
		if valuer, ok := value.(driver.Valuer); ok {
			dv, err := valuer.Value()
			if err != nil || dv == nil {
				return nil, false
			}
			value = dv
		}
		values[i] = value
	}
	return values, true
}

// tupleKey renders key values so that equal keys of different integer
// widths, and times at the same instant in different locations, compare
// equal. Strings are compared exactly, so children whose key differs from
// the owner's only under a case-insensitive collation are not matched.
func tupleKey(tuple []any) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		if t, ok := v.(time.Time); ok {
			parts[i] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\x1f")
}
