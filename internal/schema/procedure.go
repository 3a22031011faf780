// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
)

// Procedure is the parameter shape of a stored procedure.
type Procedure struct {
	Type   reflect.Type
	Name   string
	Schema string
	Params []Param
}

// Param is a single procedure parameter.
type Param struct {
	Property     string
	Name         string
	DeclaredType dialect.Type
	Direction    driver.Direction
	Index        []int
	GoType       reflect.Type
}

// HasOutput reports whether any parameter is written back after the call.
func (p *Procedure) HasOutput() bool {
	for _, param := range p.Params {
		if param.Direction != driver.In {
			return true
		}
	}
	return false
}

var procedures = newCache[*Procedure]()

// DescribeProcedure returns the parameter shape of the struct type t. Fields
// are tagged like columns, with the "out" and "inout" flags marking
// direction.
func DescribeProcedure(t reflect.Type) (*Procedure, error) {
	if t == nil {
		return nil, errs.Schema("", "cannot describe nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	p, err := procedures.get(t, generateProcedure)
	if err != nil {
		return nil, &errs.SchemaError{Type: t.String(), Err: err}
	}
	return p, nil
}

func generateProcedure(t reflect.Type) (*Procedure, error) {
	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("can only describe struct types, got %s", t.Kind())
	}
	if t.Name() == "" {
		return nil, errors.New("cannot describe anonymous struct")
	}

	p := &Procedure{
		Type:   t,
		Name:   procedureName(t),
		Schema: schemaName(t),
	}
	seen := make(map[string]bool)
	err := walkFields(t, nil, func(f reflect.StructField, index []int) error {
		tag, ok := f.Tag.Lookup("db")
		if !ok || tag == "-" {
			return nil
		}
		if !f.IsExported() {
			return errors.Errorf("field %q of struct %s not exported", f.Name, t.Name())
		}
		ct, err := parseTag(tag)
		if err != nil {
			return errors.Wrapf(err, "cannot parse tag for field %s.%s", t.Name(), f.Name)
		}
		if ct.primaryKey || ct.identity {
			return errors.Errorf("field %s.%s: pk and identity are not valid on procedure parameters", t.Name(), f.Name)
		}
		key := strings.ToLower(ct.name)
		if seen[key] {
			return errors.Errorf("parameter %q declared more than once", ct.name)
		}
		seen[key] = true

		dir := driver.In
		switch ct.dir {
		case dirOut:
			dir = driver.Out
		case dirInOut:
			dir = driver.InOut
		}
		p.Params = append(p.Params, Param{
			Property:     f.Name,
			Name:         ct.name,
			DeclaredType: dialect.ParseType(f.Tag.Get("sqltype")),
			Direction:    dir,
			Index:        index,
			GoType:       f.Type,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
