// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"
)

type tableNamer interface{ TableName() string }

type schemaNamer interface{ SchemaName() string }

type procedureNamer interface{ ProcedureName() string }

// tableName returns the result of TableName when t implements it, and the
// plural snake case form of the type name otherwise.
func tableName(t reflect.Type) string {
	if n, ok := sample(t).(tableNamer); ok {
		if name := n.TableName(); name != "" {
			return name
		}
	}
	return inflect.Pluralize(inflect.Underscore(t.Name()))
}

func schemaName(t reflect.Type) string {
	if n, ok := sample(t).(schemaNamer); ok {
		return n.SchemaName()
	}
	return ""
}

// procedureName returns the result of ProcedureName when t implements it.
// Otherwise it is the snake case type name without a Params suffix.
func procedureName(t reflect.Type) string {
	if n, ok := sample(t).(procedureNamer); ok {
		if name := n.ProcedureName(); name != "" {
			return name
		}
	}
	name := strings.TrimSuffix(t.Name(), "Parameters")
	name = strings.TrimSuffix(name, "Params")
	return inflect.Underscore(name)
}

// sample returns a pointer to a zero value of t, which carries both value
// and pointer receiver methods.
func sample(t reflect.Type) any {
	return reflect.New(t).Interface()
}
