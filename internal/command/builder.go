// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/schema"
)

// builder holds what every command family shares.
type builder struct {
	desc     *schema.Descriptor
	provider dialect.Provider
	table    string
}

func newBuilder(desc *schema.Descriptor, provider dialect.Provider) builder {
	return builder{
		desc:     desc,
		provider: provider,
		table:    qualify(provider, desc.Schema, desc.Table),
	}
}

// qualify returns the escaped, optionally schema qualified, object name.
func qualify(p dialect.Provider, schemaName, name string) string {
	if schemaName == "" {
		return p.EscapeIdentifier(name)
	}
	return p.EscapeIdentifier(schemaName) + "." + p.EscapeIdentifier(name)
}

// columnList returns the escaped column names joined by commas.
func columnList(p dialect.Provider, cols []schema.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = p.EscapeIdentifier(c.Name)
	}
	return strings.Join(names, ", ")
}

// placeholders returns the placeholders for ordinals first..first+n-1
// joined by commas.
func placeholders(p dialect.Provider, first, n int) string {
	phs := make([]string, n)
	for i := range phs {
		phs[i] = p.Placeholder(first + i)
	}
	return strings.Join(phs, ", ")
}

// assignments renders "col = placeholder" for each column, numbering from
// first.
func assignments(p dialect.Provider, cols []schema.Column, first int, sep string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = p.EscapeIdentifier(c.Name) + " = " + p.Placeholder(first+i)
	}
	return strings.Join(parts, sep)
}

// paramName is the name of the parameter with the given 1-based ordinal.
func paramName(ordinal int) string {
	return "p" + strconv.Itoa(ordinal)
}

// bindColumn adds a parameter carrying the value of column c in record.
func bindColumn(cmd *driver.Command, c schema.Column, record reflect.Value) *driver.Parameter {
	p := cmd.AddParameter(paramName(len(cmd.Parameters())+1), driver.WireTypeFor(c.DeclaredType, c.GoType))
	p.Declared = c.DeclaredType
	p.Value = c.Value(record).Interface()
	return p
}

// recordValue returns the struct value held by record, which must be of
// the described type or a pointer to it.
func (b *builder) recordValue(record any) (reflect.Value, error) {
	if record == nil {
		return reflect.Value{}, errs.Usage("need record of type %s, got nil", b.desc.Type)
	}
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errs.Usage("need record of type %s, got nil pointer", b.desc.Type)
		}
		v = v.Elem()
	}
	if v.Type() != b.desc.Type {
		return reflect.Value{}, errs.Usage("need record of type %s, got %s", b.desc.Type, v.Type())
	}
	return v, nil
}

// withoutFlags returns the columns for which skip is false.
func withoutFlags(cols []schema.Column, skip func(schema.Column) bool) []schema.Column {
	var kept []schema.Column
	for _, c := range cols {
		if !skip(c) {
			kept = append(kept, c)
		}
	}
	return kept
}
