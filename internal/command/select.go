// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"strings"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Select builds SELECT commands over every column of a record type.
type Select struct {
	builder
	base string
}

// NewSelect precomputes the SELECT text for desc.
func NewSelect(desc *schema.Descriptor, provider dialect.Provider) *Select {
	b := newBuilder(desc, provider)
	return &Select{
		builder: b,
		base:    "SELECT " + columnList(provider, desc.Columns) + " FROM " + b.table,
	}
}

// Base returns the SELECT text without a WHERE clause.
func (s *Select) Base() string {
	return s.base
}

// Command returns a new command selecting the rows matching predicate.
// With an empty predicate it returns the base text and no parameters.
// Otherwise the predicate is appended as the WHERE clause and args are bound
// in order to the placeholders p1..pn, their wire types taken from their
// runtime types.
func (s *Select) Command(predicate string, args ...any) *driver.Command {
	if strings.TrimSpace(predicate) == "" {
		return driver.NewCommand(s.base)
	}
	cmd := driver.NewCommand(s.base + " WHERE " + predicate)
	for i, arg := range args {
		p := cmd.AddParameter(paramName(i+1), driver.WireTypeOf(arg))
		p.Value = arg
	}
	return cmd
}

// In returns a command selecting the rows whose columns match one of the
// tuples. A single column is matched with IN, several columns with an OR of
// ANDed equalities.
func (s *Select) In(columns []string, tuples [][]any) *driver.Command {
	if len(tuples) == 0 {
		return driver.NewCommand(s.base + " WHERE 1 = 0")
	}
	cols := make([]schema.Column, len(columns))
	for i, name := range columns {
		c, ok := s.desc.Column(name)
		if !ok {
			c = schema.Column{Name: name}
		}
		cols[i] = c
	}

	var text strings.Builder
	text.WriteString(s.base)
	text.WriteString(" WHERE ")
	cmd := driver.NewCommand("")
	bind := func(c schema.Column, v any) string {
		wt := driver.WireTypeOf(v)
		if c.GoType != nil {
			wt = driver.WireTypeFor(c.DeclaredType, c.GoType)
		}
		p := cmd.AddParameter(paramName(len(cmd.Parameters())+1), wt)
		p.Declared = c.DeclaredType
		p.Value = v
		return s.provider.Placeholder(len(cmd.Parameters()))
	}

	if len(cols) == 1 {
		text.WriteString(s.provider.EscapeIdentifier(cols[0].Name))
		text.WriteString(" IN (")
		for i, tuple := range tuples {
			if i > 0 {
				text.WriteString(", ")
			}
			text.WriteString(bind(cols[0], tuple[0]))
		}
		text.WriteString(")")
	} else {
		for i, tuple := range tuples {
			if i > 0 {
				text.WriteString(" OR ")
			}
			text.WriteString("(")
			for j, c := range cols {
				if j > 0 {
					text.WriteString(" AND ")
				}
				text.WriteString(s.provider.EscapeIdentifier(c.Name))
				text.WriteString(" = ")
				text.WriteString(bind(c, tuple[j]))
			}
			text.WriteString(")")
		}
	}
	cmd.Text = text.String()
	return cmd
}
