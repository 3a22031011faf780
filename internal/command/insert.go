// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/schema"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

// Insert builds INSERT commands for a record type.
type Insert struct {
	builder
	text     string
	columns  []schema.Column
	identity schema.Column
	hasID    bool
	style    dialect.IdentityStyle
}

// NewInsert precomputes the INSERT text for desc. Identity columns are left
// for the engine to fill in, except for dialects where the identity is a
// client generated UUID.
func NewInsert(desc *schema.Descriptor, provider dialect.Provider) (*Insert, error) {
	ins := &Insert{
		builder: newBuilder(desc, provider),
		style:   provider.Features().Identity,
	}
	ins.identity, ins.hasID = desc.Identity()

	generated := ins.hasID && ins.style == dialect.IdentityGenerated
	if generated {
		t := ins.identity.GoType
		if t != uuidType && t.Kind() != reflect.String {
			return nil, errs.Schema(desc.Type.String(),
				"identity column %q must be a uuid.UUID or string for dialect %s, got %s", ins.identity.Name, provider.Name(), t)
		}
	}
	ins.columns = withoutFlags(desc.Columns, func(c schema.Column) bool {
		return c.Identity && !generated
	})

	var output, returning string
	if ins.hasID {
		col := provider.EscapeIdentifier(ins.identity.Name)
		switch ins.style {
		case dialect.IdentityOutput:
			output = " OUTPUT INSERTED." + col
		case dialect.IdentityReturning:
			returning = " RETURNING " + col
		}
	}

	text := "INSERT INTO " + ins.table
	switch {
	case len(ins.columns) > 0:
		text += " (" + columnList(provider, ins.columns) + ")" + output +
			" VALUES (" + placeholders(provider, 1, len(ins.columns)) + ")"
	case provider.Name() == dialect.MySQL:
		text += " () VALUES ()"
	default:
		text += output + " DEFAULT VALUES"
	}
	ins.text = text + returning
	return ins, nil
}

// Identity returns the identity column, if the type has one.
func (ins *Insert) Identity() (schema.Column, bool) {
	return ins.identity, ins.hasID
}

// Returns reports whether the command yields a row holding the generated
// identity. Otherwise the identity, if any, is read from the driver result
// or was generated before the command was built.
func (ins *Insert) Returns() bool {
	return ins.hasID && (ins.style == dialect.IdentityOutput || ins.style == dialect.IdentityReturning)
}

// Command returns a new command inserting record. When the identity is
// generated on the client a new UUID is written onto record, which must
// then be a pointer, if the identity field is still zero.
func (ins *Insert) Command(record any) (*driver.Command, error) {
	v, err := ins.recordValue(record)
	if err != nil {
		return nil, err
	}
	if ins.hasID && ins.style == dialect.IdentityGenerated {
		field := ins.identity.Value(v)
		if field.IsZero() {
			if !field.CanSet() {
				return nil, errs.Usage("need pointer to %s to generate its identity", ins.desc.Type)
			}
			id := uuid.New()
			if field.Type() == uuidType {
				field.Set(reflect.ValueOf(id))
			} else {
				field.SetString(id.String())
			}
		}
	}

	cmd := driver.NewCommand(ins.text)
	for _, c := range ins.columns {
		bindColumn(cmd, c, v)
	}
	return cmd, nil
}
