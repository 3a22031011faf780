// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"reflect"
	"strings"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Procedure builds stored procedure calls.
type Procedure struct {
	proc *schema.Procedure
	text string
}

// NewProcedure precomputes the call text for proc. It returns a
// ConfigurationError when the dialect cannot call procedures.
func NewProcedure(proc *schema.Procedure, provider dialect.Provider) (*Procedure, error) {
	name := qualify(provider, proc.Schema, proc.Name)
	var text string
	switch provider.Features().Procedures {
	case dialect.ProceduresExec:
		args := make([]string, len(proc.Params))
		for i, p := range proc.Params {
			args[i] = "@" + p.Name + " = " + provider.Placeholder(i+1)
			if p.Direction != driver.In {
				args[i] += " OUTPUT"
			}
		}
		text = "EXEC " + name
		if len(args) > 0 {
			text += " " + strings.Join(args, ", ")
		}
	case dialect.ProceduresCall:
		text = "CALL " + name + "(" + placeholders(provider, 1, len(proc.Params)) + ")"
	default:
		return nil, errs.Configuration("dialect %s does not support stored procedures", provider.Name())
	}
	return &Procedure{proc: proc, text: text}, nil
}

// Text returns the call text.
func (b *Procedure) Text() string {
	return b.text
}

// Command returns a new command calling the procedure with the values held
// by params, a struct of the described type or a pointer to one.
func (b *Procedure) Command(params any) (*driver.Command, error) {
	if params == nil {
		return nil, errs.Usage("need parameters of type %s, got nil", b.proc.Type)
	}
	v := reflect.ValueOf(params)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, errs.Usage("need parameters of type %s, got nil pointer", b.proc.Type)
		}
		v = v.Elem()
	}
	if v.Type() != b.proc.Type {
		return nil, errs.Usage("need parameters of type %s, got %s", b.proc.Type, v.Type())
	}

	cmd := driver.NewCommand(b.text)
	for _, param := range b.proc.Params {
		p := cmd.AddParameter(paramName(len(cmd.Parameters())+1), driver.WireTypeFor(param.DeclaredType, param.GoType))
		p.Declared = param.DeclaredType
		p.Direction = param.Direction
		p.Value = v.FieldByIndex(param.Index).Interface()
	}
	return cmd, nil
}
