// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package driver

import (
	"github.com/canonical/sqlrecord/dialect"
)

// Direction is the direction of a command parameter.
type Direction int

const (
	In Direction = iota
	Out
	InOut
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case InOut:
		return "inout"
	}
	return "in"
}

// Parameter is a single bound value of a Command.
type Parameter struct {
	// Name is the parameter name without any dialect prefix, e.g. "p1".
	Name string
	Type WireType
	// Declared is the declared column type, when the parameter is bound
	// to a column. It is Unknown for ad-hoc predicate arguments.
	Declared  dialect.Type
	Direction Direction
	Value     any
}

// Command is command text together with its ordered parameters. The
// number and order of the parameters match the placeholders in Text.
type Command struct {
	Text   string
	params []*Parameter
}

// NewCommand returns a command with the given text and no parameters.
func NewCommand(text string) *Command {
	return &Command{Text: text}
}

// AddParameter appends a parameter and returns it so the caller can set
// its value and direction.
func (c *Command) AddParameter(name string, wireType WireType) *Parameter {
	p := &Parameter{Name: name, Type: wireType}
	c.params = append(c.params, p)
	return p
}

// ClearParameters removes every parameter from the command.
func (c *Command) ClearParameters() {
	c.params = nil
}

// Parameters returns the parameters in placeholder order.
func (c *Command) Parameters() []*Parameter {
	return c.params
}

// Args returns the parameter values in placeholder order.
func (c *Command) Args() []any {
	args := make([]any, len(c.params))
	for i, p := range c.params {
		args[i] = p.Value
	}
	return args
}
