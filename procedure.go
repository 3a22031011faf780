// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"context"
	"fmt"
	"reflect"

	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/mapper"
	"github.com/canonical/sqlrecord/internal/schema"
)

// MaxResultSets is the largest number of result sets [Call.GetAll] reads.
const MaxResultSets = 8

// Call is a stored procedure invocation. It is run by [Call.GetAll] or
// [Call.Run].
type Call struct {
	db      *DB
	ctx     context.Context
	params  any
	mappers map[int]Mapper
	err     error
}

// CallOption configures a Call.
type CallOption func(*Call)

// WithMapper sets the mapper for the result set at index i, counting from
// zero. Result sets without a mapper use a generic mapper built from the
// destination's element type.
func WithMapper(i int, m Mapper) CallOption {
	return func(c *Call) {
		if i < 0 || i >= MaxResultSets {
			c.err = errs.Usage("mapper index %d out of range [0, %d)", i, MaxResultSets)
			return
		}
		c.mappers[i] = m
	}
}

// Call builds a call of the stored procedure whose parameters are described
// by params, a tagged struct. Parameters tagged "out" or "inout" are
// written back onto params after the call, so params must be a pointer when
// there are any.
func (db *DB) Call(ctx context.Context, params any, opts ...CallOption) *Call {
	c := &Call{db: db, ctx: orBackground(ctx), params: params, mappers: map[int]Mapper{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run calls the procedure and discards any result sets.
func (c *Call) Run() error {
	if c.err != nil {
		return c.err
	}
	cmd, proc, err := c.command()
	if err != nil {
		return err
	}
	if _, err := c.db.exec(c.ctx, "call", cmd); err != nil {
		return err
	}
	return c.writeBack(cmd, proc)
}

// GetAll calls the procedure and reads result set i into the slice
// pointed to by dsts[i]. Between one and MaxResultSets destinations may be
// given. The cursor is advanced exactly len(dsts)-1 times, and it is an
// error for the procedure to return fewer result sets. On error no
// destination is modified.
func (c *Call) GetAll(dsts ...any) error {
	if c.err != nil {
		return c.err
	}
	if len(dsts) < 1 || len(dsts) > MaxResultSets {
		return errs.Usage("need between 1 and %d destinations, got %d", MaxResultSets, len(dsts))
	}
	for i := range c.mappers {
		if i >= len(dsts) {
			return errs.Usage("mapper given for result set %d but only %d destinations", i, len(dsts))
		}
	}

	// Check slice destinations are valid using reflection.
	sliceVals := make([]reflect.Value, len(dsts))
	resolved := make([]Mapper, len(dsts))
	for i, dst := range dsts {
		ptrVal := reflect.ValueOf(dst)
		if !ptrVal.IsValid() || ptrVal.Kind() != reflect.Pointer {
			return errs.Usage("destination %d: need pointer to slice, got %T", i, dst)
		}
		if ptrVal.IsNil() {
			return errs.Usage("destination %d: need pointer to slice, got nil", i)
		}
		sliceVal := ptrVal.Elem()
		if sliceVal.Kind() != reflect.Slice {
			return errs.Usage("destination %d: need pointer to slice, got pointer to %s", i, sliceVal.Kind())
		}
		sliceVals[i] = sliceVal

		if m, ok := c.mappers[i]; ok && m != nil {
			resolved[i] = m
			continue
		}
		m, err := defaultMapper(sliceVal.Type())
		if err != nil {
			return fmt.Errorf("result set %d: %w", i, err)
		}
		resolved[i] = m
	}

	cmd, proc, err := c.command()
	if err != nil {
		return err
	}
	cur, err := c.db.query(c.ctx, "call", cmd)
	if err != nil {
		return err
	}
	results, err := readResultSets(cur, resolved, sliceVals)
	if cerr := cur.Close(); err == nil && cerr != nil {
		err = errs.Execution("call", cerr)
	}
	if err != nil {
		return err
	}
	if err := c.writeBack(cmd, proc); err != nil {
		return err
	}

	for i, result := range results {
		sliceVals[i].Set(result)
	}
	return nil
}

// readResultSets maps one result set per mapper, in order.
func readResultSets(cur driver.Cursor, mappers []Mapper, sliceVals []reflect.Value) ([]reflect.Value, error) {
	results := make([]reflect.Value, len(mappers))
	for i, m := range mappers {
		if i > 0 && !cur.NextResultSet() {
			if err := cur.Err(); err != nil {
				return nil, errs.Execution("call", err)
			}
			return nil, errs.Execution("call", fmt.Errorf("procedure returned %d result sets, need %d", i, len(mappers)))
		}
		out, err := m.Map(cur)
		if err != nil {
			return nil, errs.Execution("call", err)
		}
		result, err := asSlice(out, sliceVals[i].Type())
		if err != nil {
			return nil, fmt.Errorf("result set %d: %w", i, err)
		}
		results[i] = result
	}
	return results, nil
}

// asSlice converts the output of a mapper into a non-nil slice of type t.
func asSlice(out any, t reflect.Type) (reflect.Value, error) {
	if out == nil {
		return reflect.MakeSlice(t, 0, 0), nil
	}
	v := reflect.ValueOf(out)
	switch {
	case v.Type().AssignableTo(t):
	case v.Type().ConvertibleTo(t) && v.Kind() == reflect.Slice:
		v = v.Convert(t)
	default:
		return reflect.Value{}, errs.Usage("mapper returned %s, need %s", v.Type(), t)
	}
	if v.IsNil() {
		v = reflect.MakeSlice(t, 0, 0)
	}
	return v, nil
}

// command builds the call command for the parameter struct.
func (c *Call) command() (*driver.Command, *schema.Procedure, error) {
	if c.db == nil {
		return nil, nil, errs.Usage("need DB, got nil")
	}
	v, err := recordValue(c.params)
	if err != nil {
		return nil, nil, err
	}
	b, proc, err := builders.procedureFor(v.Type(), c.db.Dialect())
	if err != nil {
		return nil, nil, err
	}
	if proc.HasOutput() && !v.CanSet() {
		return nil, nil, errs.Usage("need pointer to %s to receive output parameters", proc.Type)
	}
	cmd, err := b.Command(c.params)
	if err != nil {
		return nil, nil, err
	}
	return cmd, proc, nil
}

// writeBack stores the values of the output parameters of cmd onto the
// parameter struct.
func (c *Call) writeBack(cmd *driver.Command, proc *schema.Procedure) error {
	if !proc.HasOutput() {
		return nil
	}
	v, err := recordValue(c.params)
	if err != nil {
		return err
	}
	for i, p := range cmd.Parameters() {
		if p.Direction == driver.In {
			continue
		}
		param := proc.Params[i]
		if err := mapper.Assign(v.FieldByIndex(param.Index), p.Value); err != nil {
			return errs.Execution("call", fmt.Errorf("output parameter %q: %w", param.Name, err))
		}
	}
	return nil
}
