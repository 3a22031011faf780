// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Delete builds DELETE commands keyed on the primary key.
type Delete struct {
	builder
	text string
	keys []schema.Column
}

// NewDelete precomputes the DELETE text for desc. It fails if the type has
// no primary key.
func NewDelete(desc *schema.Descriptor, provider dialect.Provider) (*Delete, error) {
	if err := desc.RequireKeys(); err != nil {
		return nil, err
	}
	d := &Delete{
		builder: newBuilder(desc, provider),
		keys:    desc.KeyColumns(),
	}
	d.text = "DELETE FROM " + d.table + " WHERE " + assignments(provider, d.keys, 1, " AND ")
	return d, nil
}

// Command returns a new command deleting record.
func (d *Delete) Command(record any) (*driver.Command, error) {
	v, err := d.recordValue(record)
	if err != nil {
		return nil, err
	}
	cmd := driver.NewCommand(d.text)
	for _, c := range d.keys {
		bindColumn(cmd, c, v)
	}
	return cmd, nil
}
