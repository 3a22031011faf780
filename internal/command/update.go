// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Update builds UPDATE commands keyed on the primary key.
type Update struct {
	builder
	text string
	set  []schema.Column
	keys []schema.Column
}

// NewUpdate precomputes the UPDATE text for desc. It fails if the type has
// no primary key or nothing to update.
func NewUpdate(desc *schema.Descriptor, provider dialect.Provider) (*Update, error) {
	if err := desc.RequireKeys(); err != nil {
		return nil, err
	}
	u := &Update{
		builder: newBuilder(desc, provider),
		keys:    desc.KeyColumns(),
		set: withoutFlags(desc.Columns, func(c schema.Column) bool {
			return c.PrimaryKey || c.Identity
		}),
	}
	if len(u.set) == 0 {
		return nil, errs.Schema(desc.Type.String(), "no columns to update outside the primary key")
	}
	u.text = "UPDATE " + u.table +
		" SET " + assignments(provider, u.set, 1, ", ") +
		" WHERE " + assignments(provider, u.keys, len(u.set)+1, " AND ")
	return u, nil
}

// Command returns a new command updating record. The SET values are bound
// first, then the key values.
func (u *Update) Command(record any) (*driver.Command, error) {
	v, err := u.recordValue(record)
	if err != nil {
		return nil, err
	}
	cmd := driver.NewCommand(u.text)
	for _, c := range u.set {
		bindColumn(cmd, c, v)
	}
	for _, c := range u.keys {
		bindColumn(cmd, c, v)
	}
	return cmd, nil
}
