// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"context"
	"fmt"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/mapper"
)

// Outcome holds metadata about an executed insert, update or delete.
type Outcome struct {
	// RowsAffected is the number of rows changed by the command.
	RowsAffected int64
	// Identity is the generated key of an inserted record, or nil.
	Identity any

	result driver.Result
}

// Result returns the driver result of the command. It is nil when the
// command returned rows instead.
func (o Outcome) Result() driver.Result {
	return o.result
}

// Insert inserts record, a tagged struct or a pointer to one. If the type
// declares an identity column, the generated key is read back into
// Outcome.Identity and, when record is a pointer, onto the record.
func Insert(ctx context.Context, db *DB, record any) (Outcome, error) {
	if db == nil {
		return Outcome{}, errs.Usage("need DB, got nil")
	}
	ctx = orBackground(ctx)
	v, err := recordValue(record)
	if err != nil {
		return Outcome{}, err
	}
	ins, err := builders.insertFor(v.Type(), db.Dialect())
	if err != nil {
		return Outcome{}, err
	}
	cmd, err := ins.Command(record)
	if err != nil {
		return Outcome{}, err
	}
	identity, hasID := ins.Identity()

	var out Outcome
	if ins.Returns() {
		cur, err := db.query(ctx, "insert", cmd)
		if err != nil {
			return Outcome{}, err
		}
		if cur.Next() {
			out.RowsAffected = 1
			err = cur.Scan(&out.Identity)
		}
		if err == nil {
			err = cur.Err()
		}
		if cerr := cur.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return Outcome{}, errs.Execution("insert", err)
		}
	} else {
		res, err := db.exec(ctx, "insert", cmd)
		if err != nil {
			return Outcome{}, err
		}
		out.result = res
		if out.RowsAffected, err = res.RowsAffected(); err != nil {
			return Outcome{}, errs.Execution("insert", err)
		}
		if hasID {
			switch db.Dialect().Features().Identity {
			case dialect.IdentityLastInsertID:
				id, err := res.LastInsertId()
				if err != nil {
					return Outcome{}, errs.Execution("insert", err)
				}
				out.Identity = id
			case dialect.IdentityGenerated:
				out.Identity = identity.Value(v).Interface()
			}
		}
	}

	if hasID && out.Identity != nil && v.CanSet() {
		if err := mapper.Assign(identity.Value(v), out.Identity); err != nil {
			return Outcome{}, fmt.Errorf("cannot set identity %s.%s: %w", v.Type().Name(), identity.Property, err)
		}
	}
	return out, nil
}

// Update updates the row of record, matched on its primary key.
func Update(ctx context.Context, db *DB, record any) (Outcome, error) {
	if db == nil {
		return Outcome{}, errs.Usage("need DB, got nil")
	}
	v, err := recordValue(record)
	if err != nil {
		return Outcome{}, err
	}
	u, err := builders.updateFor(v.Type(), db.Dialect())
	if err != nil {
		return Outcome{}, err
	}
	cmd, err := u.Command(record)
	if err != nil {
		return Outcome{}, err
	}
	return execOutcome(orBackground(ctx), db, "update", cmd)
}

// Delete deletes the row of record, matched on its primary key.
func Delete(ctx context.Context, db *DB, record any) (Outcome, error) {
	if db == nil {
		return Outcome{}, errs.Usage("need DB, got nil")
	}
	v, err := recordValue(record)
	if err != nil {
		return Outcome{}, err
	}
	d, err := builders.deleteFor(v.Type(), db.Dialect())
	if err != nil {
		return Outcome{}, err
	}
	cmd, err := d.Command(record)
	if err != nil {
		return Outcome{}, err
	}
	return execOutcome(orBackground(ctx), db, "delete", cmd)
}

func execOutcome(ctx context.Context, db *DB, op string, cmd *driver.Command) (Outcome, error) {
	res, err := db.exec(ctx, op, cmd)
	if err != nil {
		return Outcome{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Outcome{}, errs.Execution(op, err)
	}
	return Outcome{RowsAffected: n, result: res}, nil
}
