// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package schema derives table, column, key and navigation information from
the struct tags of a record type.

	type Person struct {
		ID      int64           `db:"id,pk,identity"`
		Name    string          `db:"name"`
		Amount  decimal.Decimal `db:"amount" sqltype:"decimal(10,2)"`
		Created time.Time       `db:"created"`
		Orders  []Order         `nav:"id=person_id"`
	}

A Descriptor is built once per type, cached for the life of the process and
never modified afterwards.
*/
package schema
