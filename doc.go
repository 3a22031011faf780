// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package sqlrecord maps tagged Go structs to and from tables across several SQL dialects through one API.

The schema of a record type is declared with struct tags.
It is derived once per type and shared by every query afterwards.
Command text is generated per dialect (T-SQL, MySQL, Postgres, CQL and SQLite) and rows are mapped back onto the structs.

# Records

Given the following tagged struct "Person":

	type Person struct {
		ID      int64           `db:"id,pk,identity"`
		Name    string          `db:"name" sqltype:"nvarchar(50)"`
		Active  bool            `db:"active" sqltype:"bit"`
		Amount  decimal.Decimal `db:"amount" sqltype:"decimal(10,2)"`
		Created time.Time       `db:"created"`
		Orders  []Order         `nav:"id=person_id"`
	}

the table is "people", the pluralised snake case form of the type name, unless the type has a TableName method.
The flags after the column name mark primary key ("pk"), generated ("identity") and nullable ("nullable") columns.
The optional "sqltype" tag declares the database type of the column.
Literals are formatted from the declared type rather than the Go type.
The "nav" tag declares a one-to-many relation, pairing columns of Person with columns of Order.

# Queries

A [Query] is compiled once and may be executed many times:

	q, err := sqlrecord.NewQuery[Person](db, sqlrecord.WithNavigation("Orders"))
	people, err := q.Execute(ctx, "name = "+db.Placeholder(1), "Fred")
	everyone, err := q.Execute(ctx, "")
	err = q.Close()

The predicate is plain SQL in the dialect of the connection and is never parsed.
Each execution binds its own parameters, so no state is carried from one call to the next.
Navigations are fetched with one extra query per navigation for all of the returned records.

# Changes

[Insert], [Update] and [Delete] build their commands from the primary key and identity columns:

	outcome, err := sqlrecord.Insert(ctx, db, &person) // person.ID now holds the generated key

# Procedures

A stored procedure is described by a struct of its parameters.
Its result sets are read into slices in order:

	var orders []Order
	var lines []OrderLine
	err := db.Call(ctx, &GetOrdersParams{CustomerID: 7}).GetAll(&orders, &lines)

# Connections

A [DB] runs commands on a [driver.Conn].
The sqlconn package provides one on top of database/sql.
*/
package sqlrecord
