// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package demo walks through sqlrecord on an in-memory SQLite database.
package demo

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/canonical/sqlrecord"
	"github.com/canonical/sqlrecord/sqlconn"
)

type Person struct {
	Name     string `db:"name,pk"`
	Height   int    `db:"height_cm"`
	HomeTown string `db:"home_town"`
}

type Place struct {
	Name       string   `db:"town_name,pk"`
	Population int      `db:"population"`
	Residents  []Person `nav:"town_name=home_town"`
}

func (Place) TableName() string { return "location" }

const schema = `
CREATE TABLE people (
	name text PRIMARY KEY,
	height_cm integer,
	home_town text
);
CREATE TABLE location (
	town_name text PRIMARY KEY,
	population integer
);`

// Run creates and fills the tables, then prints the results of a few
// queries to out.
func Run(ctx context.Context, out io.Writer) error {
	_, conn, err := sqlconn.Open(sqlconn.Config{Dialect: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.PlainDB().ExecContext(ctx, schema); err != nil {
		return err
	}
	db := sqlrecord.NewDB(conn)

	var people = []Person{{"Jim", 150, "Kabul"}, {"Saba", 162, "Berlin"}, {"Dave", 169, "Brasília"}, {"Sophie", 174, "Berlin"}, {"Kiri", 168, "Cape Town"}}
	var places = []Place{{Name: "Kabul", Population: 13000000}, {Name: "Berlin", Population: 3677472}, {Name: "Brasília", Population: 3039444}, {Name: "Cape Town", Population: 4710000}}
	for _, person := range people {
		if _, err := sqlrecord.Insert(ctx, db, person); err != nil {
			return err
		}
	}
	for _, place := range places {
		if _, err := sqlrecord.Insert(ctx, db, place); err != nil {
			return err
		}
	}

	tallerThan, err := sqlrecord.NewQuery[Person](db)
	if err != nil {
		return err
	}
	defer tallerThan.Close()

	// Find people taller than Jim.
	jim := people[0]
	if err := printTaller(ctx, out, tallerThan, jim); err != nil {
		return err
	}

	// Find cities with people taller than Jim, along with everyone living
	// there.
	tallCities, err := sqlrecord.NewQuery[Place](db, sqlrecord.WithNavigation("Residents"))
	if err != nil {
		return err
	}
	defer tallCities.Close()
	cities, err := tallCities.Execute(ctx, "town_name IN (SELECT home_town FROM people WHERE height_cm > ?)", jim.Height)
	if err != nil {
		return err
	}
	for _, city := range cities {
		names := make([]string, len(city.Residents))
		for i, p := range city.Residents {
			names[i] = p.Name
		}
		fmt.Fprintf(out, "%s: %s\n", city.Name, strings.Join(names, ", "))
	}

	// Jim has a growth spurt.
	jim.Height = 171
	if _, err := sqlrecord.Update(ctx, db, jim); err != nil {
		return err
	}
	return printTaller(ctx, out, tallerThan, jim)
}

func printTaller(ctx context.Context, out io.Writer, q *sqlrecord.Query[Person], than Person) error {
	iter := q.Iter(ctx, "height_cm > ?", than.Height)
	for iter.Next() {
		p, err := iter.Get()
		if err != nil {
			iter.Close()
			return err
		}
		fmt.Fprintf(out, "%s is taller than %s.\n", p.Name, than.Name)
	}
	return iter.Close()
}
