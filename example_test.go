// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord_test

import (
	"context"
	"fmt"

	"github.com/canonical/sqlrecord"
	"github.com/canonical/sqlrecord/sqlconn"
)

type Team struct {
	ID      int64    `db:"id,pk,identity"`
	Name    string   `db:"name"`
	Members []Member `nav:"id=team_id"`
}

type Member struct {
	ID     int64  `db:"id,pk,identity"`
	TeamID int64  `db:"team_id"`
	Name   string `db:"name"`
}

func Example() {
	_, conn, err := sqlconn.Open(sqlconn.Config{Dialect: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	_, err = conn.PlainDB().Exec(`
CREATE TABLE teams (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE members (id INTEGER PRIMARY KEY, team_id INTEGER, name TEXT);
`)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	db := sqlrecord.NewDB(conn)

	for _, name := range []string{"engineering", "sales"} {
		team := Team{Name: name}
		if _, err := sqlrecord.Insert(ctx, db, &team); err != nil {
			panic(err)
		}
		if name != "engineering" {
			continue
		}
		for _, member := range []string{"Alastair", "Ed"} {
			if _, err := sqlrecord.Insert(ctx, db, Member{TeamID: team.ID, Name: member}); err != nil {
				panic(err)
			}
		}
	}

	q, err := sqlrecord.NewQuery[Team](db, sqlrecord.WithNavigation("Members"))
	if err != nil {
		panic(err)
	}
	defer q.Close()

	teams, err := q.Execute(ctx, "")
	if err != nil {
		panic(err)
	}
	for _, t := range teams {
		fmt.Printf("%s has %d members\n", t.Name, len(t.Members))
		for _, m := range t.Members {
			fmt.Printf("  %s\n", m.Name)
		}
	}

	// Output:
	// engineering has 2 members
	//   Alastair
	//   Ed
	// sales has 0 members
}
