// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlrecord"
	"github.com/canonical/sqlrecord/sqlconn"
)

// Hook up gocheck into the "go test" runner.
func TestPackage(t *testing.T) { TestingT(t) }

type PackageSuite struct {
	conn *sqlconn.DB
	db   *sqlrecord.DB
}

var _ = Suite(&PackageSuite{})

type Account struct {
	ID      int64           `db:"id,pk,identity"`
	Name    string          `db:"name" sqltype:"varchar(50)"`
	Active  bool            `db:"active" sqltype:"boolean"`
	Amount  decimal.Decimal `db:"amount" sqltype:"decimal(10,2)"`
	Created time.Time       `db:"created" sqltype:"datetime"`
	Entries []Entry         `nav:"id=account_id"`
}

type Entry struct {
	ID        int64  `db:"id,pk,identity"`
	AccountID int64  `db:"account_id"`
	Memo      string `db:"memo"`
}

type Tag struct {
	Name string `db:"name,nullable"`
}

const createTables = `
CREATE TABLE accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE,
	active BOOLEAN,
	amount TEXT,
	created DATETIME
);
CREATE TABLE entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER,
	memo TEXT
);
`

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (s *PackageSuite) SetUpTest(c *C) {
	_, conn, err := sqlconn.Open(sqlconn.Config{Dialect: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	c.Assert(err, IsNil)
	s.conn = conn
	_, err = conn.PlainDB().Exec(createTables)
	c.Assert(err, IsNil)
	s.db = sqlrecord.NewDB(conn)
}

func (s *PackageSuite) TearDownTest(c *C) {
	c.Assert(s.conn.Close(), IsNil)
}

func (s *PackageSuite) insertAccounts(c *C) []Account {
	accounts := []Account{{
		Name:    "A",
		Active:  true,
		Amount:  decimal.RequireFromString("30.34"),
		Created: date(2017, time.April, 12),
	}, {
		Name:    "B",
		Active:  false,
		Amount:  decimal.RequireFromString("215.50"),
		Created: date(2017, time.June, 21),
	}}
	for i := range accounts {
		outcome, err := sqlrecord.Insert(context.Background(), s.db, &accounts[i])
		c.Assert(err, IsNil)
		c.Assert(outcome.RowsAffected, Equals, int64(1))
		c.Assert(outcome.Identity, Equals, int64(i+1))
		c.Assert(accounts[i].ID, Equals, int64(i+1))
	}
	return accounts
}

func (s *PackageSuite) insertEntries(c *C, entries ...Entry) {
	for _, e := range entries {
		_, err := sqlrecord.Insert(context.Background(), s.db, e)
		c.Assert(err, IsNil)
	}
}

func assertAccount(c *C, got, want Account) {
	c.Check(got.ID, Equals, want.ID)
	c.Check(got.Name, Equals, want.Name)
	c.Check(got.Active, Equals, want.Active)
	c.Check(got.Amount.Equal(want.Amount), Equals, true, Commentf("amount %s, want %s", got.Amount, want.Amount))
	c.Check(got.Created.Equal(want.Created), Equals, true, Commentf("created %s, want %s", got.Created, want.Created))
}

func (s *PackageSuite) TestRoundTrip(c *C) {
	want := s.insertAccounts(c)

	q, err := sqlrecord.NewQuery[Account](s.db)
	c.Assert(err, IsNil)
	defer q.Close()

	got, err := q.Execute(context.Background(), "")
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 2)
	assertAccount(c, got[0], want[0])
	assertAccount(c, got[1], want[1])
	c.Check(got[0].Entries, IsNil)
}

func (s *PackageSuite) TestPredicate(c *C) {
	want := s.insertAccounts(c)
	q := sqlrecord.MustQuery[Account](s.db)
	defer q.Close()

	got, err := q.Execute(context.Background(), "name = "+s.db.Placeholder(1), "A")
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 1)
	assertAccount(c, got[0], want[0])

	got, err = q.Execute(context.Background(), "amount = ? AND active = ?", decimal.RequireFromString("215.50"), false)
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 1)
	c.Check(got[0].Name, Equals, "B")

	// The arguments of one execution are not carried over to the next.
	got, err = q.Execute(context.Background(), "")
	c.Assert(err, IsNil)
	c.Check(got, HasLen, 2)
}

func (s *PackageSuite) TestNoMatch(c *C) {
	s.insertAccounts(c)
	got, err := sqlrecord.QueryAll[Account](context.Background(), s.db, "name = ?", "Z")
	c.Assert(err, IsNil)
	c.Assert(got, NotNil)
	c.Check(got, HasLen, 0)
}

func (s *PackageSuite) TestArgumentCount(c *C) {
	s.insertAccounts(c)
	q := sqlrecord.MustQuery[Account](s.db)
	defer q.Close()
	var usageErr *sqlrecord.UsageError

	_, err := q.Execute(context.Background(), "name = ? AND active = ?", "A")
	c.Assert(errors.As(err, &usageErr), Equals, true)
	c.Check(err, ErrorMatches, "predicate refers to 2 parameters, got 1 arguments")

	_, err = q.Execute(context.Background(), "", "A")
	c.Check(errors.As(err, &usageErr), Equals, true)

	iter := q.Iter(context.Background(), "name = ?")
	c.Check(iter.Next(), Equals, false)
	c.Check(errors.As(iter.Close(), &usageErr), Equals, true)

	// A question mark inside a string literal is not a parameter.
	got, err := q.Execute(context.Background(), "name <> '?' AND name = ?", "B")
	c.Assert(err, IsNil)
	c.Check(got, HasLen, 1)
}

type Region struct {
	Country string   `db:"country,pk"`
	Code    string   `db:"code,pk"`
	Offices []Office `nav:"country=country,code=region_code"`
}

type Office struct {
	ID         int64  `db:"id,pk"`
	Country    string `db:"country"`
	RegionCode string `db:"region_code"`
}

func (s *PackageSuite) TestCompositeNavigationCQL(c *C) {
	sqldb, _, err := sqlmock.New()
	c.Assert(err, IsNil)
	defer sqldb.Close()
	conn, err := sqlconn.New(sqldb, "cql")
	c.Assert(err, IsNil)
	db := sqlrecord.NewDB(conn)

	_, err = sqlrecord.NewQuery[Region](db, sqlrecord.WithNavigation())
	var cfgErr *sqlrecord.ConfigurationError
	c.Assert(errors.As(err, &cfgErr), Equals, true)
	c.Check(err, ErrorMatches, "configuration: dialect cql cannot select navigation Offices with a composite key")

	_, err = sqlrecord.NewQuery[Region](db)
	c.Check(err, IsNil)
	_, err = sqlrecord.NewQuery[Account](db, sqlrecord.WithNavigation())
	c.Check(err, IsNil)
	_, err = sqlrecord.NewQuery[Region](s.db, sqlrecord.WithNavigation())
	c.Check(err, IsNil)
}

func (s *PackageSuite) TestQueryPointers(c *C) {
	s.insertAccounts(c)
	got, err := sqlrecord.QueryAll[*Account](context.Background(), s.db, "active = ?", true)
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 1)
	c.Check(got[0].Name, Equals, "A")
}

func (s *PackageSuite) TestQueryError(c *C) {
	got, err := sqlrecord.QueryAll[Account](context.Background(), s.db, "no_such_column = ?", 1)
	c.Assert(got, IsNil)
	var execErr *sqlrecord.ExecutionError
	c.Assert(errors.As(err, &execErr), Equals, true)
	c.Check(err, ErrorMatches, ".*no such column: no_such_column.*")
}

func (s *PackageSuite) TestSchemaError(c *C) {
	type Unmapped struct {
		Name string
	}
	_, err := sqlrecord.NewQuery[Unmapped](s.db)
	var schemaErr *sqlrecord.SchemaError
	c.Assert(errors.As(err, &schemaErr), Equals, true)

	_, err = sqlrecord.NewQuery[Account](s.db, sqlrecord.WithNavigation("Missing"))
	c.Assert(errors.As(err, &schemaErr), Equals, true)
	c.Check(err, ErrorMatches, `.*no navigation named "Missing"`)

	c.Check(func() { sqlrecord.MustQuery[Unmapped](s.db) }, PanicMatches, `.*no "db" tags found in struct "Unmapped"`)
}

func (s *PackageSuite) TestClose(c *C) {
	q, err := sqlrecord.NewQuery[Account](s.db)
	c.Assert(err, IsNil)
	c.Assert(q.Close(), IsNil)
	c.Assert(q.Close(), IsNil)

	_, err = q.Execute(context.Background(), "")
	var usageErr *sqlrecord.UsageError
	c.Assert(errors.As(err, &usageErr), Equals, true)
	c.Assert(errors.Is(err, sqlrecord.ErrClosed), Equals, true)

	iter := q.Iter(context.Background(), "")
	c.Check(iter.Next(), Equals, false)
	c.Check(errors.Is(iter.Close(), sqlrecord.ErrClosed), Equals, true)
}

func (s *PackageSuite) TestNavigation(c *C) {
	s.insertAccounts(c)
	s.insertEntries(c,
		Entry{AccountID: 1, Memo: "opening"},
		Entry{AccountID: 1, Memo: "fee"},
		Entry{AccountID: 3, Memo: "orphan"},
	)

	q, err := sqlrecord.NewQuery[Account](s.db, sqlrecord.WithNavigation("Entries"))
	c.Assert(err, IsNil)
	defer q.Close()

	got, err := q.Execute(context.Background(), "")
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 2)
	c.Assert(got[0].Entries, HasLen, 2)
	c.Check(got[0].Entries[0].Memo, Equals, "opening")
	c.Check(got[0].Entries[1].Memo, Equals, "fee")
	c.Check(got[1].Entries, NotNil)
	c.Check(got[1].Entries, HasLen, 0)

	// Every navigation is populated when none are named.
	all, err := sqlrecord.NewQuery[*Account](s.db, sqlrecord.WithNavigation())
	c.Assert(err, IsNil)
	ptrs, err := all.Execute(context.Background(), "name = ?", "A")
	c.Assert(err, IsNil)
	c.Assert(ptrs, HasLen, 1)
	c.Check(ptrs[0].Entries, HasLen, 2)
}

func (s *PackageSuite) TestNavigationNoOwners(c *C) {
	q, err := sqlrecord.NewQuery[Account](s.db, sqlrecord.WithNavigation("Entries"))
	c.Assert(err, IsNil)
	got, err := q.Execute(context.Background(), "")
	c.Assert(err, IsNil)
	c.Check(got, HasLen, 0)
}

func (s *PackageSuite) TestIterator(c *C) {
	s.insertAccounts(c)
	q := sqlrecord.MustQuery[Account](s.db)
	defer q.Close()

	iter := q.Iter(context.Background(), "")
	_, err := iter.Get()
	c.Check(err, ErrorMatches, "cannot call Get before Next")

	var names []string
	for iter.Next() {
		a, err := iter.Get()
		c.Assert(err, IsNil)
		names = append(names, a.Name)
	}
	_, err = iter.Get()
	c.Check(err, ErrorMatches, "iteration ended")
	c.Assert(iter.Close(), IsNil)
	c.Assert(iter.Close(), IsNil)
	c.Check(names, DeepEquals, []string{"A", "B"})

	_, err = iter.Get()
	c.Check(errors.Is(err, sqlrecord.ErrClosed), Equals, true)
}

func (s *PackageSuite) TestIteratorCloseEarly(c *C) {
	s.insertAccounts(c)
	iter := sqlrecord.MustQuery[Account](s.db).Iter(context.Background(), "")
	c.Assert(iter.Next(), Equals, true)
	c.Assert(iter.Close(), IsNil)
	c.Check(iter.Next(), Equals, false)

	// The connection has been released.
	got, err := sqlrecord.QueryAll[Account](context.Background(), s.db, "")
	c.Assert(err, IsNil)
	c.Check(got, HasLen, 2)
}

func (s *PackageSuite) TestExecuteAsync(c *C) {
	s.insertAccounts(c)
	q := sqlrecord.MustQuery[Account](s.db)
	defer q.Close()

	first := q.ExecuteAsync(context.Background(), "name = ?", "A")
	second := q.ExecuteAsync(context.Background(), "name = ?", "B")
	a, err := first.Wait()
	c.Assert(err, IsNil)
	b, err := second.Wait()
	c.Assert(err, IsNil)
	c.Assert(a, HasLen, 1)
	c.Assert(b, HasLen, 1)
	c.Check(a[0].Name, Equals, "A")
	c.Check(b[0].Name, Equals, "B")

	q.Close()
	_, err = q.ExecuteAsync(context.Background(), "").Wait()
	c.Check(errors.Is(err, sqlrecord.ErrClosed), Equals, true)
}

func (s *PackageSuite) TestUpdateDelete(c *C) {
	accounts := s.insertAccounts(c)

	accounts[0].Name = "AA"
	accounts[0].Amount = decimal.RequireFromString("1.5")
	outcome, err := sqlrecord.Update(context.Background(), s.db, accounts[0])
	c.Assert(err, IsNil)
	c.Check(outcome.RowsAffected, Equals, int64(1))
	c.Check(outcome.Result(), NotNil)

	got, err := sqlrecord.QueryAll[Account](context.Background(), s.db, "id = ?", accounts[0].ID)
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 1)
	assertAccount(c, got[0], accounts[0])

	outcome, err = sqlrecord.Delete(context.Background(), s.db, &accounts[1])
	c.Assert(err, IsNil)
	c.Check(outcome.RowsAffected, Equals, int64(1))

	outcome, err = sqlrecord.Delete(context.Background(), s.db, &accounts[1])
	c.Assert(err, IsNil)
	c.Check(outcome.RowsAffected, Equals, int64(0))

	got, err = sqlrecord.QueryAll[Account](context.Background(), s.db, "")
	c.Assert(err, IsNil)
	c.Check(got, HasLen, 1)
}

func (s *PackageSuite) TestChangesWithoutKey(c *C) {
	_, err := sqlrecord.Update(context.Background(), s.db, Tag{Name: "x"})
	var schemaErr *sqlrecord.SchemaError
	c.Assert(errors.As(err, &schemaErr), Equals, true)
	c.Check(err, ErrorMatches, ".*no primary key declared")

	_, err = sqlrecord.Delete(context.Background(), s.db, nil)
	var usageErr *sqlrecord.UsageError
	c.Check(errors.As(err, &usageErr), Equals, true)
}

func (s *PackageSuite) TestInsertConstraint(c *C) {
	s.insertAccounts(c)
	_, err := sqlrecord.Insert(context.Background(), s.db, &Account{Name: "A"})
	var execErr *sqlrecord.ExecutionError
	c.Assert(errors.As(err, &execErr), Equals, true)
	c.Check(sqlconn.IsUniqueConstraintError(err), Equals, true)
}

func (s *PackageSuite) TestTransaction(c *C) {
	tx, err := s.conn.Begin(context.Background(), nil)
	c.Assert(err, IsNil)
	txdb := sqlrecord.NewDB(tx)
	_, err = sqlrecord.Insert(context.Background(), txdb, &Account{Name: "T", Created: date(2020, time.January, 1)})
	c.Assert(err, IsNil)
	c.Assert(tx.Rollback(), IsNil)

	got, err := sqlrecord.QueryAll[Account](context.Background(), s.db, "")
	c.Assert(err, IsNil)
	c.Check(got, HasLen, 0)
}

func (s *PackageSuite) TestLogger(c *C) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db := sqlrecord.NewDB(s.conn, sqlrecord.WithLogger(logger))

	_, err := sqlrecord.QueryAll[Account](context.Background(), db, "name = ?", "A")
	c.Assert(err, IsNil)
	c.Check(buf.String(), Matches, `(?s).*msg="executing command" op=query dialect=sqlite.*name = 'A'.*`)
}

func (s *PackageSuite) TestStatsConn(c *C) {
	stats := sqlconn.NewStatsConn(s.conn)
	db := sqlrecord.NewDB(stats)
	s.insertAccounts(c)
	_, err := sqlrecord.QueryAll[Account](context.Background(), db, "")
	c.Assert(err, IsNil)
	c.Check(stats.QueryStats().Stats().TotalQueries, Equals, int64(1))
}

func (s *PackageSuite) TestNilArguments(c *C) {
	c.Check(sqlrecord.NewDB(nil), IsNil)
	_, err := sqlrecord.NewQuery[Account](nil)
	var usageErr *sqlrecord.UsageError
	c.Check(errors.As(err, &usageErr), Equals, true)
	_, err = sqlrecord.Insert(context.Background(), nil, &Account{})
	c.Check(errors.As(err, &usageErr), Equals, true)
}
