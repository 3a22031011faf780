// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"github.com/DATA-DOG/go-sqlmock"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlrecord"
	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/sqlconn"
)

type ProcedureSuite struct {
	sqldb *sql.DB
	mock  sqlmock.Sqlmock
}

var _ = Suite(&ProcedureSuite{})

type Customer struct {
	ID   int64  `db:"id,pk"`
	Name string `db:"name"`
}

type Order struct {
	ID         int64 `db:"id,pk"`
	CustomerID int64 `db:"customer_id"`
}

type OrderLine struct {
	OrderID int64  `db:"order_id"`
	SKU     string `db:"sku"`
}

type Note struct {
	Text string `db:"text"`
}

type GetCustomerParams struct {
	CustomerID int64 `db:"customer_id"`
}

type ArchiveOrdersParams struct {
	CustomerID int64 `db:"customer_id"`
}

type TotalsParams struct {
	CustomerID int64 `db:"customer_id"`
	Total      int64 `db:"total,out"`
	Visits     int64 `db:"visits,inout"`
}

// outputConn answers every command by setting its output parameters, as a
// database would once the call has finished.
type outputConn struct {
	commands []*driver.Command
	rows     [][]any
}

func (conn *outputConn) Dialect() dialect.Provider {
	return dialect.MustGet(dialect.MySQL)
}

func (conn *outputConn) setOutputs(cmd *driver.Command) {
	conn.commands = append(conn.commands, cmd)
	for _, p := range cmd.Parameters() {
		switch p.Direction {
		case driver.Out:
			p.Value = int64(42)
		case driver.InOut:
			p.Value = p.Value.(int64) + 1
		}
	}
}

func (conn *outputConn) Query(_ context.Context, cmd *driver.Command) (driver.Cursor, error) {
	conn.setOutputs(cmd)
	return &rowsCursor{columns: []string{"id", "name"}, rows: conn.rows, pos: -1}, nil
}

func (conn *outputConn) Exec(_ context.Context, cmd *driver.Command) (driver.Result, error) {
	conn.setOutputs(cmd)
	return sqlmock.NewResult(0, 0), nil
}

// rowsCursor is a single result set held in memory.
type rowsCursor struct {
	columns []string
	rows    [][]any
	pos     int
}

func (cur *rowsCursor) Columns() ([]string, error) { return cur.columns, nil }
func (cur *rowsCursor) NextResultSet() bool        { return false }
func (cur *rowsCursor) Err() error                 { return nil }
func (cur *rowsCursor) Close() error               { return nil }

func (cur *rowsCursor) Next() bool {
	cur.pos++
	return cur.pos < len(cur.rows)
}

func (cur *rowsCursor) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(cur.rows[cur.pos][i]))
	}
	return nil
}

func (s *ProcedureSuite) TearDownTest(c *C) {
	if s.mock != nil {
		c.Check(s.mock.ExpectationsWereMet(), IsNil)
	}
	if s.sqldb != nil {
		s.sqldb.Close()
	}
	s.sqldb, s.mock = nil, nil
}

func (s *ProcedureSuite) newDB(c *C, dialectName string) *sqlrecord.DB {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	c.Assert(err, IsNil)
	s.sqldb, s.mock = sqldb, mock
	conn, err := sqlconn.New(sqldb, dialectName)
	c.Assert(err, IsNil)
	return sqlrecord.NewDB(conn)
}

func (s *ProcedureSuite) TestGetAllFourResultSets(c *C) {
	db := s.newDB(c, "mysql")
	s.mock.ExpectQuery("CALL `get_customer`(?)").
		WithArgs(int64(7)).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Fred"),
			sqlmock.NewRows([]string{"id", "customer_id"}).AddRow(int64(1), int64(7)).AddRow(int64(2), int64(7)),
			sqlmock.NewRows([]string{"order_id", "sku"}),
			sqlmock.NewRows([]string{"text"}).AddRow("vip"),
		)

	var customers []Customer
	var orders []*Order
	var lines []OrderLine
	var notes []Note
	err := db.Call(context.Background(), GetCustomerParams{CustomerID: 7}).GetAll(&customers, &orders, &lines, &notes)
	c.Assert(err, IsNil)
	c.Check(customers, DeepEquals, []Customer{{ID: 7, Name: "Fred"}})
	c.Assert(orders, HasLen, 2)
	c.Check(*orders[0], Equals, Order{ID: 1, CustomerID: 7})
	c.Check(*orders[1], Equals, Order{ID: 2, CustomerID: 7})
	c.Check(lines, NotNil)
	c.Check(lines, HasLen, 0)
	c.Check(notes, DeepEquals, []Note{{Text: "vip"}})
}

func (s *ProcedureSuite) TestGetAllIgnoresTrailingResultSets(c *C) {
	db := s.newDB(c, "mysql")
	s.mock.ExpectQuery("CALL `get_customer`(?)").
		WithArgs(int64(7)).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Fred"),
			sqlmock.NewRows([]string{"id", "customer_id"}).AddRow(int64(1), int64(7)),
			sqlmock.NewRows([]string{"text"}).AddRow("unread"),
		)

	var customers []Customer
	var orders []Order
	err := db.Call(context.Background(), GetCustomerParams{CustomerID: 7}).GetAll(&customers, &orders)
	c.Assert(err, IsNil)
	c.Check(customers, DeepEquals, []Customer{{ID: 7, Name: "Fred"}})
	c.Check(orders, DeepEquals, []Order{{ID: 1, CustomerID: 7}})
}

func (s *ProcedureSuite) TestGetAllNamedParameters(c *C) {
	db := s.newDB(c, "tsql")
	s.mock.ExpectQuery("EXEC [get_customer] @customer_id = @p1").
		WithArgs(sql.Named("p1", int64(7))).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Fred"))

	var customers []Customer
	err := db.Call(context.Background(), &GetCustomerParams{CustomerID: 7}).GetAll(&customers)
	c.Assert(err, IsNil)
	c.Check(customers, DeepEquals, []Customer{{ID: 7, Name: "Fred"}})
}

func (s *ProcedureSuite) TestGetAllPostgres(c *C) {
	db := s.newDB(c, "postgres")
	s.mock.ExpectQuery(`CALL "get_customer"($1)`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	customers := []Customer{{ID: 1}}
	err := db.Call(context.Background(), GetCustomerParams{CustomerID: 3}).GetAll(&customers)
	c.Assert(err, IsNil)
	c.Check(customers, NotNil)
	c.Check(customers, HasLen, 0)
}

func (s *ProcedureSuite) TestGetAllMissingResultSet(c *C) {
	db := s.newDB(c, "mysql")
	s.mock.ExpectQuery("CALL `get_customer`(?)").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Fred"))

	customers := []Customer{{ID: 99}}
	var orders []Order
	err := db.Call(context.Background(), GetCustomerParams{CustomerID: 7}).GetAll(&customers, &orders)
	var execErr *sqlrecord.ExecutionError
	c.Assert(errors.As(err, &execErr), Equals, true)
	c.Check(err, ErrorMatches, "procedure returned 1 result sets, need 2")

	// Destinations are left untouched on error.
	c.Check(customers, DeepEquals, []Customer{{ID: 99}})
	c.Check(orders, IsNil)
}

func (s *ProcedureSuite) TestGetAllBackendError(c *C) {
	db := s.newDB(c, "mysql")
	s.mock.ExpectQuery("CALL `get_customer`(?)").
		WithArgs(int64(7)).
		WillReturnError(errors.New("PROCEDURE shop.get_customer does not exist"))

	var customers []Customer
	err := db.Call(context.Background(), GetCustomerParams{CustomerID: 7}).GetAll(&customers)
	var execErr *sqlrecord.ExecutionError
	c.Assert(errors.As(err, &execErr), Equals, true)
	c.Check(err, ErrorMatches, "PROCEDURE shop.get_customer does not exist")
}

func (s *ProcedureSuite) TestGetAllWithMapper(c *C) {
	db := s.newDB(c, "mysql")
	s.mock.ExpectQuery("CALL `get_customer`(?)").
		WithArgs(int64(7)).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Fred").AddRow(int64(8), "Mary"),
			sqlmock.NewRows([]string{"text"}).AddRow("vip"),
		)

	names := sqlrecord.MapperFunc[string](func(cur driver.Cursor) ([]string, error) {
		var out []string
		for cur.Next() {
			var id int64
			var name string
			if err := cur.Scan(&id, &name); err != nil {
				return nil, err
			}
			out = append(out, name)
		}
		return out, cur.Err()
	})

	var got []string
	var notes []Note
	err := db.Call(context.Background(), GetCustomerParams{CustomerID: 7}, sqlrecord.WithMapper(0, names)).GetAll(&got, &notes)
	c.Assert(err, IsNil)
	c.Check(got, DeepEquals, []string{"Fred", "Mary"})
	c.Check(notes, DeepEquals, []Note{{Text: "vip"}})
}

func (s *ProcedureSuite) TestGetAllUsageErrors(c *C) {
	db := s.newDB(c, "mysql")
	ctx := context.Background()
	var customers []Customer
	var usageErr *sqlrecord.UsageError

	err := db.Call(ctx, GetCustomerParams{}).GetAll()
	c.Check(errors.As(err, &usageErr), Equals, true)
	c.Check(err, ErrorMatches, "need between 1 and 8 destinations, got 0")

	dsts := make([]any, 9)
	for i := range dsts {
		dsts[i] = &[]Customer{}
	}
	err = db.Call(ctx, GetCustomerParams{}).GetAll(dsts...)
	c.Check(err, ErrorMatches, "need between 1 and 8 destinations, got 9")

	err = db.Call(ctx, GetCustomerParams{}).GetAll(customers)
	c.Check(errors.As(err, &usageErr), Equals, true)

	err = db.Call(ctx, GetCustomerParams{}, sqlrecord.WithMapper(8, nil)).GetAll(&customers)
	c.Check(err, ErrorMatches, `mapper index 8 out of range \[0, 8\)`)

	err = db.Call(ctx, GetCustomerParams{}, sqlrecord.WithMapper(1, nil)).GetAll(&customers)
	c.Check(err, ErrorMatches, "mapper given for result set 1 but only 1 destinations")
}

func (s *ProcedureSuite) TestGetAllUnmappableElement(c *C) {
	db := s.newDB(c, "mysql")
	var ints []int
	err := db.Call(context.Background(), GetCustomerParams{}).GetAll(&ints)
	var configErr *sqlrecord.ConfigurationError
	c.Assert(errors.As(err, &configErr), Equals, true)
}

func (s *ProcedureSuite) TestUnsupportedDialect(c *C) {
	db := s.newDB(c, "cql")
	var customers []Customer
	err := db.Call(context.Background(), GetCustomerParams{}).GetAll(&customers)
	var configErr *sqlrecord.ConfigurationError
	c.Assert(errors.As(err, &configErr), Equals, true)
	c.Check(err, ErrorMatches, "configuration: dialect cql does not support stored procedures")
}

func (s *ProcedureSuite) TestRun(c *C) {
	db := s.newDB(c, "mysql")
	s.mock.ExpectExec("CALL `archive_orders`(?)").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := db.Call(context.Background(), ArchiveOrdersParams{CustomerID: 7}).Run()
	c.Assert(err, IsNil)
}

func (s *ProcedureSuite) TestOutputNeedsPointer(c *C) {
	db := s.newDB(c, "mysql")
	err := db.Call(context.Background(), TotalsParams{CustomerID: 7}).Run()
	var usageErr *sqlrecord.UsageError
	c.Assert(errors.As(err, &usageErr), Equals, true)
	c.Check(err, ErrorMatches, "need pointer to sqlrecord_test.TotalsParams to receive output parameters")
}

func (s *ProcedureSuite) TestRunWritesOutputs(c *C) {
	conn := &outputConn{}
	db := sqlrecord.NewDB(conn)

	params := TotalsParams{CustomerID: 7, Visits: 2}
	err := db.Call(context.Background(), &params).Run()
	c.Assert(err, IsNil)
	c.Check(params, Equals, TotalsParams{CustomerID: 7, Total: 42, Visits: 3})

	c.Assert(conn.commands, HasLen, 1)
	cmd := conn.commands[0]
	c.Check(cmd.Text, Equals, "CALL `totals`(?, ?, ?)")
	var directions []driver.Direction
	for _, p := range cmd.Parameters() {
		directions = append(directions, p.Direction)
	}
	c.Check(directions, DeepEquals, []driver.Direction{driver.In, driver.Out, driver.InOut})
}

func (s *ProcedureSuite) TestGetAllWritesOutputs(c *C) {
	conn := &outputConn{rows: [][]any{{int64(7), "Fred"}}}
	db := sqlrecord.NewDB(conn)

	params := TotalsParams{CustomerID: 7, Visits: 10}
	var customers []Customer
	err := db.Call(context.Background(), &params).GetAll(&customers)
	c.Assert(err, IsNil)
	c.Check(customers, DeepEquals, []Customer{{ID: 7, Name: "Fred"}})
	c.Check(params.Total, Equals, int64(42))
	c.Check(params.Visits, Equals, int64(11))
	c.Check(params.CustomerID, Equals, int64(7))
}
