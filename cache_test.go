// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"reflect"
	"sync"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqlrecord/dialect"
)

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

type cachedWidget struct {
	ID   int64  `db:"id,pk,identity"`
	Name string `db:"name"`
}

type cachedGadget struct {
	Serial string `db:"serial,pk"`
}

type renameWidgetParams struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func (s *CacheSuite) TestSelectShared(c *C) {
	t := reflect.TypeOf(cachedWidget{})
	sqlite := dialect.MustGet(dialect.SQLite)

	first, desc, err := builders.selectFor(t, sqlite)
	c.Assert(err, IsNil)
	c.Check(desc.Table, Equals, "cached_widgets")
	second, _, err := builders.selectFor(reflect.PointerTo(t), sqlite)
	c.Assert(err, IsNil)
	c.Check(second, Equals, first)

	postgres, _, err := builders.selectFor(t, dialect.MustGet(dialect.Postgres))
	c.Assert(err, IsNil)
	c.Check(postgres, Not(Equals), first)
	c.Check(postgres.Base(), Equals, `SELECT "id", "name" FROM "cached_widgets"`)
}

func (s *CacheSuite) TestBuildersCounted(c *C) {
	t := reflect.TypeOf(cachedGadget{})
	mysql := dialect.MustGet(dialect.MySQL)
	selects, inserts, updates, deletes, procedures := builders.size()

	_, err := builders.insertFor(t, mysql)
	c.Assert(err, IsNil)
	_, err = builders.insertFor(t, mysql)
	c.Assert(err, IsNil)
	_, err = builders.deleteFor(t, mysql)
	c.Assert(err, IsNil)
	_, _, err = builders.procedureFor(reflect.TypeOf(renameWidgetParams{}), mysql)
	c.Assert(err, IsNil)

	s2, i2, u2, d2, p2 := builders.size()
	c.Check(s2, Equals, selects)
	c.Check(i2, Equals, inserts+1)
	c.Check(u2, Equals, updates)
	c.Check(d2, Equals, deletes+1)
	c.Check(p2, Equals, procedures+1)
}

func (s *CacheSuite) TestErrorsNotCached(c *C) {
	// cachedGadget has nothing to update outside its key.
	t := reflect.TypeOf(cachedGadget{})
	_, _, updates, _, _ := builders.size()
	for i := 0; i < 2; i++ {
		_, err := builders.updateFor(t, dialect.MustGet(dialect.TSQL))
		c.Check(err, ErrorMatches, ".*no columns to update outside the primary key")
	}
	_, _, after, _, _ := builders.size()
	c.Check(after, Equals, updates)
}

func (s *CacheSuite) TestConcurrentLookup(c *C) {
	type concurrentRecord struct {
		ID int64 `db:"id,pk"`
	}
	t := reflect.TypeOf(concurrentRecord{})
	cql := dialect.MustGet(dialect.CQL)

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sel, _, err := builders.selectFor(t, cql)
			c.Check(err, IsNil)
			results[i] = sel
		}()
	}
	wg.Wait()
	for _, r := range results[1:] {
		c.Check(r, Equals, results[0])
	}
}
