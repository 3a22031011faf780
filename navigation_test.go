// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"time"

	. "gopkg.in/check.v1"
)

type NavigationSuite struct{}

var _ = Suite(&NavigationSuite{})

func (s *NavigationSuite) TestTupleKeyTimeZones(c *C) {
	utc := time.Date(2017, time.April, 12, 10, 30, 0, 500, time.UTC)
	east := utc.In(time.FixedZone("UTC+2", 2*60*60))
	c.Check(tupleKey([]any{int64(1), east}), Equals, tupleKey([]any{int64(1), utc}))
	c.Check(tupleKey([]any{utc.Add(time.Nanosecond)}), Not(Equals), tupleKey([]any{utc}))
}

func (s *NavigationSuite) TestTupleKeyIntegerWidths(c *C) {
	c.Check(tupleKey([]any{int32(1), "a"}), Equals, tupleKey([]any{int64(1), "a"}))
	c.Check(tupleKey([]any{uint8(7)}), Equals, tupleKey([]any{int64(7)}))
}

func (s *NavigationSuite) TestTupleKeyStringsExact(c *C) {
	c.Check(tupleKey([]any{"Fred"}), Not(Equals), tupleKey([]any{"fred"}))
	// The separator keeps ("a b", "c") apart from ("a", "b c").
	c.Check(tupleKey([]any{"a b", "c"}), Not(Equals), tupleKey([]any{"a", "b c"}))
}
