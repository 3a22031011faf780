// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/mapper"
)

// Iterator is used to iterate over the records of a query.
type Iterator[T any] struct {
	cur     driver.Cursor
	reader  *mapper.RowReader
	err     error
	started bool
	hasRow  bool
}

// Next prepares the next record for [Iterator.Get]. If an error occurs
// during iteration it will be returned with [Iterator.Close].
func (iter *Iterator[T]) Next() bool {
	iter.started = true
	if iter.err != nil || iter.cur == nil {
		iter.hasRow = false
		return false
	}
	iter.hasRow = iter.cur.Next()
	return iter.hasRow
}

// Get decodes the record prepared by the previous [Iterator.Next] call.
func (iter *Iterator[T]) Get() (T, error) {
	var zero T
	if iter.err != nil {
		return zero, iter.err
	}
	if iter.cur == nil {
		return zero, closedError()
	}
	if !iter.started {
		return zero, errs.Usage("cannot call Get before Next")
	}
	if !iter.hasRow {
		return zero, errs.Usage("iteration ended")
	}
	record, err := iter.reader.Read()
	if err != nil {
		return zero, errs.Execution("query", err)
	}
	return recordAs[T](record), nil
}

// Close finishes the iteration and releases the cursor, even part way
// through. It returns any error encountered. Close can be called multiple
// times and the same error will be returned.
func (iter *Iterator[T]) Close() error {
	iter.started = true
	iter.hasRow = false
	if iter.cur == nil {
		return iter.err
	}
	err := iter.cur.Err()
	if cerr := iter.cur.Close(); err == nil {
		err = cerr
	}
	iter.cur = nil
	if err != nil {
		iter.err = errs.Execution("query", err)
	}
	return iter.err
}
