// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"context"
	"reflect"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
	"github.com/canonical/sqlrecord/internal/command"
	"github.com/canonical/sqlrecord/internal/errs"
	"github.com/canonical/sqlrecord/internal/mapper"
	"github.com/canonical/sqlrecord/internal/schema"
)

// Query selects records of type T, a tagged struct or a pointer to one. A
// Query is compiled once and may be executed any number of times, each
// execution binding its own predicate and arguments.
type Query[T any] struct {
	db     *DB
	desc   *schema.Descriptor
	sel    *command.Select
	navs   []schema.Navigation
	closed atomic.Bool
}

type queryOptions struct {
	navigation bool
	names      []string
}

// QueryOption configures a Query.
type QueryOption func(*queryOptions)

// WithNavigation requests that the named navigation fields are populated
// after the records are read. With no names every navigation is populated.
func WithNavigation(names ...string) QueryOption {
	return func(o *queryOptions) {
		o.navigation = true
		o.names = append(o.names, names...)
	}
}

// NewQuery compiles a Query for T on db.
func NewQuery[T any](db *DB, opts ...QueryOption) (*Query[T], error) {
	if db == nil {
		return nil, errs.Usage("need DB, got nil")
	}
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	sel, desc, err := builders.selectFor(recordType[T](), db.Dialect())
	if err != nil {
		return nil, err
	}
	q := &Query[T]{db: db, desc: desc, sel: sel}
	if !o.navigation {
		return q, nil
	}

	if len(o.names) == 0 {
		q.navs = desc.Navigations
	}
	for _, name := range o.names {
		nav, ok := desc.Navigation(name)
		if !ok {
			return nil, errs.Schema(desc.Type.String(), "no navigation named %q", name)
		}
		q.navs = append(q.navs, nav)
	}
	// Compile the target selects now so schema errors surface here.
	for _, nav := range q.navs {
		// Composite keys are fetched with OR'ed equalities, which CQL has no
		// syntax for.
		if db.Dialect().Name() == dialect.CQL && len(nav.ForeignColumns) > 1 {
			return nil, errs.Configuration("dialect %s cannot select navigation %s with a composite key", dialect.CQL, nav.Property)
		}
		if _, _, err := builders.selectFor(nav.Target, db.Dialect()); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// MustQuery is the same as [NewQuery] except that it panics on error.
func MustQuery[T any](db *DB, opts ...QueryOption) *Query[T] {
	q, err := NewQuery[T](db, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

// QueryAll runs a one-off query for T on db.
func QueryAll[T any](ctx context.Context, db *DB, predicate string, args ...any) ([]T, error) {
	q, err := NewQuery[T](db)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	return q.Execute(ctx, predicate, args...)
}

// Execute returns the records matching predicate, a SQL boolean expression
// written with the dialect's placeholders (see [DB.Placeholder]) that are
// bound to args in order. An empty predicate selects every record. The
// result is never nil when err is nil.
func (q *Query[T]) Execute(ctx context.Context, predicate string, args ...any) ([]T, error) {
	if q.closed.Load() {
		return nil, closedError()
	}
	ctx = orBackground(ctx)

	cmd, err := q.command(predicate, args)
	if err != nil {
		return nil, err
	}
	cur, err := q.db.query(ctx, "query", cmd)
	if err != nil {
		return nil, err
	}
	records, err := mapper.Rows[T](cur, q.desc)
	if cerr := cur.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errs.Execution("query", err)
	}

	if len(q.navs) > 0 {
		if err := populate(ctx, q.db, q.desc, reflect.ValueOf(records), q.navs); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Pending is the result of [Query.ExecuteAsync].
type Pending[T any] struct {
	group   errgroup.Group
	records []T
}

// ExecuteAsync runs [Query.Execute] on a new goroutine.
func (q *Query[T]) ExecuteAsync(ctx context.Context, predicate string, args ...any) *Pending[T] {
	p := &Pending[T]{}
	p.group.Go(func() error {
		records, err := q.Execute(ctx, predicate, args...)
		p.records = records
		return err
	})
	return p
}

// Wait blocks until the query has finished and returns its result.
func (p *Pending[T]) Wait() ([]T, error) {
	if err := p.group.Wait(); err != nil {
		return nil, err
	}
	return p.records, nil
}

// Iter runs the query and returns an [Iterator] over its records.
// Navigations are not populated by an Iterator. [Iterator.Close] must be
// run once iteration is finished.
func (q *Query[T]) Iter(ctx context.Context, predicate string, args ...any) *Iterator[T] {
	if q.closed.Load() {
		return &Iterator[T]{err: closedError()}
	}
	cmd, err := q.command(predicate, args)
	if err != nil {
		return &Iterator[T]{err: err}
	}
	cur, err := q.db.query(orBackground(ctx), "query", cmd)
	if err != nil {
		return &Iterator[T]{err: err}
	}
	reader, err := mapper.New(q.desc).Reader(cur)
	if err != nil {
		cur.Close()
		return &Iterator[T]{err: errs.Execution("query", err)}
	}
	return &Iterator[T]{cur: cur, reader: reader}
}

// command binds args to the placeholders of predicate. The number of
// arguments must match the number of parameters the predicate refers to.
func (q *Query[T]) command(predicate string, args []any) (*driver.Command, error) {
	if n := command.Placeholders(predicate, q.db.Dialect()); n != len(args) {
		return nil, errs.Usage("predicate refers to %d parameters, got %d arguments", n, len(args))
	}
	return q.sel.Command(predicate, args...), nil
}

// Close releases the Query. Any later call fails with a [UsageError]
// wrapping [ErrClosed]. Close may be called more than once.
func (q *Query[T]) Close() error {
	q.closed.Store(true)
	return nil
}
