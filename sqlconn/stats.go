// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlconn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
)

// QueryStats holds command execution statistics.
type QueryStats struct {
	TotalQueries atomic.Int64
	TotalExecs   atomic.Int64
	// TotalDuration is in nanoseconds.
	TotalDuration atomic.Int64
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset sets every counter to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average duration of a command.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called with every command slower than the threshold.
type SlowQueryHook func(ctx context.Context, cmd *driver.Command, duration time.Duration)

// StatsConn wraps a driver.Conn and records statistics about the commands
// run on it. The duration of a query covers the call returning the cursor,
// not the reading of its rows.
type StatsConn struct {
	conn          driver.Conn
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

var _ driver.Conn = (*StatsConn)(nil)

// StatsOption configures a StatsConn.
type StatsOption func(*StatsConn)

// WithSlowThreshold sets the duration above which a command is counted as
// slow. The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsConn) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets the callback run for slow commands.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsConn) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow commands as warnings on logger, or on the
// default logger if logger is nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, cmd *driver.Command, duration time.Duration) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.WarnContext(ctx, "slow query detected", "duration", duration, "query", cmd.Text, "args", cmd.Args())
	})
}

// NewStatsConn wraps conn with statistics collection.
func NewStatsConn(conn driver.Conn, opts ...StatsOption) *StatsConn {
	s := &StatsConn{
		conn:          conn,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the statistics collected so far.
func (s *StatsConn) QueryStats() *QueryStats {
	return s.stats
}

// SlowThreshold returns the current slow command threshold.
func (s *StatsConn) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow command threshold.
func (s *StatsConn) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

// Dialect returns the dialect of the wrapped connection.
func (s *StatsConn) Dialect() dialect.Provider {
	return s.conn.Dialect()
}

// Query runs cmd on the wrapped connection.
func (s *StatsConn) Query(ctx context.Context, cmd *driver.Command) (driver.Cursor, error) {
	start := time.Now()
	cur, err := s.conn.Query(ctx, cmd)
	s.record(ctx, cmd, start, err, true)
	return cur, err
}

// Exec runs cmd on the wrapped connection.
func (s *StatsConn) Exec(ctx context.Context, cmd *driver.Command) (driver.Result, error) {
	start := time.Now()
	res, err := s.conn.Exec(ctx, cmd)
	s.record(ctx, cmd, start, err, false)
	return res, err
}

func (s *StatsConn) record(ctx context.Context, cmd *driver.Command, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		s.stats.TotalQueries.Add(1)
	} else {
		s.stats.TotalExecs.Add(1)
	}
	s.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, cmd, duration)
		}
	}
}
