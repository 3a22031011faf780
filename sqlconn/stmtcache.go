// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlconn

import (
	"context"
	"database/sql"
	"sync"
)

// stmtCache caches the sql.Stmt prepared for each command text on one
// database. Command builders produce the same text for every call, so the
// statements of a record type are prepared once.
//
// The mutex must be locked when accessing stmts.
type stmtCache struct {
	stmts map[string]*sql.Stmt
	mutex sync.RWMutex
}

func newStmtCache() *stmtCache {
	return &stmtCache{stmts: map[string]*sql.Stmt{}}
}

// prepareSubstrate is an object that queries can be prepared on, e.g. a sql.DB
// or sql.Conn.
type prepareSubstrate interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
}

// prepare returns the statement for text, preparing it on ps if it is not
// cached yet.
func (sc *stmtCache) prepare(ctx context.Context, ps prepareSubstrate, text string) (*sql.Stmt, error) {
	sc.mutex.RLock()
	stmt, ok := sc.stmts[text]
	sc.mutex.RUnlock()
	if ok {
		return stmt, nil
	}

	stmt, err := ps.PrepareContext(ctx, text)
	if err != nil {
		return nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if alt, ok := sc.stmts[text]; ok {
		stmt.Close()
		return alt, nil
	}
	sc.stmts[text] = stmt
	return stmt, nil
}

// lookup returns the statement for text if it has been prepared.
func (sc *stmtCache) lookup(text string) (*sql.Stmt, bool) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	stmt, ok := sc.stmts[text]
	return stmt, ok
}

// closeAll closes and forgets every statement.
func (sc *stmtCache) closeAll() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	for text, stmt := range sc.stmts {
		stmt.Close()
		delete(sc.stmts, text)
	}
}

func (sc *stmtCache) len() int {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return len(sc.stmts)
}
