// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlrecord

import (
	"reflect"
	"sync"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/internal/command"
	"github.com/canonical/sqlrecord/internal/schema"
)

// cacheKey identifies the builders of one record type for one dialect.
type cacheKey struct {
	typ      reflect.Type
	provider reflect.Type
	dialect  string
}

func keyFor(t reflect.Type, p dialect.Provider) cacheKey {
	return cacheKey{typ: t, provider: reflect.TypeOf(p), dialect: p.Name()}
}

// builderCache holds the command builders compiled for each record type and
// dialect. Builders are immutable, so entries are shared by every DB and
// Query and are never removed.
//
// The mutex must be locked when accessing any of the maps.
type builderCache struct {
	selects    map[cacheKey]*command.Select
	inserts    map[cacheKey]*command.Insert
	updates    map[cacheKey]*command.Update
	deletes    map[cacheKey]*command.Delete
	procedures map[cacheKey]*command.Procedure
	mutex      sync.RWMutex
}

var once sync.Once
var singleBuilderCache *builderCache

// newBuilderCache returns the single instance of the builder cache.
func newBuilderCache() *builderCache {
	once.Do(func() {
		singleBuilderCache = &builderCache{
			selects:    map[cacheKey]*command.Select{},
			inserts:    map[cacheKey]*command.Insert{},
			updates:    map[cacheKey]*command.Update{},
			deletes:    map[cacheKey]*command.Delete{},
			procedures: map[cacheKey]*command.Procedure{},
		}
	})
	return singleBuilderCache
}

var builders = newBuilderCache()

// lookup returns the builder stored under key in m, building and storing it
// if it is missing.
func lookup[B any](bc *builderCache, m map[cacheKey]B, key cacheKey, build func() (B, error)) (B, error) {
	bc.mutex.RLock()
	b, ok := m[key]
	bc.mutex.RUnlock()
	if ok {
		return b, nil
	}

	b, err := build()
	if err != nil {
		return b, err
	}

	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	// Check if a builder has been inserted by someone else since we last
	// checked.
	if alt, ok := m[key]; ok {
		return alt, nil
	}
	m[key] = b
	return b, nil
}

func (bc *builderCache) selectFor(t reflect.Type, p dialect.Provider) (*command.Select, *schema.Descriptor, error) {
	desc, err := schema.Describe(t)
	if err != nil {
		return nil, nil, err
	}
	sel, err := lookup(bc, bc.selects, keyFor(desc.Type, p), func() (*command.Select, error) {
		return command.NewSelect(desc, p), nil
	})
	return sel, desc, err
}

func (bc *builderCache) insertFor(t reflect.Type, p dialect.Provider) (*command.Insert, error) {
	desc, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	return lookup(bc, bc.inserts, keyFor(desc.Type, p), func() (*command.Insert, error) {
		return command.NewInsert(desc, p)
	})
}

func (bc *builderCache) updateFor(t reflect.Type, p dialect.Provider) (*command.Update, error) {
	desc, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	return lookup(bc, bc.updates, keyFor(desc.Type, p), func() (*command.Update, error) {
		return command.NewUpdate(desc, p)
	})
}

func (bc *builderCache) deleteFor(t reflect.Type, p dialect.Provider) (*command.Delete, error) {
	desc, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	return lookup(bc, bc.deletes, keyFor(desc.Type, p), func() (*command.Delete, error) {
		return command.NewDelete(desc, p)
	})
}

func (bc *builderCache) procedureFor(t reflect.Type, p dialect.Provider) (*command.Procedure, *schema.Procedure, error) {
	proc, err := schema.DescribeProcedure(t)
	if err != nil {
		return nil, nil, err
	}
	b, err := lookup(bc, bc.procedures, keyFor(proc.Type, p), func() (*command.Procedure, error) {
		return command.NewProcedure(proc, p)
	})
	return b, proc, err
}

// size returns the number of cached builders of each kind.
func (bc *builderCache) size() (selects, inserts, updates, deletes, procedures int) {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return len(bc.selects), len(bc.inserts), len(bc.updates), len(bc.deletes), len(bc.procedures)
}
