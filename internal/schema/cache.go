// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// cache holds generated values per type. Entries are never removed or
// replaced. Concurrent misses for the same type share one generation.
type cache[V any] struct {
	mutex   sync.RWMutex
	entries map[reflect.Type]V
	group   singleflight.Group
}

func newCache[V any]() *cache[V] {
	return &cache[V]{entries: make(map[reflect.Type]V)}
}

// get returns the cached value for t, generating and caching it as
// required. Errors are not cached.
func (c *cache[V]) get(t reflect.Type, generate func(reflect.Type) (V, error)) (V, error) {
	c.mutex.RLock()
	v, found := c.entries[t]
	c.mutex.RUnlock()
	if found {
		return v, nil
	}

	// The address of the runtime type is unique, unlike its name.
	res, err, _ := c.group.Do(fmt.Sprintf("%p", t), func() (any, error) {
		c.mutex.RLock()
		v, found := c.entries[t]
		c.mutex.RUnlock()
		if found {
			return v, nil
		}

		v, err := generate(t)
		if err != nil {
			return nil, err
		}

		c.mutex.Lock()
		c.entries[t] = v
		c.mutex.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *cache[V]) len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}
