// Package querycache holds client-side query results and rewrites them
// optimistically while a mutation is in flight.
//
// Values are stored by key. Lists are stored as []*T and single items as
// *T. Helpers never modify a cached value in place: they copy the list,
// copy the affected item, and write the copies back, so a caller holding
// the old value still sees the old state. Every helper returns a Snapshot
// that restores the slot it touched.
package querycache

import (
	"strings"
	"sync"
)

// Identified is implemented by cacheable entities.
type Identified interface {
	CacheID() string
}

// Snapshot is the state of one cache slot before a change.
type Snapshot struct {
	Key     string
	Value   any
	Present bool
}

type entry struct {
	value any
	stale bool
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the cached value, stale or not.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Fresh returns the cached value only when it has not been invalidated.
func (c *Cache) Fresh(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.stale {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Invalidate marks every key starting with prefix as stale and reports
// how many were marked. Stale values stay readable through Get until
// the next fetch replaces them.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			e.stale = true
			c.entries[k] = e
			n++
		}
	}
	return n
}

// MarkStale marks the single key stale and reports whether it was cached.
func (c *Cache) MarkStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.stale = true
	c.entries[key] = e
	return true
}

func (c *Cache) Snapshot(key string) Snapshot {
	v, ok := c.Get(key)
	return Snapshot{Key: key, Value: v, Present: ok}
}

// Restore puts a slot back to the snapshotted value.
func (c *Cache) Restore(s Snapshot) {
	if s.Present {
		c.Set(s.Key, s.Value)
		return
	}
	c.Delete(s.Key)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// swap runs fn on the current value of key under the write lock. When fn
// reports a change its result replaces the value.
func (c *Cache) swap(key string, fn func(v any, ok bool) (any, bool)) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, present := c.entries[key]
	next, changed := fn(old.value, present)
	if !changed {
		return Snapshot{}, false
	}
	c.entries[key] = entry{value: next}
	return Snapshot{Key: key, Value: old.value, Present: present}, true
}
