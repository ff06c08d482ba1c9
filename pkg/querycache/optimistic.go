package querycache

import "context"

// UpdateInList applies patch to a copy of the item with the given id in
// the list under key. Other items keep their identity. It reports false
// and leaves the cache alone when the list or the item is not cached.
func UpdateInList[T any, P interface {
	*T
	Identified
}](c *Cache, key, id string, patch func(*T)) (Snapshot, bool) {
	return c.swap(key, func(v any, ok bool) (any, bool) {
		list, isList := v.([]*T)
		if !ok || !isList {
			return nil, false
		}
		i := indexOf[T, P](list, id)
		if i < 0 {
			return nil, false
		}

		item := *list[i]
		patch(&item)

		out := make([]*T, len(list))
		copy(out, list)
		out[i] = &item
		return out, true
	})
}

// UpdateItem applies patch to a copy of the single item under key.
func UpdateItem[T any](c *Cache, key string, patch func(*T)) (Snapshot, bool) {
	return c.swap(key, func(v any, ok bool) (any, bool) {
		cur, isItem := v.(*T)
		if !ok || !isItem || cur == nil {
			return nil, false
		}
		item := *cur
		patch(&item)
		return &item, true
	})
}

// RemoveFromList drops the item with the given id, preserving the order
// of the rest.
func RemoveFromList[T any, P interface {
	*T
	Identified
}](c *Cache, key, id string) (Snapshot, bool) {
	return c.swap(key, func(v any, ok bool) (any, bool) {
		list, isList := v.([]*T)
		if !ok || !isList {
			return nil, false
		}
		i := indexOf[T, P](list, id)
		if i < 0 {
			return nil, false
		}

		out := make([]*T, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		return out, true
	})
}

// PrependToList puts item at the front of the list under key, dropping
// any entry with the same id first. An uncached list stays uncached.
func PrependToList[T any, P interface {
	*T
	Identified
}](c *Cache, key string, item *T) (Snapshot, bool) {
	id := P(item).CacheID()
	return c.swap(key, func(v any, ok bool) (any, bool) {
		list, isList := v.([]*T)
		if !ok || !isList {
			return nil, false
		}

		out := make([]*T, 0, len(list)+1)
		out = append(out, item)
		for _, existing := range list {
			if P(existing).CacheID() != id {
				out = append(out, existing)
			}
		}
		return out, true
	})
}

func indexOf[T any, P interface {
	*T
	Identified
}](list []*T, id string) int {
	for i, item := range list {
		if item != nil && P(item).CacheID() == id {
			return i
		}
	}
	return -1
}

// Mutation describes one optimistic write.
type Mutation[R any] struct {
	// OnMutate applies the speculative edits and returns their snapshots.
	OnMutate func(c *Cache) []Snapshot
	// Request performs the write against the server.
	Request func(ctx context.Context) (R, error)
	// Invalidate lists extra key prefixes to mark stale once the request
	// settles.
	Invalidate []string
}

// Mutate runs m: speculative edits first, then the request. On failure
// the snapshots are restored newest first. Either way every touched key
// and every prefix in m.Invalidate is marked stale afterwards so the next
// read fetches server state.
func Mutate[R any](ctx context.Context, c *Cache, m Mutation[R]) (R, error) {
	var snaps []Snapshot
	if m.OnMutate != nil {
		snaps = m.OnMutate(c)
	}

	res, err := m.Request(ctx)
	if err != nil {
		for i := len(snaps) - 1; i >= 0; i-- {
			c.Restore(snaps[i])
		}
	}

	for _, s := range snaps {
		c.MarkStale(s.Key)
	}
	for _, prefix := range m.Invalidate {
		c.Invalidate(prefix)
	}
	return res, err
}

// Collect gathers the snapshots of helpers that actually changed the
// cache.
func Collect(pairs ...SnapshotResult) []Snapshot {
	out := make([]Snapshot, 0, len(pairs))
	for _, p := range pairs {
		if p.Changed {
			out = append(out, p.Snapshot)
		}
	}
	return out
}

// SnapshotResult pairs a helper's return values for Collect.
type SnapshotResult struct {
	Snapshot Snapshot
	Changed  bool
}

// Track wraps a helper's return values for Collect.
func Track(s Snapshot, changed bool) SnapshotResult {
	return SnapshotResult{Snapshot: s, Changed: changed}
}
