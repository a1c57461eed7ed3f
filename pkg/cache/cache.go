// Package cache implements the client-side entity cache the workspace core
// mutates optimistically. Entries are keyed by scope (a page, a page's block
// list, a database's rows) and carry a staleness flag instead of a TTL:
// realtime change events mark entries stale, and the next read reloads them.
//
// The cache enforces nothing about value types but demands copy-on-write
// from its callers: an optimistic updater receives the current value and
// must return a NEW value, never mutate the one it was given. The snapshot
// taken before the write keeps the old reference, which makes rollback an
// exact restore of the pre-write bytes.
package cache

import (
	"sync"

	"github.com/notewave/notewave/pkg/models"
)

// Key identifies one cached scope.
type Key string

// Key constructors. Every caller goes through these so a scope has exactly
// one spelling.

func PageKey(id models.PageID) Key        { return Key("page/" + id.String()) }
func BlocksKey(id models.PageID) Key      { return Key("blocks/" + id.String()) }
func ChildPagesKey(id models.PageID) Key  { return Key("childpages/" + id.String()) }
func CommentsKey(id models.PageID) Key    { return Key("comments/" + id.String()) }
func DatabaseKey(id models.PageID) Key    { return Key("database/" + id.String()) }
func PropertiesKey(id models.DatabaseID) Key { return Key("properties/" + id.String()) }
func RowsKey(id models.DatabaseID) Key    { return Key("rows/" + id.String()) }
func WorkspaceKey(id models.UserID) Key   { return Key("workspace/" + id.String()) }
func TrashKey(id models.UserID) Key       { return Key("trash/" + id.String()) }
func TeamSpacesKey(id models.UserID) Key  { return Key("teamspaces/" + id.String()) }
func TeamPagesKey(id models.TeamSpaceID) Key { return Key("teampages/" + id.String()) }
func NotificationsKey(id models.UserID) Key  { return Key("notifications/" + id.String()) }
func MeetingsKey() Key                       { return Key("meetings") }

type entry struct {
	value any
	stale bool
}

// Cache is a concurrency-safe map of scope key to cached value.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// Read returns the cached value for key. ok is false when the key is absent;
// stale reports whether an invalidation has landed since the value was put.
// Callers treat a stale hit as a miss that still has a value to render while
// the reload is in flight.
func (c *Cache) Read(key Key) (value any, ok bool, stale bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.value, true, e.stale
}

// Put stores a fresh value, clearing any staleness.
func (c *Cache) Put(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value}
}

// Snapshot captures an entry's exact state before an optimistic write, for
// rollback. It holds the old value by reference; the copy-on-write contract
// guarantees the updater did not touch it.
type Snapshot struct {
	key     Key
	value   any
	existed bool
	stale   bool
}

// Key returns the key the snapshot was taken from.
func (s Snapshot) Key() Key { return s.key }

// Value returns the pre-write value (nil if the entry did not exist).
func (s Snapshot) Value() any { return s.value }

// Existed reports whether the entry was present at snapshot time.
func (s Snapshot) Existed() bool { return s.existed }

// OptimisticWrite snapshots the entry, then replaces its value with
// update's result. update receives the current value (nil on a miss) and
// MUST return a new value without mutating its argument. The entry is
// marked fresh; if the write it fronts later fails, Rollback restores the
// snapshot exactly.
func (c *Cache) OptimisticWrite(key Key, update func(current any) any) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{key: key}
	if e, ok := c.entries[key]; ok {
		snap.value = e.value
		snap.existed = true
		snap.stale = e.stale
	}
	c.entries[key] = &entry{value: update(snap.value)}
	return snap
}

// Commit replaces the optimistic value with the server-confirmed one.
func (c *Cache) Commit(key Key, confirmed any) {
	c.Put(key, confirmed)
}

// Rollback restores the entry to its snapshotted state: the old value and
// staleness if it existed, absence if it did not.
func (c *Cache) Rollback(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !snap.existed {
		delete(c.entries, snap.key)
		return
	}
	c.entries[snap.key] = &entry{value: snap.value, stale: snap.stale}
}

// Invalidate marks entries stale without discarding their values; absent
// keys are ignored. Stale values keep rendering until the reload completes.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			e.stale = true
		}
	}
}

// Drop removes entries outright. Used when the underlying record is gone
// and a stale render would show deleted data.
func (c *Cache) Drop(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}
