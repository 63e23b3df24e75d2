// Package cache implements the in-memory response cache for proxied
// fetches. Entries expire after a fixed TTL and the entry count is
// bounded by LRU eviction.
package cache

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is a fully buffered upstream response. Entries are read-only
// once stored.
type Entry struct {
	Body       []byte
	Header     http.Header
	StatusCode int
}

// Cache maps target URLs to previously fetched responses. It is safe
// for concurrent use from all in-flight requests. A disabled cache
// reports every lookup as a miss and drops every store.
type Cache struct {
	lru *expirable.LRU[string, Entry]
}

// New creates a Cache holding at most maxEntries entries, each expiring
// ttl after insertion. A ttl of zero or less disables caching entirely.
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		return &Cache{}
	}
	return &Cache{lru: expirable.NewLRU[string, Entry](maxEntries, nil, ttl)}
}

// Key derives the cache key for a resolved target URL. Two requests
// resolving to the same target URL always share a cache slot.
func Key(target string) string {
	return "proxy:" + target
}

// Enabled reports whether the cache stores anything at all.
func (c *Cache) Enabled() bool {
	return c != nil && c.lru != nil
}

// Get returns the unexpired entry for key, if present.
func (c *Cache) Get(key string) (Entry, bool) {
	if !c.Enabled() {
		return Entry{}, false
	}
	return c.lru.Get(key)
}

// Put stores an entry under key, evicting the least recently used entry
// when the cache is full. On a disabled cache it is a no-op.
func (c *Cache) Put(key string, entry Entry) {
	if !c.Enabled() {
		return
	}
	c.lru.Add(key, entry)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.lru.Len()
}
