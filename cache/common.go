// Package cache implements the object store's optional in-memory
// memoization (spec §4.2: "implementations may memoise within a single
// operation" — no LRU guarantee is made to callers).
package cache

import (
	"github.com/golang/groupcache/lru"

	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/object"
)

// Size units for DefaultMaxSize.
const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// DefaultMaxSize is the default memoization budget (spec §4.2: "default 64MiB").
const DefaultMaxSize = 64 * MiByte

// Objects memoizes decoded objects by OID, evicting by total payload bytes
// rather than entry count. A miss always falls back to the store; a hit
// never changes the returned value's identity, so callers must not mutate
// what Get returns.
type Objects struct {
	maxSize int64
	size    int64
	lru     *lru.Cache
}

type entry struct {
	obj  object.Object
	size int64
}

// NewObjects returns an Objects cache with the given byte budget. A
// maxSize <= 0 uses DefaultMaxSize.
func NewObjects(maxSize int64) *Objects {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Objects{maxSize: maxSize}
	c.lru = &lru.Cache{OnEvicted: c.onEvicted}
	return c
}

func (c *Objects) onEvicted(key lru.Key, value interface{}) {
	c.size -= value.(entry).size
}

// Add memoizes obj under hash, sized by payloadSize (the decompressed
// on-disk payload length, not an in-memory estimate).
func (c *Objects) Add(hash plumbing.Hash, obj object.Object, payloadSize int64) {
	if payloadSize > c.maxSize {
		return
	}
	c.lru.Add(hash, entry{obj: obj, size: payloadSize})
	c.size += payloadSize
	for c.size > c.maxSize {
		c.lru.RemoveOldest()
	}
}

// Get returns the memoized object for hash, if present.
func (c *Objects) Get(hash plumbing.Hash) (object.Object, bool) {
	v, ok := c.lru.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(entry).obj, true
}

// Clear empties the cache.
func (c *Objects) Clear() {
	c.lru.Clear()
	c.size = 0
}
