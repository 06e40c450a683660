package shard

import (
	"sync/atomic"

	"github.com/krisalay/keyed-cache/types"
)

/*
This file defines how data is actually stored inside a shard. This is NOT a normal map.
- Reads should be very fast
- Reads should NOT require locks
- Writes are less frequent and can afford extra work

To achieve this, we use a technique called: "Copy-On-Write" (COW)
*/

// Store is the interface used by a shard to store and retrieve cache entries.
// Writers must be serialized by the caller; readers need no locking.
type Store[K comparable, V any] interface {

	// Get retrieves an entry by key.
	Get(K) (*types.Entry[K, V], bool)

	// Put inserts or replaces an entry.
	Put(K, *types.Entry[K, V])

	// Delete removes an entry and reports whether it was present.
	Delete(K) bool

	// Clear removes every entry and returns how many there were.
	Clear() int

	// Size returns how many entries are stored.
	Size() int
}

/*
cowStore is a Copy-On-Write implementation of Store.

- Readers always see an immutable snapshot
- Writers create a NEW copy of the map
- The new map replaces the old one atomically
*/
type cowStore[K comparable, V any] struct {
	data atomic.Pointer[map[K]*types.Entry[K, V]]
}

// NewCOWStore returns an empty copy-on-write store.
func NewCOWStore[K comparable, V any]() Store[K, V] {
	s := &cowStore[K, V]{}
	m := make(map[K]*types.Entry[K, V])
	s.data.Store(&m)
	return s
}

func (s *cowStore[K, V]) snapshot() map[K]*types.Entry[K, V] {
	return *s.data.Load()
}

func (s *cowStore[K, V]) Get(key K) (*types.Entry[K, V], bool) {
	ent, ok := s.snapshot()[key]
	return ent, ok
}

/*
Put inserts or updates an entry in the store. This is where copy-on-write happens.

1. Load the current map
2. Create a NEW map and copy all existing entries
3. Add the new entry
4. Atomically replace the old map
*/
func (s *cowStore[K, V]) Put(key K, ent *types.Entry[K, V]) {
	old := s.snapshot()
	n := make(map[K]*types.Entry[K, V], len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent
	s.data.Store(&n)
}

func (s *cowStore[K, V]) Delete(key K) bool {
	old := s.snapshot()
	if _, ok := old[key]; !ok {
		return false
	}
	n := make(map[K]*types.Entry[K, V], len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}
	s.data.Store(&n)
	return true
}

func (s *cowStore[K, V]) Clear() int {
	n := make(map[K]*types.Entry[K, V])
	old := s.data.Swap(&n)
	return len(*old)
}

func (s *cowStore[K, V]) Size() int {
	return len(s.snapshot())
}
