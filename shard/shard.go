package shard

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krisalay/keyed-cache/types"
)

/*
This file defines what a "Shard" is. A shard is a small, independent piece of the cache.
Instead of having: One big cache and one big lock
We split the cache into many shards. Each shard:
- Holds some portion of the data
- Has its own lock for writes
- Deduplicates its own in-flight loads

Unrelated keys in different shards never wait on each other.
*/

// Ticket marks one in-flight load. Invalidate and Clear mark the tickets
// they overlap as stale so the load result is handed back but not stored.
type Ticket struct {
	stale bool
}

type Shard[K comparable, V any] struct {

	// Store holds the actual key → entry data for this shard.
	// It is a copy-on-write store that allows lock-free reads.
	Store Store[K, V]

	// flight makes concurrent misses for one key share a single loader call.
	// Its keys are the encoded form of K prefixed with gen.
	flight singleflight.Group

	// mu serializes every write to Store and every access to loads and gen.
	// Reads of Store never take it.
	mu    sync.Mutex
	loads map[K]*Ticket

	// gen moves on every Clear so callers arriving afterwards never join a
	// call that started before it.
	gen uint64
}

func NewShard[K comparable, V any]() *Shard[K, V] {
	return &Shard[K, V]{
		Store: NewCOWStore[K, V](),
		loads: make(map[K]*Ticket),
	}
}

func (s *Shard[K, V]) flightKey(encoded string) string {
	return strconv.FormatUint(s.gen, 10) + ":" + encoded
}

// Do joins the in-flight call for encoded, or starts fn as that call.
func (s *Shard[K, V]) Do(encoded string, fn func() (any, error)) <-chan singleflight.Result {
	s.mu.Lock()
	key := s.flightKey(encoded)
	s.mu.Unlock()
	return s.flight.DoChan(key, fn)
}

// Begin registers an in-flight load for key. Callers must pair it with
// Commit or Abort.
func (s *Shard[K, V]) Begin(key K) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Ticket{}
	s.loads[key] = t
	return t
}

// Abort forgets a load that produced nothing. Safe after Commit.
func (s *Shard[K, V]) Abort(key K, t *Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loads[key] == t {
		delete(s.loads, key)
	}
}

/*
Commit is the check-then-insert step of a load.

- If the ticket went stale, the value is returned but not stored
- If an entry already exists, that entry wins and is returned
- Otherwise a fresh entry is stored and returned

The second return value reports whether the returned entry is in the store.
*/
func (s *Shard[K, V]) Commit(key K, t *Ticket, value V) (*types.Entry[K, V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loads[key] == t {
		delete(s.loads, key)
	}

	ent := &types.Entry[K, V]{Key: key, Value: value, LoadedAt: time.Now()}
	if t.stale {
		return ent, false
	}
	if existing, ok := s.Store.Get(key); ok {
		return existing, true
	}
	s.Store.Put(key, ent)
	return ent, true
}

/*
Remove deletes key and stales its in-flight load, if any. The load keeps
running for the callers already waiting on it, but later callers start a
new one.
*/
func (s *Shard[K, V]) Remove(key K, encoded string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.loads[key]; ok {
		t.stale = true
		delete(s.loads, key)
	}
	s.flight.Forget(s.flightKey(encoded))
	return s.Store.Delete(key)
}

// Clear deletes every entry and stales every in-flight load. Later callers
// never join a load that was running when Clear was called.
func (s *Shard[K, V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, t := range s.loads {
		t.stale = true
		delete(s.loads, k)
	}
	s.gen++
	return s.Store.Clear()
}

// Pending returns the number of loads currently in flight.
func (s *Shard[K, V]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loads)
}
