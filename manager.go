package cache

import (
	"sort"
	"sync"

	"github.com/jmgilman/go/errors"
)

// ErrUnknownCache is returned by a static Manager for names it was not built with.
var ErrUnknownCache = errors.New(errors.CodeNotFound, "unknown cache")

/*
Manager owns a set of named caches that share one configuration.

A Manager built with names is static: only those caches exist. A Manager
built without names creates a cache the first time a name is asked for.
*/
type Manager[K comparable, V any] struct {
	mu      sync.RWMutex
	caches  map[string]*KeyedCache[K, V]
	dynamic bool
	opts    []Option[K]
}

// NewManager builds a Manager. opts are applied to every cache, followed by
// WithName for that cache.
func NewManager[K comparable, V any](names []string, opts ...Option[K]) *Manager[K, V] {
	m := &Manager[K, V]{
		caches:  make(map[string]*KeyedCache[K, V], len(names)),
		dynamic: len(names) == 0,
		opts:    opts,
	}
	for _, name := range names {
		m.caches[name] = m.newCache(name)
	}
	return m
}

func (m *Manager[K, V]) newCache(name string) *KeyedCache[K, V] {
	opts := make([]Option[K], 0, len(m.opts)+1)
	opts = append(opts, m.opts...)
	opts = append(opts, WithName[K](name))
	return New[K, V](opts...)
}

// Cache returns the cache called name.
func (m *Manager[K, V]) Cache(name string) (*KeyedCache[K, V], error) {
	m.mu.RLock()
	c, ok := m.caches[name]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	if !m.dynamic {
		return nil, errors.WrapWithContext(ErrUnknownCache, errors.CodeNotFound, "unknown cache", map[string]interface{}{
			"cache": name,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.caches[name]; ok {
		return c, nil
	}
	c = m.newCache(name)
	m.caches[name] = c
	return c, nil
}

// Names returns the cache names in sorted order.
func (m *Manager[K, V]) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearAll clears every cache the Manager owns.
func (m *Manager[K, V]) ClearAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.caches {
		c.Clear()
	}
}
