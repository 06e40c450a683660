package cache

import (
	"context"

	"github.com/jmgilman/go/errors"

	"github.com/krisalay/keyed-cache/api"
	"github.com/krisalay/keyed-cache/engine"
	"github.com/krisalay/keyed-cache/shard"
	"github.com/krisalay/keyed-cache/types"
)

var _ api.Cache[string, any] = (*KeyedCache[string, any])(nil)

/*
KeyedCache is the main cache implementation.
This struct is the orchestrator that connects:
- shards (storage + in-flight loads)
- the engine (validation, loading, metrics, logging)
*/
type KeyedCache[K comparable, V any] struct {
	// shards are the actual storage units. Each shard is an independent mini-cache.
	shards []*shard.Shard[K, V]

	// engine contains the "rules" of the cache.
	engine *engine.CacheEngine[K, V]

	// selector decides which shard a key should go to.
	selector shard.Selector

	metrics types.Metrics
}

// New creates an empty KeyedCache.
func New[K comparable, V any](opts ...Option[K]) *KeyedCache[K, V] {
	o := buildOptions(opts)

	s := make([]*shard.Shard[K, V], o.shards)
	for i := range s {
		s[i] = shard.NewShard[K, V]()
	}

	eng := engine.NewCacheEngine[K, V](o.name, o.validate, o.encode, o.metrics, o.logger)
	return &KeyedCache[K, V]{
		shards:   s,
		engine:   eng,
		selector: o.selector,
		metrics:  eng.Metrics,
	}
}

// Name returns the name the cache was created with.
func (c *KeyedCache[K, V]) Name() string {
	return c.engine.Name
}

func (c *KeyedCache[K, V]) shardFor(encoded string) *shard.Shard[K, V] {
	return c.shards[c.selector.Index(encoded, len(c.shards))]
}

/*
GetOrLoad returns the value for key, calling loader on a miss.

Callers that miss while a load for the same key is running wait for it and
share its result, including its error. That load runs with the first
caller's ctx and loader. When the first caller's ctx ends and the loader
gives up because of it, the callers still waiting start over with their own
ctx instead of sharing the cancellation.
*/
func (c *KeyedCache[K, V]) GetOrLoad(ctx context.Context, key K, loader types.Loader[K, V]) (V, error) {
	var zero V

	if loader == nil {
		return zero, errors.WithContext(
			errors.New(errors.CodeInvalidInput, "loader is nil"), "cache", c.engine.Name)
	}
	if err := c.engine.CheckKey(key); err != nil {
		return zero, err
	}

	encoded := c.engine.Encode(key)
	sh := c.shardFor(encoded)

	// Lock-free fast path
	if ent, ok := sh.Store.Get(key); ok {
		c.engine.OnHit(key)
		return ent.Value, nil
	}

	// Cache miss
	c.engine.OnMiss(key)

	for {
		/*
			singleflight ensures that:
			- If 100 goroutines request the same missing key,
			  only ONE of them runs the loader.
			- Others wait for the result, or give up when their ctx is done.
		*/
		led := false
		ch := sh.Do(encoded, func() (any, error) {
			led = true

			// A load may have finished between our miss and getting here.
			if ent, ok := sh.Store.Get(key); ok {
				return ent, nil
			}

			t := sh.Begin(key)
			defer sh.Abort(key, t)

			v, err := c.engine.Load(ctx, key, loader)
			if err != nil {
				return nil, err
			}
			ent, _ := sh.Commit(key, t, v)
			return ent, nil
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				// led is only written before the result is sent
				if !led && ctx.Err() == nil && IsCanceled(res.Err) {
					continue
				}
				return zero, res.Err
			}
			return res.Val.(*types.Entry[K, V]).Value, nil
		case <-ctx.Done():
			return zero, c.engine.Canceled(key, ctx.Err())
		}
	}
}

// Get is GetOrLoad with a plain function as the loader.
func (c *KeyedCache[K, V]) Get(ctx context.Context, key K, fn func(context.Context, K) (V, error)) (V, error) {
	if fn == nil {
		return c.GetOrLoad(ctx, key, nil)
	}
	return c.GetOrLoad(ctx, key, types.LoaderFunc[K, V](fn))
}

/*
Invalidate deletes key immediately. A load for key that is still running
will hand its value to the callers already waiting on it but will not store
it; callers arriving after Invalidate returns run a new load.
*/
func (c *KeyedCache[K, V]) Invalidate(key K) {
	if any(key) == nil {
		return
	}
	encoded := c.engine.Encode(key)
	existed := c.shardFor(encoded).Remove(key, encoded)
	c.engine.OnInvalidate(key, existed)
}

/*
Clear deletes every entry. Each shard is cleared under its own lock, so a
concurrent GetOrLoad on a shard that was already cleared may repopulate it.
Loads running when Clear is called are not stored and are not joined by
later callers.
*/
func (c *KeyedCache[K, V]) Clear() {
	removed := 0
	for _, sh := range c.shards {
		removed += sh.Clear()
	}
	c.engine.OnClear(removed)
}

func (c *KeyedCache[K, V]) Contains(key K) bool {
	if any(key) == nil {
		return false
	}
	_, ok := c.shardFor(c.engine.Encode(key)).Store.Get(key)
	return ok
}

func (c *KeyedCache[K, V]) Size() int {
	n := 0
	for _, sh := range c.shards {
		n += sh.Store.Size()
	}
	return n
}

// Pending returns the number of loads currently running.
func (c *KeyedCache[K, V]) Pending() int {
	n := 0
	for _, sh := range c.shards {
		n += sh.Pending()
	}
	return n
}

// Stats returns counter totals when the cache was built with a
// *types.Counters metrics sink, and false otherwise.
func (c *KeyedCache[K, V]) Stats() (types.Snapshot, bool) {
	ctr, ok := c.metrics.(*types.Counters)
	if !ok {
		return types.Snapshot{}, false
	}
	return ctr.Snapshot(), true
}

// IsLoaderFailure reports whether err came from a failed loader.
func IsLoaderFailure(err error) bool {
	return engine.IsLoaderFailure(err)
}

// IsCanceled reports whether err means the caller's context ended while
// waiting for a load.
func IsCanceled(err error) bool {
	return engine.IsCanceled(err)
}
