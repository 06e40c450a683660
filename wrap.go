package cache

import (
	"context"

	"github.com/krisalay/keyed-cache/types"
)

/*
Wrap turns an accessor into its cached form.

	find := func(ctx context.Context, id int64) (*Book, error) { ... }
	cachedFind := cache.Wrap(c, find)

cachedFind goes through c; calling find directly always recomputes. A nil
fn yields an accessor that fails every call the way GetOrLoad does for a
nil loader.
*/
func Wrap[K comparable, V any](c *KeyedCache[K, V], fn func(context.Context, K) (V, error)) func(context.Context, K) (V, error) {
	var loader types.Loader[K, V]
	if fn != nil {
		loader = types.LoaderFunc[K, V](fn)
	}
	return func(ctx context.Context, key K) (V, error) {
		return c.GetOrLoad(ctx, key, loader)
	}
}
