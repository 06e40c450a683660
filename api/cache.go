package api

import (
	"context"

	"github.com/krisalay/keyed-cache/types"
)

/*
Cache defines the PUBLIC API of the keyed cache.
This is a contract that guarantees certain behaviors, without exposing internals.
Sharding, in-flight deduplication, logging and metrics are hidden behind this interface.
*/
type Cache[K comparable, V any] interface {

	/*
		GetOrLoad returns the value stored for key, loading it on a miss.

		BEHAVIOR:
		-------------------
		1. If the key is in the cache:
		   - Return the stored value; the loader is NOT called

		2. If the key is NOT in the cache:
		   - Call loader.Load(ctx, key) exactly once
		   - Store the result as a new entry
		   - Return it

		3. If the loader fails:
		   - Nothing is stored, the cache looks as if the call never happened
		   - The error is returned; the next call for the key calls the loader again

		Concurrent misses for the same key share one loader call.
	*/
	GetOrLoad(ctx context.Context, key K, loader types.Loader[K, V]) (V, error)

	/*
		Invalidate removes the entry for key.

		- The next GetOrLoad for key calls the loader again
		- Other keys are not affected
		- Removing a key that is not cached is a no-op
	*/
	Invalidate(key K)

	/*
		Clear removes every entry. The cache stays usable.

		USE CASES:
		----------
		- Resetting state between independent sessions
		- Tests setup / cleanup
	*/
	Clear()

	// Contains reports whether key currently has an entry. Diagnostics only.
	Contains(key K) bool

	// Size returns the number of entries. Diagnostics only.
	Size() int
}
