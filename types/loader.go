package types

import (
	"context"

	"github.com/jmgilman/go/errors"
)

// ErrInvalidKey is returned when a key is rejected before any loader runs.
var ErrInvalidKey = errors.New(errors.CodeInvalidInput, "invalid cache key")

// Loader is the contract between the cache and whatever produces values.
type Loader[K comparable, V any] interface {

	/*
		Load is called when the cache misses. The key was not found in memory, so the cache asks the Loader to produce it.
		1. Cache checks memory → key not found
		2. Cache calls Load(key)
		3. Loader fetches from DB/API/anything
		4. Cache stores the result in memory, only if Load returned a nil error
		5. Cache returns the value

		Load may have side effects and may fail. Failures are never stored.
	*/
	Load(ctx context.Context, key K) (V, error)
}

// LoaderFunc adapts an ordinary function to the Loader interface.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Load calls f(ctx, key).
func (f LoaderFunc[K, V]) Load(ctx context.Context, key K) (V, error) {
	return f(ctx, key)
}
