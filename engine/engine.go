package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/apex/log"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/keyed-cache/types"
)

const (
	msgLoaderFailed = "loader failed"
	msgLoadCanceled = "load canceled"
)

/*
CacheEngine is the "brain" of the cache system.
It is responsible for the "behavior" of the cache, NOT storage.
This acts as the policy layer.

It decides:
- Whether a key is acceptable
- How a key is turned into its string form for hashing and dedup
- How data is loaded on cache miss, and what a failure looks like to the caller
- How metrics and logs are recorded

It does NOT:
- Store data
- Handle sharding
- Handle locking
*/
type CacheEngine[K comparable, V any] struct {

	// Name identifies the cache in logs and errors.
	Name string

	// Validate rejects keys before any loader runs. Nil accepts every key
	// except a nil interface value.
	Validate func(K) error

	// Encode turns a key into the string used for shard selection and
	// in-flight deduplication. Two keys that are not == must never encode
	// to the same string.
	Encode func(K) string

	// Metrics is how we keep track of what the cache is doing.
	Metrics types.Metrics

	// Logger receives debug events for hits and misses and warnings for
	// loader failures.
	Logger log.Interface
}

/*
NewCacheEngine creates a CacheEngine. Nil collaborators are replaced by
defaults so the rest of the code never checks for nil.
*/
func NewCacheEngine[K comparable, V any](
	name string,
	validate func(K) error,
	encode func(K) string,
	metrics types.Metrics,
	logger log.Interface,
) *CacheEngine[K, V] {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = log.Log
	}
	if encode == nil {
		encode = EncodeKey[K]
	}

	return &CacheEngine[K, V]{
		Name:     name,
		Validate: validate,
		Encode:   encode,
		Metrics:  metrics,
		Logger:   logger.WithField("cache", name),
	}
}

// CheckKey applies the validator. The returned error satisfies
// errors.Is(err, types.ErrInvalidKey).
func (e *CacheEngine[K, V]) CheckKey(key K) error {
	if any(key) == nil {
		return e.invalidKey(key, "key is nil")
	}
	if hasNaN(reflect.ValueOf(any(key))) {
		return e.invalidKey(key, "key contains NaN")
	}
	if e.Validate == nil {
		return nil
	}
	if err := e.Validate(key); err != nil {
		return e.invalidKey(key, err.Error())
	}
	return nil
}

func (e *CacheEngine[K, V]) invalidKey(key K, reason string) error {
	return errors.WrapWithContext(types.ErrInvalidKey, errors.CodeInvalidInput, "invalid cache key", map[string]interface{}{
		"cache":  e.Name,
		"key":    fmt.Sprintf("%v", key),
		"reason": reason,
	})
}

// OnHit records a served-from-cache lookup.
func (e *CacheEngine[K, V]) OnHit(key K) {
	e.Metrics.Hit()
	e.Logger.WithField("key", key).Debug("cache hit")
}

// OnMiss records a lookup that has to go to the loader.
func (e *CacheEngine[K, V]) OnMiss(key K) {
	e.Metrics.Miss()
	e.Logger.WithField("key", key).Debug("cache miss")
}

// OnInvalidate records the explicit removal of one key.
func (e *CacheEngine[K, V]) OnInvalidate(key K, existed bool) {
	e.Metrics.Invalidate()
	e.Logger.WithFields(log.Fields{"key": key, "existed": existed}).Debug("cache invalidate")
}

// OnClear records the removal of every key.
func (e *CacheEngine[K, V]) OnClear(removed int) {
	e.Metrics.Clear()
	e.Logger.WithField("removed", removed).Debug("cache clear")
}

/*
Load runs the loader for a missing key.

A loader error is wrapped as a loader failure; the loader error stays
reachable through errors.Is and errors.As, and its classification is kept
when it is already a PlatformError. When the loader gave up because ctx
ended, the error is a cancellation instead. A panicking loader is turned
into a loader failure. Nothing here stores anything.
*/
func (e *CacheEngine[K, V]) Load(ctx context.Context, key K, loader types.Loader[K, V]) (v V, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v = zero
			err = errors.Newf(errors.CodeInternal, "loader panicked: %v", r)
			e.Logger.WithField("key", key).WithError(err).Error("cache load panicked")
			e.Metrics.LoadError()
			err = e.loaderFailed(key, err)
		}
	}()

	v, err = loader.Load(ctx, key)
	if err != nil {
		var zero V
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			e.Logger.WithField("key", key).WithError(err).Debug("cache load canceled")
			return zero, e.Canceled(key, err)
		}

		e.Metrics.LoadError()
		e.Logger.WithFields(log.Fields{
			"key":      key,
			"duration": time.Since(start),
		}).WithError(err).Warn("cache load failed")
		return zero, e.loaderFailed(key, err)
	}

	e.Metrics.Load()
	e.Logger.WithFields(log.Fields{
		"key":      key,
		"duration": time.Since(start),
	}).Debug("cache load")
	return v, nil
}

func (e *CacheEngine[K, V]) loaderFailed(key K, err error) error {
	return errors.WrapWithContext(err, errors.CodeExecutionFailed, msgLoaderFailed, map[string]interface{}{
		"cache": e.Name,
		"key":   fmt.Sprintf("%v", key),
	})
}

// Canceled builds the error returned to a caller that stopped waiting for
// an in-flight load.
func (e *CacheEngine[K, V]) Canceled(key K, cause error) error {
	e.Metrics.LoadError()
	return errors.WrapWithContext(cause, errors.CodeTimeout, msgLoadCanceled, map[string]interface{}{
		"cache": e.Name,
		"key":   fmt.Sprintf("%v", key),
	})
}

// IsLoaderFailure reports whether err came out of a failed loader call.
func IsLoaderFailure(err error) bool {
	var pe errors.PlatformError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code() == errors.CodeExecutionFailed && pe.Message() == msgLoaderFailed
}

// IsCanceled reports whether err means the caller stopped waiting for a load.
func IsCanceled(err error) bool {
	var pe errors.PlatformError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code() == errors.CodeTimeout && pe.Message() == msgLoadCanceled
}
