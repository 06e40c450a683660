package cache

import (
	"github.com/apex/log"

	"github.com/krisalay/keyed-cache/shard"
	"github.com/krisalay/keyed-cache/types"
)

// DefaultShards is the shard count used when WithShards is not given.
const DefaultShards = 16

type options[K comparable] struct {
	name     string
	shards   int
	metrics  types.Metrics
	logger   log.Interface
	validate func(K) error
	encode   func(K) string
	selector shard.Selector
}

// Option configures a KeyedCache.
type Option[K comparable] func(*options[K])

// WithName sets the name used in logs and error context.
func WithName[K comparable](name string) Option[K] {
	return func(o *options[K]) { o.name = name }
}

// WithShards sets the shard count. It is rounded up to a power of two;
// values below 1 keep the default.
func WithShards[K comparable](n int) Option[K] {
	return func(o *options[K]) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithMetrics sets the metrics sink. Pass a *types.Counters to make Stats work.
func WithMetrics[K comparable](m types.Metrics) Option[K] {
	return func(o *options[K]) { o.metrics = m }
}

// WithLogger sets the logger. The default is the apex/log package logger.
func WithLogger[K comparable](l log.Interface) Option[K] {
	return func(o *options[K]) { o.logger = l }
}

// WithKeyValidator rejects keys before any loader runs. Rejected calls
// return an error matching types.ErrInvalidKey.
func WithKeyValidator[K comparable](fn func(K) error) Option[K] {
	return func(o *options[K]) { o.validate = fn }
}

// WithKeyEncoder overrides how keys are turned into strings for shard
// selection and in-flight deduplication. fn must map keys to the same string
// exactly when they are ==. The default is engine.EncodeKey; see it for the
// cases it cannot tell apart.
func WithKeyEncoder[K comparable](fn func(K) string) Option[K] {
	return func(o *options[K]) { o.encode = fn }
}

// WithSelector overrides shard selection.
func WithSelector[K comparable](s shard.Selector) Option[K] {
	return func(o *options[K]) { o.selector = s }
}

func buildOptions[K comparable](opts []Option[K]) options[K] {
	o := options[K]{
		name:     "default",
		shards:   DefaultShards,
		selector: shard.PowerOfTwoSelector{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.shards = shard.RoundUp(o.shards)
	return o
}
