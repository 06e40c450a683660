package types

import "time"

// Entry is one stored (key, value) association.
// Entries are never mutated after they are published to a shard; a reload
// always produces a new Entry.
type Entry[K comparable, V any] struct {
	Key      K
	Value    V
	LoadedAt time.Time
}
