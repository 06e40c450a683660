package shard

import "github.com/cespare/xxhash/v2"

/*
This file decides HOW a cache key is assigned to a shard.
If every request went to the same shard, that shard would become a bottleneck.
*/

// Selector decides which shard index should handle an encoded key.
type Selector interface {
	Index(key string, n int) int
}

/*
PowerOfTwoSelector spreads keys with xxhash and masks the hash with n-1.
n must be a power of two; the cache rounds shard counts with RoundUp.
*/
type PowerOfTwoSelector struct{}

func (PowerOfTwoSelector) Index(key string, n int) int {
	return int(xxhash.Sum64String(key) & uint64(n-1))
}

// RoundUp returns the smallest power of two >= n, with a minimum of 1.
func RoundUp(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
