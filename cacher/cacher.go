// Package cacher provides a typed read-through cache used to shield hot
// query paths, such as the status endpoint, from repeated recomputation.
package cacher

import (
	"context"
	"time"
)

// FetchFunc produces a value of type T when the cache has no entry for a
// key. It receives a context for cancellation and returns the value or an
// error; errors are never cached.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher is a thread-safe read-through cache. Implementations coalesce
// concurrent fetches for the same missing key so the source is hit once.
type Cacher[T any] interface {
	// GetOrFetch returns the cached value for key, or runs fetchFn and
	// caches its result with the given TTL.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key to retrieve or set
	//   - ttl: Time-to-live for a freshly fetched value
	//   - fetchFn: Function producing the value on a miss
	//
	// Returns:
	//   - The cached or fetched value of type T
	//   - An error if the fetch fails
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes a key from the cache.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key to delete
	//
	// Returns:
	//   - An error if the operation fails
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//
	// Returns:
	//   - An error if the operation fails
	Clear(ctx context.Context) error

	// ItemCount returns the number of entries currently cached.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//
	// Returns:
	//   - The entry count
	//   - An error if the operation fails
	ItemCount(ctx context.Context) (int, error)
}
