// Package cache provides a pluggable key/value cache used to avoid
// redundant registry lookups (metadata, tarballs) during resolution and
// install.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte blobs keyed by string, with an optional
// time-to-live. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value for key. The second return value is
	// false on a miss (key absent, expired, or corrupt), in which case
	// the error is nil.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key, if present. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
