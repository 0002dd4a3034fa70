package session

import (
	"context"
	"time"
)

// KV is the minimal durable key-value contract backing the Store: get,
// set-with-expiry, delete and key enumeration. Implementations must treat a
// Set as a TTL refresh and may purge expired entries lazily.
type KV interface {
	// Get returns the stored value and whether the key exists (and is not expired).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value under key with the given TTL, replacing any
	// previous value and resetting its expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys enumerates all live (non-expired) keys.
	Keys(ctx context.Context) ([]string, error)
}
