package ports

import (
	"context"
	"time"
)

// SessionCache is a key-value store whose entries expire after a TTL
type SessionCache interface {
	// Get returns the value stored under key; ok is false when absent or expired
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value and restarting its TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
