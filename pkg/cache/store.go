// Package cache is the caching contract shared by the counting modules: a
// key/value store with TTLs and a typed read-through loader.
//
// Writers never update cached values in place. A successful mutation deletes
// the affected keys before returning, and the next read repopulates them.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the minimal surface the modules need from a cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Incr increments an integer counter and refreshes its TTL.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
