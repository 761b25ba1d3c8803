package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader is a typed read-through cache over a Store. Concurrent misses for
// the same key share one load.
type Loader[T any] struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewLoader builds a Loader. A nil store disables caching and every Get loads.
func NewLoader[T any](store Store, ttl time.Duration, logger *slog.Logger) *Loader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader[T]{store: store, ttl: ttl, logger: logger}
}

// Get returns the cached value for key, or calls load and caches its result.
// Cache backend errors fall through to load; load errors are never cached.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if l.store == nil {
		return load(ctx)
	}

	data, err := l.store.Get(ctx, key)
	if err == nil {
		var v T
		uerr := json.Unmarshal(data, &v)
		if uerr == nil {
			return v, nil
		}
		l.logger.WarnContext(ctx, "Discarding undecodable cache entry", "key", key, "error", uerr)
	} else if !errors.Is(err, ErrMiss) {
		l.logger.WarnContext(ctx, "Cache GET failed, falling through to storage", "key", key, "error", err)
	}

	out, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if encoded, merr := json.Marshal(v); merr == nil {
			if serr := l.store.Set(ctx, key, encoded, l.ttl); serr != nil {
				l.logger.WarnContext(ctx, "Failed to populate cache", "key", key, "error", serr)
			}
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// GetWithTTL is Get with a per-call TTL, used when a value must not outlive
// an expiry it carries.
func (l *Loader[T]) GetWithTTL(ctx context.Context, key string, ttl func(T) time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if l.store == nil {
		return load(ctx)
	}

	data, err := l.store.Get(ctx, key)
	if err == nil {
		var v T
		if uerr := json.Unmarshal(data, &v); uerr == nil {
			return v, nil
		}
	} else if !errors.Is(err, ErrMiss) {
		l.logger.WarnContext(ctx, "Cache GET failed, falling through to storage", "key", key, "error", err)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if d := ttl(v); d > 0 {
		if encoded, merr := json.Marshal(v); merr == nil {
			if serr := l.store.Set(ctx, key, encoded, d); serr != nil {
				l.logger.WarnContext(ctx, "Failed to populate cache", "key", key, "error", serr)
			}
		}
	}
	return v, nil
}

// Invalidate removes keys. Callers run it after a successful write and before
// returning to their own caller.
func (l *Loader[T]) Invalidate(ctx context.Context, keys ...string) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
