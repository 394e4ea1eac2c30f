package cache

import (
	"context"
	"time"

	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
)

// GetOrLoad returns the cached value under key, or calls load and caches its
// result for ttl. Cache errors are logged and never returned; only load
// errors reach the caller. A nil cache always calls load.
func GetOrLoad[T any](
	ctx context.Context,
	c interfaces.Cache,
	log *logging.Logger,
	key string,
	ttl time.Duration,
	load func(context.Context) (T, error),
) (T, error) {
	var zero, data T

	if c == nil {
		return load(ctx)
	}

	hit, err := c.Get(ctx, key, &data)
	if err != nil {
		log.Warn("cache get failed", "key", key, "error", err)
	}
	if hit && err == nil {
		return data, nil
	}

	data, err = load(ctx)
	if err != nil {
		return zero, err
	}

	if err := c.Set(ctx, key, data, ttl); err != nil {
		log.Warn("cache set failed", "key", key, "error", err)
	}
	return data, nil
}
