// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// responses.go caches the data of upstream GET responses in Valkey so
// screens that refetch the same lists within a few seconds skip the round
// trip. Any successful mutation drops the cached entries of its resource.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// responseKeyPrefix is the Valkey key prefix for cached API responses.
	responseKeyPrefix = "api:"

	// DefaultResponseTTL is how long a response stays cached.
	DefaultResponseTTL = 30 * time.Second
)

// Responses caches raw API response data keyed by credential scope and
// request path.
type Responses struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponses creates a response cache backed by the given Valkey client.
func NewResponses(client *redis.Client, ttl time.Duration) *Responses {
	if ttl == 0 {
		ttl = DefaultResponseTTL
	}
	return &Responses{client: client, ttl: ttl}
}

func responseKey(scope, path string) string {
	return responseKeyPrefix + scope + ":" + path
}

// Get returns the data cached for path under scope.
func (rc *Responses) Get(ctx context.Context, scope, path string) ([]byte, bool) {
	key := responseKey(scope, path)
	val, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("response cache hit", "key", key)
	return val, true
}

// Set stores data for path under scope with the configured TTL.
func (rc *Responses) Set(ctx context.Context, scope, path string, data []byte) {
	key := responseKey(scope, path)
	if err := rc.client.Set(ctx, key, data, rc.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "key", key, "error", err)
	}
}

// Invalidate removes the cached responses of every scope whose path starts
// with prefix.
func (rc *Responses) Invalidate(ctx context.Context, prefix string) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, responseKeyPrefix+"*:"+prefix+"*", 100).Result()
		if err != nil {
			slog.Warn("response cache scan error", "prefix", prefix, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("response cache delete error", "prefix", prefix, "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("response cache invalidated", "prefix", prefix, "deleted", deleted)
}
