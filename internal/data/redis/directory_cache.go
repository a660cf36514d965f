// Package redis caches distributor directory lookups in Redis.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/distributor-bonus-ledger/internal/domain/distributor"
)

const keyPrefix = "distributor:"

// Client is the subset of *redis.Client the cache uses
type Client interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// DirectoryCache is a read-through distributor.Directory. Redis failures are
// logged and the lookup falls through to the wrapped directory.
type DirectoryCache struct {
	client Client
	next   distributor.Directory
	ttl    time.Duration
	logger *slog.Logger
}

// NewDirectoryCache wraps next. A nil client disables caching and next is returned as is.
func NewDirectoryCache(logger *slog.Logger, client *redis.Client, next distributor.Directory, ttl time.Duration) distributor.Directory {
	if client == nil {
		return next
	}
	return newDirectoryCache(logger, client, next, ttl)
}

func newDirectoryCache(logger *slog.Logger, client Client, next distributor.Directory, ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{client: client, next: next, ttl: ttl, logger: logger}
}

func cacheKey(id string) string {
	return keyPrefix + id
}

// GetByIDs serves what it can from Redis and fetches the rest in one call to the
// wrapped directory. Fetched entries are written back with the configured TTL.
func (c *DirectoryCache) GetByIDs(ctx context.Context, ids []string) ([]distributor.Distributor, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	result := make([]distributor.Distributor, 0, len(ids))
	missing := ids

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Distributor cache read failed", "count", len(ids), "error", err)
	} else {
		missing = nil
		for i, v := range values {
			d, ok := decode(v)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			result = append(result, d)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.next.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	for _, d := range fetched {
		c.store(ctx, d)
	}

	c.logger.Debug("Distributor cache lookup", "hits", len(result), "misses", len(missing))
	return append(result, fetched...), nil
}

func (c *DirectoryCache) store(ctx context.Context, d distributor.Distributor) {
	payload, err := json.Marshal(d)
	if err != nil {
		c.logger.Warn("Failed to encode distributor for cache", "id", d.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(d.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Distributor cache write failed", "id", d.ID, "error", err)
	}
}

func decode(v interface{}) (distributor.Distributor, bool) {
	s, ok := v.(string)
	if !ok {
		return distributor.Distributor{}, false
	}
	var d distributor.Distributor
	if err := json.Unmarshal([]byte(s), &d); err != nil || d.ID == "" {
		return distributor.Distributor{}, false
	}
	return d, true
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
