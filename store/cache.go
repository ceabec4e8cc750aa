package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

const itemsKeyFmt = "%sitems:%s:%s"

// CachedQuerier caches inventory report items in Redis. Reports are snapshots,
// so items only change when a report is re-imported; call Invalidate then.
// It must not wrap a querier whose reports change without such a call, like a
// FileStore watching its book.
// Redis failures are logged and fall through to the wrapped querier.
type CachedQuerier struct {
	next   stockcard.ItemQuerier
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// CacheOption configures a CachedQuerier.
type CacheOption func(*CachedQuerier)

// WithTTL sets how long items stay cached. Defaults to 15 minutes.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedQuerier) {
		c.ttl = ttl
	}
}

// WithKeyPrefix prefixes every cache key. Defaults to "stockcard:".
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *CachedQuerier) {
		c.prefix = prefix
	}
}

// NewCachedQuerier wraps next with a Redis cache.
func NewCachedQuerier(next stockcard.ItemQuerier, client redis.Cmdable, logger *slog.Logger, opts ...CacheOption) *CachedQuerier {
	c := &CachedQuerier{
		next:   next,
		client: client,
		ttl:    15 * time.Minute,
		prefix: "stockcard:",
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisClient connects to the Redis server at addr.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *CachedQuerier) key(reportID, stockNumber string) string {
	return fmt.Sprintf(itemsKeyFmt, c.prefix, reportID, stockNumber)
}

func (c *CachedQuerier) Items(ctx context.Context, reportID, stockNumber string) ([]stockcard.InventoryReportItem, error) {
	key := c.key(reportID, stockNumber)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var items []stockcard.InventoryReportItem
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		c.logger.Warn("discarding malformed cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "err", err)
	}

	items, err := c.next.Items(ctx, reportID, stockNumber)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(items)
	if err != nil {
		return items, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return items, nil
}

// Invalidate removes every cached item of reportID.
func (c *CachedQuerier) Invalidate(ctx context.Context, reportID string) error {
	pattern := fmt.Sprintf(itemsKeyFmt, c.prefix, reportID, "*")

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
