package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// memoryRedis implements the commands used by CachedQuerier. Calling any
// other command panics.
type memoryRedis struct {
	redis.Cmdable

	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.values[key] = string(value.([]byte))
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type countingQuerier struct {
	calls int
	items []stockcard.InventoryReportItem
	err   error
}

func (q *countingQuerier) Items(ctx context.Context, reportID, stockNumber string) ([]stockcard.InventoryReportItem, error) {
	q.calls++
	return q.items, q.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedQuerier(t *testing.T) {
	items := []stockcard.InventoryReportItem{
		{StockNumber: "SN-0001", Description: "Bond paper A4", OnHandCount: decimal.NewFromInt(100)},
	}

	t.Run("ReadThrough", func(t *testing.T) {
		next := &countingQuerier{items: items}
		client := newMemoryRedis()
		cache := NewCachedQuerier(next, client, discardLogger(), WithTTL(time.Minute))

		for i := 0; i < 3; i++ {
			got, err := cache.Items(context.Background(), "ir-1", "SN-0001")
			assert.NoError(t, err)
			assert.Equal(t, 1, len(got))
			assert.Equal(t, "100", got[0].OnHandCount.String())
		}
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, time.Minute, client.ttls["stockcard:items:ir-1:SN-0001"])
	})

	t.Run("EmptyResultIsCached", func(t *testing.T) {
		next := &countingQuerier{}
		cache := NewCachedQuerier(next, newMemoryRedis(), discardLogger())

		for i := 0; i < 2; i++ {
			got, err := cache.Items(context.Background(), "ir-1", "SN-0404")
			assert.NoError(t, err)
			assert.Equal(t, 0, len(got))
		}
		assert.Equal(t, 1, next.calls)
	})

	t.Run("RedisDownFallsThrough", func(t *testing.T) {
		next := &countingQuerier{items: items}
		client := newMemoryRedis()
		client.err = errors.New("connection refused")
		cache := NewCachedQuerier(next, client, discardLogger())

		for i := 0; i < 2; i++ {
			got, err := cache.Items(context.Background(), "ir-1", "SN-0001")
			assert.NoError(t, err)
			assert.Equal(t, 1, len(got))
		}
		assert.Equal(t, 2, next.calls)
	})

	t.Run("QuerierErrorNotCached", func(t *testing.T) {
		boom := errors.New("timeout")
		next := &countingQuerier{err: boom}
		client := newMemoryRedis()
		cache := NewCachedQuerier(next, client, discardLogger())

		_, err := cache.Items(context.Background(), "ir-1", "SN-0001")
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, 0, len(client.values))
	})

	t.Run("Invalidate", func(t *testing.T) {
		next := &countingQuerier{items: items}
		client := newMemoryRedis()
		cache := NewCachedQuerier(next, client, discardLogger(), WithKeyPrefix("test:"))

		_, err := cache.Items(context.Background(), "ir-1", "SN-0001")
		assert.NoError(t, err)
		_, err = cache.Items(context.Background(), "ir-2", "SN-0001")
		assert.NoError(t, err)
		assert.Equal(t, 2, len(client.values))

		assert.NoError(t, cache.Invalidate(context.Background(), "ir-1"))
		assert.Equal(t, 1, len(client.values))
		_, ok := client.values["test:items:ir-2:SN-0001"]
		assert.True(t, ok)

		_, err = cache.Items(context.Background(), "ir-1", "SN-0001")
		assert.NoError(t, err)
		assert.Equal(t, 3, next.calls)
	})
}

func TestCachedQuerierRedis(t *testing.T) {
	addr := testEnv(t, "STOCKCARD_TEST_REDIS_ADDR")

	client, err := NewRedisClient(context.Background(), addr, "", 0)
	assert.NoError(t, err)
	defer func() { _ = client.Close() }()

	prefix := "stockcard-test:" + stockcard.NewEntryID() + ":"
	next := &countingQuerier{items: []stockcard.InventoryReportItem{{StockNumber: "SN-0001", OnHandCount: decimal.NewFromInt(7)}}}
	cache := NewCachedQuerier(next, client, discardLogger(), WithKeyPrefix(prefix), WithTTL(time.Minute))

	for i := 0; i < 2; i++ {
		got, err := cache.Items(context.Background(), "ir-1", "SN-0001")
		assert.NoError(t, err)
		assert.Equal(t, "7", got[0].OnHandCount.String())
	}
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, cache.Invalidate(context.Background(), "ir-1"))
}
