package assignment

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryCursor keeps rotation state in-process.
type MemoryCursor struct {
	mu      sync.Mutex
	counter map[string]int64
}

func NewMemoryCursor() *MemoryCursor {
	return &MemoryCursor{counter: make(map[string]int64)}
}

func (m *MemoryCursor) Next(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.counter[key]
	m.counter[key] = n + 1
	return n, nil
}

const defaultCursorTTL = 30 * 24 * time.Hour

// RedisCursor shares rotation state between API instances.
type RedisCursor struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisCursor(client redis.Cmdable, prefix string) *RedisCursor {
	if prefix == "" {
		prefix = "leadflow:rr:"
	}
	return &RedisCursor{client: client, prefix: prefix, ttl: defaultCursorTTL}
}

func (r *RedisCursor) Next(ctx context.Context, key string) (int64, error) {
	fullKey := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val() - 1, nil
}

var (
	_ CursorStore = (*MemoryCursor)(nil)
	_ CursorStore = (*RedisCursor)(nil)
)
