package scheduler

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const defaultLeaseKey = "leadflow:scheduled-check:lease"

// releaseScript deletes the lease only while it still carries the holder's
// token, so an expired lease that was taken again is never released by the
// old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease guards a job across processes. Every successful Acquire hands out a
// fresh token; Release only frees the lease while that token still holds it.
type Lease interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// RedisLease is a SET NX PX lease shared by every scheduler instance.
type RedisLease struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisLease(client redis.Cmdable, key string, ttl time.Duration) *RedisLease {
	if key == "" {
		key = defaultLeaseKey
	}
	return &RedisLease{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (l *RedisLease) Acquire(ctx context.Context) (string, bool, error) {
	token := ulid.Make().String()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (l *RedisLease) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
}

var _ Lease = (*RedisLease)(nil)
