package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "campaign-sync:lock:"

// releaseScript deletes the lock only when the stored token still belongs
// to this holder, so an expired-and-reacquired lock is never released by
// the previous holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker implements Locker over redis SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker creates a redis-backed locker from a connection URL.
func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisLocker{client: redis.NewClient(opts)}, nil
}

// NewRedisLockerFromClient wraps an existing client, mainly for tests.
func NewRedisLockerFromClient(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the named lock with SET NX PX. The returned release
// function is token-checked.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	fullKey := keyPrefix + key

	acquired, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	if !acquired {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Err()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}

		return nil
	}

	return release, true, nil
}

// Close closes the underlying redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
