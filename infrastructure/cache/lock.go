package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
)

// releaseScript deletes the lock key only while it still holds the caller's
// token, so a holder whose TTL elapsed cannot release a successor's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// LockClient is the slice of go-redis the lock needs; kept narrow so tests
// can fake it.
type LockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLock implements repository.IDistributedLock with conditional-set-with-
// expiry semantics: SETNX attaches the TTL atomically, so a crashed holder
// cannot deadlock others.
type RedisLock struct {
	client LockClient
}

func NewRedisLock(client LockClient) repository.IDistributedLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration, retryCount int, retryDelay time.Duration) (bool, string, error) {
	token := uuid.NewString()
	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return false, "", fmt.Errorf("lock setnx %s: %w", key, err)
		}
		if ok {
			return true, token, nil
		}
		if attempt >= retryCount {
			return false, "", nil
		}
		select {
		case <-ctx.Done():
			return false, "", ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	deleted, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("lock release %s: %w", key, err)
	}
	if deleted == 0 {
		// Lock expired or is held by someone else; nothing to release.
		logger.GetLogger().WithField("key", key).Debug("lock already released or lost")
	}
	return nil
}

func (l *RedisLock) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("lock exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (l *RedisLock) RemainingTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("lock pttl %s: %w", key, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
