package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialdesk/infrastructure/cache"
)

// fakeLockStore emulates the conditional-set-with-expiry semantics the lock
// relies on, including TTL-based expiry.
type fakeLockStore struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}, expires: map[string]time.Time{}}
}

func (f *fakeLockStore) expire(key string) {
	if exp, ok := f.expires[key]; ok && time.Now().After(exp) {
		delete(f.values, key)
		delete(f.expires, key)
	}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(key)
	if _, held := f.values[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	f.expires[key] = time.Now().Add(expiration)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeLockStore) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keys[0]
	f.expire(key)
	if f.values[key] == args[0].(string) {
		delete(f.values, key)
		delete(f.expires, key)
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeLockStore) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(keys[0])
	if _, held := f.values[keys[0]]; held {
		return redis.NewIntResult(1, nil)
	}
	return redis.NewIntResult(0, nil)
}

func (f *fakeLockStore) PTTL(ctx context.Context, key string) *redis.DurationCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(key)
	exp, ok := f.expires[key]
	if !ok {
		return redis.NewDurationResult(-2, nil)
	}
	return redis.NewDurationResult(time.Until(exp), nil)
}

func TestRedisLock_Exclusivity(t *testing.T) {
	store := newFakeLockStore()
	lock := cache.NewRedisLock(store)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	acquired := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _, err := lock.Acquire(ctx, "cred:42", time.Minute, 0, 0)
			require.NoError(t, err)
			acquired[i] = ok
		}(i)
	}
	wg.Wait()

	holders := 0
	for _, ok := range acquired {
		if ok {
			holders++
		}
	}
	assert.Equal(t, 1, holders, "exactly one concurrent acquire must win")
}

func TestRedisLock_ReleaseOnlyWithMatchingToken(t *testing.T) {
	store := newFakeLockStore()
	lock := cache.NewRedisLock(store)
	ctx := context.Background()

	ok, tokenA, err := lock.Acquire(ctx, "cred:7", time.Minute, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale token must not remove the current holder's lock.
	require.NoError(t, lock.Release(ctx, "cred:7", "another-token"))
	locked, err := lock.IsLocked(ctx, "cred:7")
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, lock.Release(ctx, "cred:7", tokenA))
	locked, err = lock.IsLocked(ctx, "cred:7")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRedisLock_TTLElapsedAllowsNewHolder(t *testing.T) {
	store := newFakeLockStore()
	lock := cache.NewRedisLock(store)
	ctx := context.Background()

	ok, staleToken, err := lock.Acquire(ctx, "cred:9", 10*time.Millisecond, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, _, err = lock.Acquire(ctx, "cred:9", time.Minute, 0, 0)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must be acquirable")

	// The previous holder's release must not free the new lock.
	require.NoError(t, lock.Release(ctx, "cred:9", staleToken))
	locked, err := lock.IsLocked(ctx, "cred:9")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestRedisLock_RetriesThenGivesUp(t *testing.T) {
	store := newFakeLockStore()
	lock := cache.NewRedisLock(store)
	ctx := context.Background()

	ok, _, err := lock.Acquire(ctx, "cred:1", time.Minute, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	start := time.Now()
	ok, _, err = lock.Acquire(ctx, "cred:1", time.Minute, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRedisLock_RemainingTTL(t *testing.T) {
	store := newFakeLockStore()
	lock := cache.NewRedisLock(store)
	ctx := context.Background()

	ttl, err := lock.RemainingTTL(ctx, "cred:none")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)

	ok, _, err := lock.Acquire(ctx, "cred:3", time.Minute, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err = lock.RemainingTTL(ctx, "cred:3")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)
}
