package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/secret"
)

// ErrRefreshContended means the lock could not be acquired and no other
// holder populated the cache in the meantime. The caller surfaces this as a
// credential failure instead of spinning.
var ErrRefreshContended = errors.New("credential refresh contended, no cached token available")

// CredentialStore is the slice of go-redis the cache needs.
type CredentialStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CredentialCacheOptions are the tunables of the refresh protocol. Platforms
// mandate different token lifetimes, so these stay configuration-driven.
type CredentialCacheOptions struct {
	// RefreshThreshold is the safety margin before true expiry at which an
	// entry is already treated as stale.
	RefreshThreshold time.Duration
	// TTLMargin shortens the cache TTL relative to the token lifetime so the
	// entry disappears before the token itself turns risky to use.
	TTLMargin      time.Duration
	LockTTL        time.Duration
	LockRetryCount int
	LockRetryDelay time.Duration
	// ContendWait is the single wait-and-recheck delay after losing the lock.
	ContendWait time.Duration
}

func DefaultCredentialCacheOptions() CredentialCacheOptions {
	return CredentialCacheOptions{
		RefreshThreshold: 5 * time.Minute,
		TTLMargin:        5 * time.Minute,
		LockTTL:          10 * time.Second,
		LockRetryCount:   3,
		LockRetryDelay:   100 * time.Millisecond,
		ContendWait:      250 * time.Millisecond,
	}
}

// CredentialCache serializes token refreshes per config behind the
// distributed lock and keeps live tokens in redis with a TTL strictly
// shorter than the token's validity window.
type CredentialCache struct {
	store CredentialStore
	lock  repository.IDistributedLock
	codec *secret.Codec
	opts  CredentialCacheOptions
	now   func() time.Time
}

func NewCredentialCache(store CredentialStore, lock repository.IDistributedLock, codec *secret.Codec, opts CredentialCacheOptions) *CredentialCache {
	return &CredentialCache{
		store: store,
		lock:  lock,
		codec: codec,
		opts:  opts,
		now:   time.Now,
	}
}

func credentialKey(cfg *model.PlatformConfig) string {
	return fmt.Sprintf("credential:%s:%d", cfg.Platform, cfg.ID)
}

func lockKey(cfg *model.PlatformConfig) string {
	return fmt.Sprintf("credential-lock:%s:%d", cfg.Platform, cfg.ID)
}

// read returns the cached credential and whether it is usable right now.
// An expired or stale entry is reported as a miss, never returned.
func (c *CredentialCache) read(ctx context.Context, key string) (*model.CachedCredential, bool) {
	raw, err := c.store.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.GetLogger().WithField("error", err).Warn("credential cache read failed")
		}
		return nil, false
	}
	var cred model.CachedCredential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		logger.GetLogger().WithField("error", err).Warn("credential cache entry corrupt, treating as miss")
		return nil, false
	}
	if !c.now().Before(cred.ExpiresAt.Add(-c.opts.RefreshThreshold)) {
		return nil, false
	}
	return &cred, true
}

// GetOrRefresh implements the refresh protocol:
//
//  1. fresh cache hit returns immediately, no lock, no network;
//  2. on miss, acquire the per-config lock; losing it means another caller
//     is refreshing, so wait once, re-read, and fail rather than spin;
//  3. under the lock, double-check the cache before fetching through the
//     token source with the decrypted stored secrets;
//  4. the lock is released on every path.
//
// Token-endpoint failures are not retried here; they propagate to the
// orchestrator for classification.
func (c *CredentialCache) GetOrRefresh(ctx context.Context, cfg *model.PlatformConfig, src repository.ITokenSource) (string, error) {
	key := credentialKey(cfg)

	if cred, ok := c.read(ctx, key); ok {
		return cred.AccessToken, nil
	}

	acquired, token, err := c.lock.Acquire(ctx, lockKey(cfg), c.opts.LockTTL, c.opts.LockRetryCount, c.opts.LockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !acquired {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.opts.ContendWait):
		}
		if cred, ok := c.read(ctx, key); ok {
			return cred.AccessToken, nil
		}
		return "", ErrRefreshContended
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := c.lock.Release(releaseCtx, lockKey(cfg), token); err != nil {
			logger.GetLogger().WithField("error", err).Warn("credential lock release failed")
		}
	}()

	// Double check: another holder may have refreshed while we waited.
	if cred, ok := c.read(ctx, key); ok {
		return cred.AccessToken, nil
	}

	creds, err := c.decrypt(cfg)
	if err != nil {
		return "", err
	}

	fetched, err := src.FetchAccessToken(ctx, cfg, creds)
	if err != nil {
		return "", fmt.Errorf("fetch access token for config %d: %w", cfg.ID, err)
	}

	now := c.now()
	expiresAt := fetched.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Duration(fetched.ExpiresIn) * time.Second)
	}
	cred := model.CachedCredential{
		AccessToken: fetched.AccessToken,
		ExpiresAt:   expiresAt,
		FetchedAt:   now,
	}

	ttl := expiresAt.Sub(now) - c.opts.TTLMargin
	if ttl <= 0 {
		// Token lifetime shorter than the margin: cache briefly, still below
		// the remaining validity.
		ttl = expiresAt.Sub(now) / 2
	}
	if ttl > 0 {
		payload, err := json.Marshal(cred)
		if err != nil {
			return "", fmt.Errorf("marshal cached credential: %w", err)
		}
		if err := c.store.Set(ctx, key, payload, ttl).Err(); err != nil {
			logger.GetLogger().WithField("error", err).Warn("credential cache write failed")
		}
	}

	return cred.AccessToken, nil
}

func (c *CredentialCache) Invalidate(ctx context.Context, cfg *model.PlatformConfig) error {
	return c.store.Del(ctx, credentialKey(cfg)).Err()
}

func (c *CredentialCache) decrypt(cfg *model.PlatformConfig) (model.DecryptedCredentials, error) {
	var creds model.DecryptedCredentials
	var err error

	creds.AppSecret, err = c.codec.Decrypt(cfg.AppSecretEnc)
	if err != nil {
		return creds, fmt.Errorf("decrypt app secret for config %d: %w", cfg.ID, err)
	}
	if cfg.StoredTokenEnc != nil {
		creds.StoredToken, err = c.codec.Decrypt(*cfg.StoredTokenEnc)
		if err != nil {
			return creds, fmt.Errorf("decrypt stored token for config %d: %w", cfg.ID, err)
		}
	}
	if cfg.RefreshTokenEnc != nil {
		creds.RefreshToken, err = c.codec.Decrypt(*cfg.RefreshTokenEnc)
		if err != nil {
			return creds, fmt.Errorf("decrypt refresh token for config %d: %w", cfg.ID, err)
		}
	}
	return creds, nil
}
