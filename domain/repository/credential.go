package repository

import (
	"context"
	"time"

	"socialdesk/domain/model"
)

// ICredentialCache serves live access tokens for platform configs,
// refreshing through the platform token endpoint when the cached entry is
// absent or inside the refresh threshold.
type ICredentialCache interface {
	GetOrRefresh(ctx context.Context, cfg *model.PlatformConfig, src ITokenSource) (string, error)
	// Invalidate drops the cached entry, forcing the next call to refresh.
	Invalidate(ctx context.Context, cfg *model.PlatformConfig) error
}

// IDistributedLock is a short-lived key-scoped mutual-exclusion lock over a
// shared store. The TTL is the safety valve against a crashed holder; a
// holder whose TTL elapses loses exclusivity.
type IDistributedLock interface {
	// Acquire attempts to take the lock, retrying up to retryCount times with
	// a fixed delay. Returns whether it was acquired and the release token.
	Acquire(ctx context.Context, key string, ttl time.Duration, retryCount int, retryDelay time.Duration) (bool, string, error)
	// Release deletes the lock only while the stored value still equals
	// token, so an expired holder cannot release a successor's lock.
	Release(ctx context.Context, key, token string) error
	IsLocked(ctx context.Context, key string) (bool, error)
	RemainingTTL(ctx context.Context, key string) (time.Duration, error)
}
