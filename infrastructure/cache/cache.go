package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"socialdesk/infrastructure/logger"
)

// NewCache connects the shared redis client used by the credential cache and
// the distributed lock.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Redis ping failed")
		return client, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
