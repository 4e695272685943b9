package repository

import (
	"context"

	"socialdesk/domain/model"
)

// IPlatformConfig persists platform app registrations. Configs are owned by
// the creating user; reads are always scoped by user id.
type IPlatformConfig interface {
	Create(ctx context.Context, cfg *model.PlatformConfig) (int64, error)
	GetByID(ctx context.Context, id int64, userID string) (*model.PlatformConfig, error)
	ListByUser(ctx context.Context, userID string) ([]*model.PlatformConfig, error)
	// RotateSecret replaces the encrypted app secret.
	RotateSecret(ctx context.Context, id int64, userID string, appSecretEnc string) error
	// UpdateStoredCredential saves the encrypted token material obtained from
	// an OAuth callback.
	UpdateStoredCredential(ctx context.Context, id int64, userID string, storedTokenEnc string, refreshTokenEnc *string) error
	// Disable soft-disables a config; history rows keep referencing it.
	Disable(ctx context.Context, id int64, userID string) error
}
