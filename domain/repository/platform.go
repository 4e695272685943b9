package repository

import (
	"context"
	"errors"

	"socialdesk/domain/model"
)

// ErrRefreshUnsupported is returned by adapters whose platform has no token
// refresh call. Callers must treat it as a branch, not attempt the call.
var ErrRefreshUnsupported = errors.New("platform does not support token refresh")

// ErrAuthFlowUnsupported is returned by adapters whose platform links through
// app credentials instead of a browser authorization flow.
var ErrAuthFlowUnsupported = errors.New("platform does not support the browser authorization flow")

// ISocialPlatform is the capability set every platform adapter implements.
// Adapters are stateless; the config row for the target account is passed
// into each call that needs app identity or capability flags.
type ISocialPlatform interface {
	Platform() model.Platform

	// GetAuthURL builds the browser authorization URL for first-time linking.
	GetAuthURL(cfg *model.PlatformConfig, state string) (string, error)
	// ExchangeToken completes the authorization-code grant.
	ExchangeToken(ctx context.Context, code string, cfg *model.PlatformConfig, appSecret string) (*model.PlatformToken, error)
	// RefreshToken exchanges a refresh token for a new credential, or fails
	// with ErrRefreshUnsupported.
	RefreshToken(ctx context.Context, refreshToken string, cfg *model.PlatformConfig, appSecret string) (*model.PlatformToken, error)

	ITokenSource

	// ValidateContent checks content against the platform's constraints.
	// No network calls.
	ValidateContent(content *model.PublishContent) *model.ValidationResult
	// Publish executes the platform's publish protocol. Retrying is the
	// orchestrator's job; adapters report the first failed step and stop.
	Publish(ctx context.Context, cfg *model.PlatformConfig, accessToken string, content *model.PublishContent) (*model.PublishResult, error)
	// GetUserInfo fetches the remote profile behind a token.
	GetUserInfo(ctx context.Context, accessToken, uid string) (*model.PlatformProfile, error)
}

// ITokenSource is the slice of the adapter the credential cache depends on.
type ITokenSource interface {
	// FetchAccessToken obtains a live access token for the config using the
	// decrypted stored secrets. Errors are not retried here; the orchestrator
	// classifies them.
	FetchAccessToken(ctx context.Context, cfg *model.PlatformConfig, creds model.DecryptedCredentials) (*model.PlatformToken, error)
}
