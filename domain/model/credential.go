package model

import "time"

// CachedCredential is the ephemeral cache entry for one platform config.
// It is never persisted durably; the cache TTL is kept strictly shorter than
// the token's own validity window.
type CachedCredential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Expired reports whether the credential must be treated as absent.
func (c *CachedCredential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PlatformToken is a token as returned by a platform token endpoint.
type PlatformToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	UID          string    `json:"uid,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// DecryptedCredentials carries the plaintext secrets a token source needs
// for one fetch. Values live only on the stack of the refresh path.
type DecryptedCredentials struct {
	AppSecret    string
	StoredToken  string
	RefreshToken string
}

// PlatformProfile is the normalized remote account profile.
type PlatformProfile struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}
