package dto

// CreatePlatformConfigRequest registers a platform app for the current user.
// The app secret is encrypted before it reaches storage.
type CreatePlatformConfigRequest struct {
	Platform    string `json:"platform" binding:"required"`
	AppID       string `json:"app_id" binding:"required"`
	AppSecret   string `json:"app_secret" binding:"required"`
	AccountName string `json:"account_name"`
	SubjectType string `json:"subject_type"`
}

// RotateSecretRequest replaces the stored app secret of a config.
type RotateSecretRequest struct {
	AppSecret string `json:"app_secret" binding:"required"`
}
