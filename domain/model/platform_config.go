package model

import "time"

// Subject classifications for platform accounts. Some platforms gate
// publishing by the legal subject behind the account: a personal-subject
// subscription account on wechat cannot publish through the API at all.
const (
	SubjectTypePersonal   = "personal"
	SubjectTypeEnterprise = "enterprise"
	SubjectTypeMedia      = "media"
)

// PlatformConfig is one app registration per (user, platform). The app
// secret and any linked long-lived credential are stored encrypted; rows are
// soft-disabled (Active=false) rather than deleted while publish history
// references them.
type PlatformConfig struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	Platform       Platform   `json:"platform"`
	AppID          string     `json:"app_id"`
	AppSecretEnc   string     `json:"-"`
	StoredTokenEnc *string    `json:"-"`
	RefreshTokenEnc *string   `json:"-"`
	AccountName    string     `json:"account_name"`
	SubjectType    string     `json:"subject_type"`
	CanPublish     bool       `json:"can_publish"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty"`
}

// DeriveCanPublish maps a subject classification to the publish capability
// flag stored on the config row.
func DeriveCanPublish(platform Platform, subjectType string) bool {
	if platform == PlatformWechat && subjectType == SubjectTypePersonal {
		return false
	}
	return true
}
