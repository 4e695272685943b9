package model

import "time"

// PublishContent is the immutable input handed to an adapter. Text-only
// posts leave the richer fields empty; the article-style adapters require
// title/thumbnail and use digest/source URL when present.
type PublishContent struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Text      string   `json:"text"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Title     string   `json:"title,omitempty"`
	Author    string   `json:"author,omitempty"`
	Digest    string   `json:"digest,omitempty"`
	SourceURL string   `json:"source_url,omitempty"`
	Thumbnail []byte   `json:"-"`
}

// ValidationResult is the outcome of an adapter's content validation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// PublishResult is the terminal outcome for one (content, account) pair.
// Retries happen inside the publish call; a returned result is final.
type PublishResult struct {
	ConfigID  int64    `json:"config_id"`
	Platform  Platform `json:"platform"`
	Success   bool     `json:"success"`
	PostID    string   `json:"post_id,omitempty"`
	PostURL   string   `json:"post_url,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	Attempts  int      `json:"attempts"`
}

// Publish record statuses.
const (
	PublishStatusSucceeded = "succeeded"
	PublishStatusFailed    = "failed"
)

// PublishRecord is the persisted history row written after a terminal
// PublishResult.
type PublishRecord struct {
	ID           int64     `json:"id"`
	ContentID    string    `json:"content_id"`
	ConfigID     int64     `json:"config_id"`
	UserID       string    `json:"user_id"`
	Platform     string    `json:"platform"`
	Status       string    `json:"status"`
	PostID       *string   `json:"post_id,omitempty"`
	PostURL      *string   `json:"post_url,omitempty"`
	ErrorCode    *string   `json:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	AttemptCount int       `json:"attempt_count"`
	CreatedAt    time.Time `json:"created_at"`
}
