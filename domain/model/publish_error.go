package model

import "fmt"

// ErrorKind partitions publish failures by how the caller should react.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation" // user must edit content
	ErrKindCredential ErrorKind = "credential" // user must re-authorize
	ErrKindCapability ErrorKind = "capability" // account class forbids the operation
	ErrKindTransient  ErrorKind = "transient"  // retried with backoff
	ErrKindPermanent  ErrorKind = "permanent"  // never retried
)

// Stable machine error codes surfaced to the caller alongside the message.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeCredentialInvalid = "CREDENTIAL_INVALID"
	CodeCapabilityDenied  = "CAPABILITY_DENIED"
	CodeRateLimited       = "RATE_LIMITED"
	CodePlatformRejected  = "PLATFORM_REJECTED"
	CodePlatformDown      = "PLATFORM_UNAVAILABLE"
	CodeRetryExhausted    = "RETRY_EXHAUSTED"
	CodeConfigNotFound    = "CONFIG_NOT_FOUND"
)

// PublishError is the classified failure of a publish step. Lower layers
// return narrow errors; only the orchestrator's classifier produces these.
type PublishError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Retryable reports whether the backoff loop may try again.
func (e *PublishError) Retryable() bool { return e.Kind == ErrKindTransient }

func NewValidationError(msg string) *PublishError {
	return &PublishError{Kind: ErrKindValidation, Code: CodeValidationFailed, Message: msg}
}

func NewCredentialError(msg string, err error) *PublishError {
	return &PublishError{Kind: ErrKindCredential, Code: CodeCredentialInvalid, Message: msg, Err: err}
}

func NewCapabilityError(msg string) *PublishError {
	return &PublishError{Kind: ErrKindCapability, Code: CodeCapabilityDenied, Message: msg}
}

// PlatformAPIError is the raw error a platform client reports: the numeric
// code from the remote API plus, for multi-step publishes, which step failed.
type PlatformAPIError struct {
	Platform Platform
	Step     string // "", or thumbnail | draft | submit
	Code     int
	Message  string
}

func (e *PlatformAPIError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s %s step failed: code %d: %s", e.Platform, e.Step, e.Code, e.Message)
	}
	return fmt.Sprintf("%s api error: code %d: %s", e.Platform, e.Code, e.Message)
}

// Multi-step publish step tags reported on PlatformAPIError.
const (
	StepThumbnail = "thumbnail"
	StepDraft     = "draft"
	StepSubmit    = "submit"
)
