package usecase

import (
	"context"
	"errors"
	"fmt"

	"socialdesk/domain/model"
)

// classification pairs the error kind with the stable code surfaced to the
// caller.
type classification struct {
	kind model.ErrorKind
	code string
}

// Per-platform API code tables. Codes absent from a table classify as
// permanent: an unknown rejection must not burn retries against a platform
// that already said no.
var weiboCodes = map[int]classification{
	21332: {model.ErrKindCredential, model.CodeCredentialInvalid}, // invalid access token
	21327: {model.ErrKindCredential, model.CodeCredentialInvalid}, // expired token
	21314: {model.ErrKindCredential, model.CodeCredentialInvalid}, // token used
	21315: {model.ErrKindCredential, model.CodeCredentialInvalid}, // token expired
	21316: {model.ErrKindCredential, model.CodeCredentialInvalid}, // token revoked
	21317: {model.ErrKindCredential, model.CodeCredentialInvalid}, // token rejected
	10022: {model.ErrKindTransient, model.CodeRateLimited},        // ip requests out of rate limit
	10023: {model.ErrKindTransient, model.CodeRateLimited},        // user requests out of rate limit
	10024: {model.ErrKindTransient, model.CodeRateLimited},        // api requests out of rate limit
	20019: {model.ErrKindPermanent, model.CodePlatformRejected},   // repeated content
	20012: {model.ErrKindPermanent, model.CodePlatformRejected},   // text too long
	21301: {model.ErrKindPermanent, model.CodePlatformRejected},   // auth faild
	21321: {model.ErrKindPermanent, model.CodePlatformRejected},   // unaudited application use restricted
}

var wechatCodes = map[int]classification{
	-1:    {model.ErrKindTransient, model.CodePlatformDown},       // system busy
	40001: {model.ErrKindCredential, model.CodeCredentialInvalid}, // invalid credential
	42001: {model.ErrKindCredential, model.CodeCredentialInvalid}, // access_token expired
	40013: {model.ErrKindPermanent, model.CodePlatformRejected},   // invalid appid
	40164: {model.ErrKindPermanent, model.CodePlatformRejected},   // ip not in whitelist
	87014: {model.ErrKindPermanent, model.CodePlatformRejected},   // risky content
	45009: {model.ErrKindTransient, model.CodeRateLimited},        // reach max api daily quota
	45011: {model.ErrKindTransient, model.CodeRateLimited},        // frequency limit
	48001: {model.ErrKindCapability, model.CodeCapabilityDenied},  // api unauthorized for this account
}

var platformCodes = map[model.Platform]map[int]classification{
	model.PlatformWeibo:  weiboCodes,
	model.PlatformWechat: wechatCodes,
}

// classifyError folds any error coming out of an adapter or the credential
// path into a PublishError. Already-classified errors pass through; platform
// API codes go through the static tables; everything else (timeouts, refused
// connections, 5xx bodies that did not parse) counts as a transient platform
// outage.
func classifyError(err error) *model.PublishError {
	var pubErr *model.PublishError
	if errors.As(err, &pubErr) {
		return pubErr
	}

	var apiErr *model.PlatformAPIError
	if errors.As(err, &apiErr) {
		if table, ok := platformCodes[apiErr.Platform]; ok {
			if cls, ok := table[apiErr.Code]; ok {
				return &model.PublishError{
					Kind:    cls.kind,
					Code:    cls.code,
					Message: apiErr.Error(),
					Err:     err,
				}
			}
		}
		return &model.PublishError{
			Kind:    model.ErrKindPermanent,
			Code:    model.CodePlatformRejected,
			Message: apiErr.Error(),
			Err:     err,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &model.PublishError{
			Kind:    model.ErrKindTransient,
			Code:    model.CodePlatformDown,
			Message: fmt.Sprintf("request aborted: %v", err),
			Err:     err,
		}
	}

	return &model.PublishError{
		Kind:    model.ErrKindTransient,
		Code:    model.CodePlatformDown,
		Message: fmt.Sprintf("platform unreachable: %v", err),
		Err:     err,
	}
}
