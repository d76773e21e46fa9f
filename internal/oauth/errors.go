package oauth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authorization flow. Use errors.Is to check.
var (
	ErrNotConfigured            = errors.New("oauth: client id and redirect uri must be configured")
	ErrAuthorizationDenied      = errors.New("oauth: authorization denied")
	ErrMissingAuthorizationCode = errors.New("oauth: callback missing authorization code")
	ErrStateMismatch            = errors.New("oauth: state mismatch (possible CSRF)")
	ErrExchangeFailed           = errors.New("oauth: token exchange failed")
	ErrRefreshFailed            = errors.New("oauth: token refresh failed")
)

// ProviderError carries what the provider reported alongside one of the
// sentinel errors above.
type ProviderError struct {
	Kind        error  // sentinel, for errors.Is()
	Code        string // OAuth error code, e.g. "access_denied"
	Description string
	StatusCode  int    // token endpoint HTTP status, 0 for redirect errors
	Body        string // raw token endpoint response body
	Err         error  // underlying transport error, if any
}

func (e *ProviderError) Error() string {
	msg := e.Kind.Error()

	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.StatusCode)
	}

	if e.Code != "" {
		msg += ": " + e.Code
	}

	if e.Description != "" {
		msg += ": " + e.Description
	}

	if e.Code == "" && e.Body != "" {
		msg += ": " + e.Body
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}
