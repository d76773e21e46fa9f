package youtube

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for upload failures. Use errors.Is(err, youtube.ErrQuotaExceeded)
// to check.
var (
	ErrInvalidMetadata         = errors.New("youtube: invalid metadata")
	ErrUnauthorized            = errors.New("youtube: unauthorized")
	ErrQuotaExceeded           = errors.New("youtube: quota exceeded")
	ErrSessionInitiationFailed = errors.New("youtube: upload session initiation failed")
	ErrNetwork                 = errors.New("youtube: network error")
	ErrUploadRejected          = errors.New("youtube: upload rejected")
	ErrCanceled                = errors.New("youtube: upload canceled")
	ErrSessionState            = errors.New("youtube: upload session in wrong state")
	ErrSessionExpired          = errors.New("youtube: upload session expired")
)

// MetadataError names the metadata field that failed validation.
type MetadataError struct {
	Field  string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("youtube: invalid metadata: %s %s", e.Field, e.Reason)
}

func (e *MetadataError) Unwrap() error {
	return ErrInvalidMetadata
}

// APIError wraps a sentinel error with the HTTP status, the API's error
// reason and the raw response body for diagnosing rejections.
type APIError struct {
	StatusCode int
	Reason     string // e.g. "quotaExceeded", empty when the body has none
	Message    string
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Err, e.StatusCode)

	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}

	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsResumable reports whether err left the upload session usable, so the
// transfer can be continued with Resume.
func IsResumable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// quotaReasons are the googleapi error reasons that mean the caller has run
// out of quota rather than sent a bad request.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"uploadLimitExceeded":   true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// newAPIError reads a non-2xx response into an APIError of the given kind.
func newAPIError(resp *http.Response, kind error) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Err: kind}

	var gerr *googleapi.Error
	if errors.As(googleapi.CheckResponse(resp), &gerr) {
		apiErr.Message = gerr.Message
		apiErr.Body = gerr.Body

		if len(gerr.Errors) > 0 {
			apiErr.Reason = gerr.Errors[0].Reason
			if apiErr.Message == "" {
				apiErr.Message = gerr.Errors[0].Message
			}
		}

		return apiErr
	}

	// 2xx bodies are not consumed by CheckResponse.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr.Body = string(body)

	return apiErr
}

// classifyInitiation maps a failed session-initiation response to a sentinel.
func classifyInitiation(status int, reason string) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case (status == http.StatusForbidden || status == http.StatusTooManyRequests) && quotaReasons[reason]:
		return ErrQuotaExceeded
	default:
		return ErrSessionInitiationFailed
	}
}
