// Package youtube drives the YouTube Data API v3 resumable upload protocol:
// session initiation with metadata, a streamed transfer with progress
// reporting and cancellation, and resumption of an interrupted transfer.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the YouTube Data API v3 upload endpoint.
const DefaultBaseURL = "https://www.googleapis.com/upload/youtube/v3"

// DefaultProgressInterval is how many bytes pass between progress reports.
const DefaultProgressInterval = 256 * 1024

const defaultUserAgent = "shorts-go"

// maxErrorBody caps how much of an unparsed error body is kept.
const maxErrorBody = 64 * 1024

// Client talks to the upload endpoint. It is safe for concurrent use; each
// upload has its own UploadSession.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	logger           *slog.Logger
	userAgent        string
	limiter          *BandwidthLimiter
	progressInterval int64
	nowFunc          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBandwidthLimiter throttles transfer bodies. A nil limiter is unlimited.
func WithBandwidthLimiter(bl *BandwidthLimiter) Option {
	return func(c *Client) { c.limiter = bl }
}

// WithProgressInterval sets the byte interval between progress reports.
// Non-positive values keep the default.
func WithProgressInterval(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.progressInterval = n
		}
	}
}

// WithClock overrides time.Now for publish-time validation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.nowFunc = now }
}

// NewClient creates a Client for baseURL. An empty baseURL means
// DefaultBaseURL; a nil httpClient means http.DefaultClient. The transfer
// can take a long time, so httpClient should not carry a short overall
// Timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       httpClient,
		logger:           logger,
		userAgent:        defaultUserAgent,
		progressInterval: DefaultProgressInterval,
		nowFunc:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// transportError classifies a failed round trip. Cancellation of ctx is
// reported as ErrCanceled; anything else, deadlines included, as ErrNetwork.
func transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("youtube: %s: %w", op, ErrCanceled)
	}

	return fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
