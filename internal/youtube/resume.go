package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	ytapi "google.golang.org/api/youtube/v3"
)

// statusResumeIncomplete is the status the upload endpoint returns for a
// session that has not received every byte.
const statusResumeIncomplete = http.StatusPermanentRedirect

// QueryStatus asks the provider how many bytes of a total-byte upload it has
// received. done is true when the upload already completed.
func (c *Client) QueryStatus(ctx context.Context, sessionURL string, total int64) (int64, bool, error) {
	received, video, err := c.queryStatus(ctx, sessionURL, total)

	return received, video != nil, err
}

// queryStatus also returns the video resource when the upload is done.
func (c *Client) queryStatus(ctx context.Context, sessionURL string, total int64) (int64, *Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("youtube: creating status request: %w", err)
	}

	req.ContentLength = 0
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", total))
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, transportError(ctx, "querying upload status", err)
	}
	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
		var res ytapi.Video
		if decErr := json.NewDecoder(resp.Body).Decode(&res); decErr != nil {
			return 0, nil, fmt.Errorf("youtube: decoding status response: %w", decErr)
		}

		return total, videoFromResource(&res), nil

	case resp.StatusCode == statusResumeIncomplete:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

		received, parseErr := parseReceivedRange(resp.Header.Get("Range"))
		if parseErr != nil {
			return 0, nil, parseErr
		}

		c.logger.Debug("upload status",
			slog.Int64("received", received),
			slog.Int64("total", total),
		)

		return received, nil, nil

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return 0, nil, newAPIError(resp, ErrSessionExpired)

	default:
		return 0, nil, newAPIError(resp, ErrUploadRejected)
	}
}

// parseReceivedRange turns a "bytes=0-N" Range header into N+1. An absent
// header means nothing has been received.
func parseReceivedRange(h string) (int64, error) {
	if h == "" {
		return 0, nil
	}

	spec, ok := strings.CutPrefix(h, "bytes=")
	if !ok {
		return 0, fmt.Errorf("youtube: malformed Range header %q", h)
	}

	_, last, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, fmt.Errorf("youtube: malformed Range header %q", h)
	}

	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("youtube: malformed Range header %q", h)
	}

	return n + 1, nil
}

// Resume continues an interrupted upload on sessionURL. It opens a fresh
// UploadSession for the URL, asks the provider how far the previous transfer
// got and sends the rest. Progress reports start at the confirmed offset.
func (c *Client) Resume(
	ctx context.Context, sessionURL string, media *Media, progress ProgressFunc,
) (*UploadSession, *Video, error) {
	session := newUploadSession(sessionURL, media.Size)
	session.begin()

	c.logger.Info("resuming upload",
		slog.String("session_id", session.ID),
		slog.Int64("size", media.Size),
	)

	received, video, err := c.queryStatus(ctx, sessionURL, media.Size)
	if err != nil {
		if errors.Is(err, ErrCanceled) {
			session.finish(StateCanceled)
		} else {
			session.finish(StateFailed)
		}

		c.logger.Warn("upload status query failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)

		return session, nil, err
	}

	if video != nil {
		session.setSent(media.Size)
		session.finish(StateCompleted)

		c.logger.Info("upload already complete",
			slog.String("session_id", session.ID),
			slog.String("video_id", video.ID),
		)

		return session, video, nil
	}

	if received >= media.Size {
		session.finish(StateFailed)
		return session, nil, fmt.Errorf("%w: provider reports %d of %d bytes", ErrUploadRejected, received, media.Size)
	}

	session.setSent(received)

	if received > 0 && progress != nil {
		progress(Progress{BytesSent: received, TotalBytes: media.Size})
	}

	video, err = c.transfer(ctx, session, media, received, progress)

	return session, video, err
}
