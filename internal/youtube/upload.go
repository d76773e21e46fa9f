package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	ytapi "google.golang.org/api/youtube/v3"
)

// Video is the uploaded video as reported by the API.
type Video struct {
	ID            string
	URL           string
	Title         string
	PrivacyStatus string
	PublishAt     time.Time
}

// ShortsURL returns the YouTube Shorts link for the video.
func (v *Video) ShortsURL() string {
	return "https://www.youtube.com/shorts/" + v.ID
}

func videoFromResource(r *ytapi.Video) *Video {
	v := &Video{
		ID:  r.Id,
		URL: "https://youtu.be/" + r.Id,
	}

	if r.Snippet != nil {
		v.Title = r.Snippet.Title
	}

	if r.Status != nil {
		v.PrivacyStatus = r.Status.PrivacyStatus
		if t, err := time.Parse(time.RFC3339, r.Status.PublishAt); err == nil {
			v.PublishAt = t
		}
	}

	return v
}

// StartResumableUpload validates md and negotiates a resumable upload
// session for media. Invalid metadata fails before any request is sent.
func (c *Client) StartResumableUpload(
	ctx context.Context, accessToken string, md Metadata, media *Media,
) (*UploadSession, error) {
	if err := md.Validate(c.nowFunc()); err != nil {
		return nil, err
	}

	if media == nil || media.Size <= 0 {
		return nil, fmt.Errorf("youtube: media is empty")
	}

	md = md.normalized()

	body, err := json.Marshal(md.toVideo())
	if err != nil {
		return nil, fmt.Errorf("youtube: marshaling video resource: %w", err)
	}

	endpoint := c.baseURL + "/videos?uploadType=resumable&part=snippet,status"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("youtube: creating session request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", media.ContentType)
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(media.Size, 10))
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Info("creating upload session",
		slog.String("name", media.Name),
		slog.Int64("size", media.Size),
		slog.String("content_type", media.ContentType),
		slog.String("privacy", md.Privacy.String()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("session request failed", slog.String("error", err.Error()))
		return nil, transportError(ctx, "initiating upload session", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		apiErr := newAPIError(resp, nil)
		apiErr.Err = classifyInitiation(apiErr.StatusCode, apiErr.Reason)

		c.logger.Warn("session initiation rejected",
			slog.Int("status", apiErr.StatusCode),
			slog.String("reason", apiErr.Reason),
		)

		return nil, apiErr
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "response has no Location header",
			Err:        ErrSessionInitiationFailed,
		}
	}

	// Drain to reuse the connection.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	session := newUploadSession(location, media.Size)

	c.logger.Info("upload session created", slog.String("session_id", session.ID))
	c.logger.Debug("upload session url", slog.String("session_id", session.ID), slog.String("url", location))

	return session, nil
}

// Upload streams media to the session URL in a single request. ctx is the
// cancellation signal: canceling it aborts the request and leaves the
// session Canceled. Once the final response has arrived cancellation has no
// effect. There is no automatic retry; after an ErrNetwork failure the
// transfer can be continued with Resume.
func (c *Client) Upload(
	ctx context.Context, session *UploadSession, media *Media, progress ProgressFunc,
) (*Video, error) {
	if !session.begin() {
		return nil, fmt.Errorf("%w: %s", ErrSessionState, session.State())
	}

	return c.transfer(ctx, session, media, 0, progress)
}

// transfer sends media from offset to the end and settles the session's
// terminal state. session must be Transferring.
func (c *Client) transfer(
	ctx context.Context, session *UploadSession, media *Media, offset int64, progress ProgressFunc,
) (*Video, error) {
	remaining := media.Size - offset

	var body io.Reader = io.NewSectionReader(media.Reader, offset, remaining)
	body = c.limiter.WrapReader(ctx, body)
	body = newProgressReader(ctx, body, session, c.progressInterval, progress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.URL, body)
	if err != nil {
		session.finish(StateFailed)
		return nil, fmt.Errorf("youtube: creating upload request: %w", err)
	}

	// The session URL is pre-authenticated, so no Authorization header.
	req.ContentLength = remaining
	req.Header.Set("Content-Type", media.ContentType)
	req.Header.Set("User-Agent", c.userAgent)

	if offset > 0 {
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, media.Size-1, media.Size))
	}

	c.logger.Info("uploading",
		slog.String("session_id", session.ID),
		slog.Int64("offset", offset),
		slog.Int64("size", media.Size),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.failTransfer(ctx, session, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		session.finish(StateFailed)

		apiErr := newAPIError(resp, ErrUploadRejected)

		c.logger.Warn("upload rejected",
			slog.String("session_id", session.ID),
			slog.Int("status", apiErr.StatusCode),
			slog.String("reason", apiErr.Reason),
		)

		return nil, apiErr
	}

	session.finish(StateCompleted)

	return c.decodeVideo(session, resp.Body)
}

// failTransfer settles the session after the request itself failed.
func (c *Client) failTransfer(ctx context.Context, session *UploadSession, err error) error {
	classified := transportError(ctx, "upload request", err)

	if errors.Is(ctx.Err(), context.Canceled) {
		session.finish(StateCanceled)

		c.logger.Info("upload canceled",
			slog.String("session_id", session.ID),
			slog.Int64("bytes_sent", session.BytesSent()),
		)

		return classified
	}

	session.finish(StateFailed)

	c.logger.Error("upload request failed",
		slog.String("session_id", session.ID),
		slog.Int64("bytes_sent", session.BytesSent()),
		slog.String("error", err.Error()),
	)

	return classified
}

func (c *Client) decodeVideo(session *UploadSession, r io.Reader) (*Video, error) {
	var res ytapi.Video
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("youtube: decoding upload response: %w", err)
	}

	v := videoFromResource(&res)

	c.logger.Info("upload complete",
		slog.String("session_id", session.ID),
		slog.String("video_id", v.ID),
	)

	return v, nil
}
