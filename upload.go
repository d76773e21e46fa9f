package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shorts-go/internal/config"
	"github.com/tonimelisma/shorts-go/internal/youtube"
)

// publishAtLocalLayout is accepted by --publish-at in the local time zone.
const publishAtLocalLayout = "2006-01-02 15:04"

// errNotSignedIn is returned when no usable token is stored.
var errNotSignedIn = errors.New("not signed in, run 'shorts-go login' first")

// uploadFlags holds the upload command's metadata flags.
type uploadFlags struct {
	title       string
	description string
	tags        string
	tagsSet     bool
	privacy     string
	publishAt   string
	madeForKids bool
	category    string
}

func newUploadCmd() *cobra.Command {
	var f uploadFlags

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a video",
		Long: `Upload a video file to YouTube with a resumable upload session.

Progress is shown while the file is sent. Ctrl-C cancels the upload. If the
connection fails midway the session URL is printed so the transfer can be
continued with 'shorts-go resume'.

Examples:
  shorts-go upload clip.mp4 --title "Morning run" --tags "running,shorts"
  shorts-go upload clip.mp4 --title "Launch" --publish-at "2026-11-01 09:00"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.tagsSet = cmd.Flags().Changed("tags")

			return runUpload(cmd, args[0], &f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "video title (required)")
	flags.StringVar(&f.description, "description", "", "video description")
	flags.StringVar(&f.tags, "tags", "", "comma-separated tags (default from config)")
	flags.StringVar(&f.privacy, "privacy", "", "private, unlisted or public (default from config)")
	flags.StringVar(&f.publishAt, "publish-at", "", `scheduled publish time, RFC 3339 or "2006-01-02 15:04" local time (private only)`)
	flags.BoolVar(&f.madeForKids, "made-for-kids", false, "declare the video as made for kids")
	flags.StringVar(&f.category, "category", "", "numeric category ID (default from config)")

	if err := cmd.MarkFlagRequired("title"); err != nil {
		panic(err)
	}

	return cmd
}

// buildMetadata turns flags plus config defaults into upload metadata. An
// explicit --tags, even an empty one, replaces the configured default tags.
func buildMetadata(f *uploadFlags, defaults *config.UploadConfig) (youtube.Metadata, error) {
	privacyName := f.privacy
	if privacyName == "" {
		privacyName = defaults.DefaultPrivacy
	}

	privacy, err := youtube.ParsePrivacy(privacyName)
	if err != nil {
		return youtube.Metadata{}, err
	}

	category := f.category
	if category == "" {
		category = defaults.CategoryID
	}

	tags := f.tags
	if !f.tagsSet {
		tags = defaults.DefaultTags
	}

	md := youtube.Metadata{
		Title:       f.title,
		Description: f.description,
		Tags:        youtube.ParseTags(tags),
		Privacy:     privacy,
		MadeForKids: f.madeForKids,
		CategoryID:  category,
	}

	if f.publishAt != "" {
		t, err := parsePublishAt(f.publishAt, time.Local)
		if err != nil {
			return youtube.Metadata{}, err
		}

		md.PublishAt = t
	}

	return md, nil
}

// parsePublishAt accepts RFC 3339 or "2006-01-02 15:04" in loc.
func parsePublishAt(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(publishAtLocalLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --publish-at %q: want RFC 3339 or %q", s, publishAtLocalLayout)
	}

	return t, nil
}

func runUpload(cmd *cobra.Command, path string, f *uploadFlags) error {
	cc := mustCLIContext(cmd.Context())

	md, err := buildMetadata(f, &cc.Cfg.Upload)
	if err != nil {
		return err
	}

	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	store, closeStore, err := openTokenStore(ctx, cc)
	if err != nil {
		return err
	}
	defer closeStore()

	token, err := newManager(cc, store).EnsureAccessToken(ctx)
	if err != nil {
		return err
	}

	if token == "" {
		return errNotSignedIn
	}

	media, err := youtube.OpenMedia(path)
	if err != nil {
		return err
	}
	defer media.Close()

	client, err := newUploadClient(cc)
	if err != nil {
		return err
	}

	cc.Logger.Info("upload started",
		slog.String("file", media.Name),
		slog.String("content_type", media.ContentType),
		slog.Int64("size", media.Size),
		slog.String("privacy", md.Privacy.String()),
	)

	session, err := client.StartResumableUpload(ctx, token, md, media)
	if err != nil {
		return err
	}

	cc.Statusf("Uploading %s (%s)\n", media.Name, formatSize(media.Size))

	video, err := runWithProgress(newProgressRenderer(cc, isTerminal(cc.Stderr)),
		func(progress youtube.ProgressFunc) (*youtube.Video, error) {
			return client.Upload(ctx, session, media, progress)
		})
	if err != nil {
		if youtube.IsResumable(err) {
			printResumeHint(cc.Stderr, path, session.URL)
		}

		return err
	}

	return printVideo(cc, video)
}

// printResumeHint tells the user how to continue an interrupted upload.
func printResumeHint(w io.Writer, path, sessionURL string) {
	fmt.Fprintln(w, warnStyle.Render("The upload was interrupted. Continue it with:"))
	fmt.Fprintf(w, "  shorts-go resume %q --session-url %q\n", path, sessionURL)
}

// videoOutput is the JSON schema for upload and resume results.
type videoOutput struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ShortsURL string    `json:"shorts_url"`
	Title     string    `json:"title"`
	Privacy   string    `json:"privacy"`
	PublishAt time.Time `json:"publish_at,omitzero"`
}

func printVideo(cc *CLIContext, v *youtube.Video) error {
	if cc.Flags.JSON {
		return writeJSON(cc.Stdout, videoOutput{
			ID:        v.ID,
			URL:       v.URL,
			ShortsURL: v.ShortsURL(),
			Title:     v.Title,
			Privacy:   v.PrivacyStatus,
			PublishAt: v.PublishAt,
		})
	}

	cc.Statusf("%s\n", successStyle.Render("Upload complete."))
	fmt.Fprintln(cc.Stdout, v.ShortsURL())

	if !v.PublishAt.IsZero() {
		cc.Statusf("Scheduled to publish %s\n", v.PublishAt.Local().Format(publishAtLocalLayout))
	}

	return nil
}
