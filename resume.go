package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shorts-go/internal/youtube"
)

func newResumeCmd() *cobra.Command {
	var sessionURL string

	cmd := &cobra.Command{
		Use:   "resume FILE",
		Short: "Continue an interrupted upload",
		Long: `Continue an upload whose connection failed. The session URL is the one
printed by the failed upload; the server reports how many bytes it already
has and only the rest of FILE is sent.

Examples:
  shorts-go resume clip.mp4 --session-url "https://www.googleapis.com/upload/youtube/v3/videos?upload_id=..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, args[0], sessionURL)
		},
	}

	cmd.Flags().StringVar(&sessionURL, "session-url", "", "upload session URL from the interrupted upload")

	if err := cmd.MarkFlagRequired("session-url"); err != nil {
		panic(err)
	}

	return cmd
}

func runResume(cmd *cobra.Command, path, sessionURL string) error {
	cc := mustCLIContext(cmd.Context())

	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	media, err := youtube.OpenMedia(path)
	if err != nil {
		return err
	}
	defer media.Close()

	client, err := newUploadClient(cc)
	if err != nil {
		return err
	}

	cc.Logger.Debug("resuming upload", slog.String("file", media.Name), slog.String("session_url", sessionURL))
	cc.Statusf("Resuming %s (%s)\n", media.Name, formatSize(media.Size))

	video, err := runWithProgress(newProgressRenderer(cc, isTerminal(cc.Stderr)),
		func(progress youtube.ProgressFunc) (*youtube.Video, error) {
			_, v, resumeErr := client.Resume(ctx, sessionURL, media, progress)
			return v, resumeErr
		})
	if err != nil {
		if youtube.IsResumable(err) {
			printResumeHint(cc.Stderr, path, sessionURL)
		}

		return err
	}

	return printVideo(cc, video)
}
