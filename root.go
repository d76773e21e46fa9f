package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/shorts-go/internal/config"
	"github.com/tonimelisma/shorts-go/internal/oauth"
	"github.com/tonimelisma/shorts-go/internal/tokenstore"
	"github.com/tonimelisma/shorts-go/internal/youtube"
)

// version is set at build time via ldflags.
var version = "dev"

// Process exit codes.
const (
	exitFailure  = 1
	exitCanceled = 130
)

// tokenKey names the single token slot in every store backend.
const tokenKey = "youtube"

// dotEnvFile is loaded from the working directory before config resolution.
const dotEnvFile = ".env"

// CLIFlags holds the global persistent flags.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries everything a subcommand needs. It is built once in
// PersistentPreRunE and stored in the command's context.
type CLIContext struct {
	Flags   CLIFlags
	Cfg     *config.Config
	CfgPath string
	Logger  *slog.Logger
	Stdout  io.Writer
	Stderr  io.Writer
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext installed by the root pre-run hook.
// Panics if it is missing, which means a command ran without the root.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		panic("BUG: CLIContext not found in context")
	}

	return cc
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	flags := &CLIFlags{}

	cmd := &cobra.Command{
		Use:     "shorts-go",
		Short:   "Upload short videos to YouTube",
		Long:    "A command-line client that signs in with Google and uploads short videos to YouTube.",
		Version: version,
		// Errors are printed by main with their exit code.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := loadCLIContext(*flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newResumeCmd())

	return cmd
}

// loadCLIContext runs the override chain and builds the logger.
func loadCLIContext(flags CLIFlags, stdout, stderr io.Writer) (*CLIContext, error) {
	boot := bootstrapLogger(flags, stderr)

	if err := config.LoadDotEnv(dotEnvFile, boot); err != nil {
		return nil, err
	}

	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}
	if level := flagLogLevel(flags); level != "" {
		cli.LogLevel = &level
	}

	cfg, cfgPath, err := config.Resolve(config.ReadEnvOverrides(boot), cli, boot)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &CLIContext{
		Flags:   flags,
		Cfg:     cfg,
		CfgPath: cfgPath,
		Logger:  buildLogger(&cfg.Logging, stderr, isTerminal(stderr)),
		Stdout:  stdout,
		Stderr:  stderr,
	}, nil
}

// flagLogLevel maps --verbose and --quiet to a log level; empty means the
// config decides.
func flagLogLevel(flags CLIFlags) string {
	switch {
	case flags.Verbose:
		return "debug"
	case flags.Quiet:
		return "error"
	default:
		return ""
	}
}

// bootstrapLogger is used before config is loaded. Warn by default so config
// debug output only shows with --verbose.
func bootstrapLogger(flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if flags.Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// buildLogger creates the logger from the resolved logging section. The
// "auto" format picks text for a terminal and JSON otherwise.
func buildLogger(l *config.LoggingConfig, w io.Writer, tty bool) *slog.Logger {
	level := slog.LevelInfo

	switch l.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if l.LogFormat == "json" || (l.LogFormat == "auto" && !tty) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newHTTPClient builds a client from the network section. There is no
// overall timeout: uploads are long-lived, so only the dial and the wait for
// response headers are bounded.
func newHTTPClient(n *config.NetworkConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   n.ConnectTimeoutDuration(),
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = n.ConnectTimeoutDuration()
	transport.ResponseHeaderTimeout = n.DataTimeoutDuration()

	return &http.Client{Transport: transport}
}

// tokenStore is what the Manager needs from a backend.
type tokenStore interface {
	tokenstore.Store
	tokenstore.PendingStore
}

// openTokenStore opens the configured backend. The returned close function
// is always safe to call.
func openTokenStore(ctx context.Context, cc *CLIContext) (tokenStore, func(), error) {
	dir := cc.Cfg.Storage.DataDir

	switch cc.Cfg.Storage.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}

		s, err := tokenstore.OpenSQLite(ctx, filepath.Join(dir, config.DatabaseFileName), tokenKey, cc.Logger)
		if err != nil {
			return nil, nil, err
		}

		return s, func() {
			if err := s.Close(); err != nil {
				cc.Logger.Warn("closing token database", slog.String("error", err.Error()))
			}
		}, nil
	default:
		cc.Logger.Debug("using file token store", slog.String("dir", dir))

		return tokenstore.NewFileStore(dir, tokenKey), func() {}, nil
	}
}

// newManager builds an OAuth manager over store from the [oauth] section.
func newManager(cc *CLIContext, store tokenStore, opts ...oauth.Option) *oauth.Manager {
	o := cc.Cfg.OAuth

	base := []oauth.Option{
		oauth.WithLogger(cc.Logger),
		oauth.WithHTTPClient(newHTTPClient(&cc.Cfg.Network)),
		oauth.WithOutput(cc.Stderr),
	}

	return oauth.NewManager(oauth.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURI:  o.RedirectURI,
		Scopes:       o.Scopes,
		AuthURL:      o.AuthURL,
		TokenURL:     o.TokenURL,
	}, store, store, append(base, opts...)...)
}

// newUploadClient builds the YouTube client from the [upload] and [network]
// sections.
func newUploadClient(cc *CLIContext) (*youtube.Client, error) {
	limiter, err := youtube.NewBandwidthLimiter(cc.Cfg.Upload.BandwidthLimit, cc.Logger)
	if err != nil {
		return nil, err
	}

	opts := []youtube.Option{
		youtube.WithProgressInterval(cc.Cfg.Upload.ProgressIntervalBytes()),
		youtube.WithBandwidthLimiter(limiter),
	}

	if ua := cc.Cfg.Network.UserAgent; ua != "" {
		opts = append(opts, youtube.WithUserAgent(ua))
	}

	return youtube.NewClient(cc.Cfg.Upload.APIURL, newHTTPClient(&cc.Cfg.Network), cc.Logger, opts...), nil
}

// reportError prints err to w and returns the process exit code.
// Cancellation is reported on its own line, not as a failure.
func reportError(w io.Writer, err error) int {
	switch {
	case errors.Is(err, youtube.ErrCanceled):
		fmt.Fprintln(w, "Upload canceled")
		return exitCanceled
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Canceled")
		return exitCanceled
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailure
	}
}
