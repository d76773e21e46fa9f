package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shorts-go/internal/oauth"
)

func newLoginCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your Google account",
		Long: `Sign in with Google and store the access and refresh tokens.

A local callback server listens on the configured redirect URI while the
browser completes the consent screen. With --no-browser the authorization URL
is printed instead of opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, noBrowser)
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorization URL instead of opening a browser")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored tokens",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are signed in",
		Long: `Show the stored token's state without contacting Google: whether a token
exists, when it expires, whether it can be refreshed and which scopes it holds.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

// printURLNavigator shows the authorization URL instead of opening it.
func printURLNavigator(w io.Writer) func(string) error {
	return func(authURL string) error {
		fmt.Fprintf(w, "Open this URL in your browser:\n%s\n", authURL)
		return nil
	}
}

func runLogin(cmd *cobra.Command, noBrowser bool) error {
	cc := mustCLIContext(cmd.Context())

	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	store, closeStore, err := openTokenStore(ctx, cc)
	if err != nil {
		return err
	}
	defer closeStore()

	var opts []oauth.Option
	if noBrowser {
		opts = append(opts, oauth.WithNavigator(printURLNavigator(cc.Stderr)))
	}

	mgr := newManager(cc, store, opts...)

	cc.Logger.Info("login started", slog.String("redirect_uri", cc.Cfg.OAuth.RedirectURI))
	cc.Statusf("Waiting for the browser to finish signing in...\n")

	ts, err := mgr.LoginWithLoopback(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cc.Logger.Info("login successful", slog.Time("expires_at", ts.ExpiresAt))
	cc.Statusf("%s\n", successStyle.Render("Signed in."))

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, closeStore, err := openTokenStore(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := newManager(cc, store).ClearTokens(); err != nil {
		return err
	}

	cc.Statusf("Signed out.\n")

	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, closeStore, err := openTokenStore(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer closeStore()

	st, err := newManager(cc, store).Status(cmd.Context())
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Stdout, st)
	}

	printStatusText(cc.Stdout, st, time.Now())

	return nil
}

func printStatusText(w io.Writer, st oauth.SessionStatus, now time.Time) {
	if !st.SignedIn {
		fmt.Fprintln(w, errorStyle.Render("Not signed in."))
		fmt.Fprintln(w, hintStyle.Render("Run: shorts-go login"))

		return
	}

	state := successStyle.Render("valid")
	if st.Expired {
		state = warnStyle.Render("expired")
	}

	refresh := "no"
	if st.HasRefreshToken {
		refresh = "yes"
	}

	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Signed in:"), successStyle.Render("yes"))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Token:    "), state)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Expires:  "), formatTime(st.ExpiresAt, now))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Refresh:  "), refresh)

	if st.Scope != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Scope:    "), st.Scope)
	}

	if st.Expired && !st.HasRefreshToken {
		fmt.Fprintln(w, hintStyle.Render("The token cannot be refreshed. Run: shorts-go login"))
	}
}
