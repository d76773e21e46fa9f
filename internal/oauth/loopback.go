package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/tonimelisma/shorts-go/internal/tokenstore"
)

const (
	// loginTimeout bounds the whole interactive loopback login.
	loginTimeout = 5 * time.Minute

	// shutdownTimeout is how long to wait for the callback server to drain.
	shutdownTimeout = 5 * time.Second
)

// callbackResult carries the outcome of the single handled callback.
type callbackResult struct {
	token *tokenstore.TokenSet
	err   error
}

// LoginWithLoopback runs the interactive flow for a command-line client: it
// listens on the configured loopback redirect URI, sends the user to the
// provider and completes the exchange when the browser comes back.
//
// A redirect URI with port 0 binds a random port and the issued redirect URI
// is rewritten to match.
func (m *Manager) LoginWithLoopback(ctx context.Context) (*tokenstore.TokenSet, error) {
	if !m.configured() {
		return nil, ErrNotConfigured
	}

	redirect, err := loopbackRedirect(m.cfg.RedirectURI)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("oauth: binding loopback listener: %w", err)
	}

	// Port 0 resolves to whatever the kernel picked.
	if _, port, splitErr := net.SplitHostPort(listener.Addr().String()); splitErr == nil {
		redirect.Host = net.JoinHostPort(redirect.Hostname(), port)
	}

	m.logger.InfoContext(ctx, "callback server listening",
		slog.String("addr", redirect.Host),
	)

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	m.registerCallbackHandler(ctx, mux, redirect.Path, resultCh)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("oauth: callback server error: %w", serveErr)}:
			default:
			}
		}
	}()

	defer m.shutdownCallbackServer(srv)

	authURL, err := m.prepareAuth(ctx, redirect.String())
	if err != nil {
		return nil, err
	}

	m.launch(ctx, authURL)

	select {
	case res := <-resultCh:
		return res.token, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("oauth: browser login canceled: %w", ctx.Err())
	}
}

// loopbackRedirect checks that raw is an http URL on a loopback host and
// returns it with an explicit port and path.
func loopbackRedirect(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("oauth: parsing redirect uri: %w", err)
	}

	if u.Scheme != "http" {
		return nil, fmt.Errorf("oauth: loopback login needs an http redirect uri, got %q", raw)
	}

	host := u.Hostname()
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return nil, fmt.Errorf("oauth: redirect uri host %q is not a loopback address", host)
		}
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}

	u.Host = net.JoinHostPort(host, port)

	if u.Path == "" {
		u.Path = "/"
	}

	return u, nil
}

// registerCallbackHandler serves the redirect path. Only the first request
// is processed; the pending request it consumes cannot be reused anyway.
func (m *Manager) registerCallbackHandler(
	ctx context.Context,
	mux *http.ServeMux,
	path string,
	resultCh chan<- callbackResult,
) {
	var handled atomic.Bool

	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		// "GET /" matches every path; ignore favicon and friends.
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		if !handled.CompareAndSwap(false, true) {
			http.Error(w, "Authorization already handled", http.StatusConflict)
			return
		}

		ts, err := m.HandleRedirectCallback(ctx, ParseCallback(r.URL.Query()))
		writeResultPage(w, err)

		select {
		case resultCh <- callbackResult{token: ts, err: err}:
		default:
		}
	})
}

func writeResultPage(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>",
			html.EscapeString(err.Error()))

		return
	}

	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
}

func (m *Manager) shutdownCallbackServer(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}
