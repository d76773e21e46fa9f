// Package oauth implements the OAuth2 authorization-code flow (with PKCE and
// a state nonce) and the access-token lifecycle against Google's provider.
//
// The Manager is the sole writer of the token store. Every other component
// obtains a bearer token through EnsureAccessToken, which refreshes silently
// when the stored token has expired.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tonimelisma/shorts-go/internal/tokenstore"
)

// DefaultScopes lets the client upload videos and read back the channel's
// own uploads.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

const (
	// stateTokenBytes is the number of random bytes for the state parameter.
	stateTokenBytes = 16

	// pendingTTL bounds how long an issued authorization request is honored.
	pendingTTL = 10 * time.Minute

	defaultExpirySkew = 60 * time.Second
)

// Config describes the OAuth client registration. AuthURL and TokenURL
// default to Google's endpoints when empty.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
}

// Callback holds the query parameters the provider appends to the redirect.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallback extracts a Callback from redirect query parameters.
func ParseCallback(q url.Values) Callback {
	return Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// SessionStatus describes the stored token without touching the network.
type SessionStatus struct {
	SignedIn        bool      `json:"signed_in"`
	Expired         bool      `json:"expired"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	ExpiresAt       time.Time `json:"expires_at,omitzero"`
	Scope           string    `json:"scope,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithNavigator replaces the function used to send the user to the
// authorization URL. The default opens the system browser.
func WithNavigator(fn func(string) error) Option {
	return func(m *Manager) { m.navigate = fn }
}

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.nowFunc = now }
}

// WithExpirySkew sets how long before ExpiresAt a token is treated as expired.
func WithExpirySkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// WithOutput sets where the authorization URL is printed when the navigator
// fails. Defaults to os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.out = w }
}

// Manager owns the authorization flow and the token lifecycle.
type Manager struct {
	cfg        Config
	oauth      *oauth2.Config
	store      tokenstore.Store
	pending    tokenstore.PendingStore
	navigate   func(string) error
	httpClient *http.Client
	logger     *slog.Logger
	nowFunc    func() time.Time
	skew       time.Duration
	out        io.Writer

	// mu serializes EnsureAccessToken so concurrent callers share one refresh.
	mu sync.Mutex
}

// NewManager builds a Manager. Misconfiguration (missing client id or
// redirect URI) is reported lazily by the operations that need it.
func NewManager(cfg Config, store tokenstore.Store, pending tokenstore.PendingStore, opts ...Option) *Manager {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}

	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	// Credentials go in the form body, so a rejected request is sent once
	// instead of being retried with the other auth style.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	m := &Manager{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
		},
		store:    store,
		pending:  pending,
		navigate: browser.OpenURL,
		logger:   slog.Default(),
		nowFunc:  time.Now,
		skew:     defaultExpirySkew,
		out:      os.Stderr,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) now() time.Time {
	return m.nowFunc()
}

// clientContext carries the configured HTTP client into x/oauth2 calls.
func (m *Manager) clientContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *Manager) configured() bool {
	return m.cfg.ClientID != "" && m.cfg.RedirectURI != ""
}

// BeginAuth issues a new authorization request and sends the user to the
// provider. A navigator failure prints the URL instead of failing.
func (m *Manager) BeginAuth(ctx context.Context) error {
	authURL, err := m.prepareAuth(ctx, m.cfg.RedirectURI)
	if err != nil {
		return err
	}

	m.launch(ctx, authURL)

	return nil
}

// AuthURL issues a new authorization request and returns the URL the user
// must visit, without navigating.
func (m *Manager) AuthURL(ctx context.Context) (string, error) {
	return m.prepareAuth(ctx, m.cfg.RedirectURI)
}

// prepareAuth persists a fresh pending request for redirectURI and builds the
// matching authorization URL.
func (m *Manager) prepareAuth(ctx context.Context, redirectURI string) (string, error) {
	if !m.configured() {
		return "", ErrNotConfigured
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("oauth: generating state token: %w", err)
	}

	verifier := oauth2.GenerateVerifier()

	req := &tokenstore.PendingAuth{
		State:       state,
		Verifier:    verifier,
		RedirectURI: redirectURI,
		Scopes:      m.cfg.Scopes,
		CreatedAt:   m.now(),
	}

	if err := m.pending.PutPending(req); err != nil {
		return "", fmt.Errorf("oauth: saving authorization request: %w", err)
	}

	cfg := *m.oauth
	cfg.RedirectURL = redirectURI

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)

	m.logger.DebugContext(ctx, "authorization request issued",
		slog.String("redirect_uri", redirectURI),
		slog.String("scope", strings.Join(m.cfg.Scopes, " ")),
	)

	return authURL, nil
}

// launch opens the authorization URL, falling back to printing it.
func (m *Manager) launch(ctx context.Context, authURL string) {
	m.logger.InfoContext(ctx, "opening browser for authorization")

	if err := m.navigate(authURL); err != nil {
		m.logger.WarnContext(ctx, "failed to open browser, printing URL",
			slog.String("error", err.Error()),
		)

		fmt.Fprintf(m.out, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// HandleRedirectCallback validates the provider's redirect and exchanges the
// authorization code for a token set, which is persisted and returned.
// Failures never modify the token store.
func (m *Manager) HandleRedirectCallback(ctx context.Context, cb Callback) (*tokenstore.TokenSet, error) {
	// The request is consumed by any callback, including a denial.
	req, issued, err := m.takePending(ctx)
	if err != nil {
		return nil, err
	}

	if cb.Error != "" {
		m.logger.WarnContext(ctx, "authorization denied by provider",
			slog.String("error", cb.Error),
		)

		return nil, &ProviderError{
			Kind:        ErrAuthorizationDenied,
			Code:        cb.Error,
			Description: cb.ErrorDescription,
		}
	}

	if cb.Code == "" {
		return nil, ErrMissingAuthorizationCode
	}

	switch {
	case !issued && cb.State != "":
		// Nothing was issued, or it was already consumed.
		return nil, ErrStateMismatch
	case issued && req == nil:
		// Issued but expired: no state can match it any more.
		return nil, ErrStateMismatch
	case issued && subtle.ConstantTimeCompare([]byte(req.State), []byte(cb.State)) != 1:
		return nil, ErrStateMismatch
	}

	cfg := *m.oauth

	var opts []oauth2.AuthCodeOption

	if req != nil {
		cfg.RedirectURL = req.RedirectURI
		if req.Verifier != "" {
			opts = append(opts, oauth2.VerifierOption(req.Verifier))
		}
	}

	m.logger.InfoContext(ctx, "received authorization code, exchanging for token")

	tok, err := cfg.Exchange(m.clientContext(ctx), cb.Code, opts...)
	if err != nil {
		return nil, providerError(ErrExchangeFailed, err)
	}

	ts := tokenstore.FromOAuth2(tok)
	if ts.Scope == "" && req != nil {
		ts.Scope = strings.Join(req.Scopes, " ")
	}

	if err := m.store.Save(ts); err != nil {
		return nil, fmt.Errorf("oauth: saving token: %w", err)
	}

	m.logger.InfoContext(ctx, "token exchange successful",
		slog.Time("expiry", ts.ExpiresAt),
		slog.Bool("refresh_token", ts.RefreshToken != ""),
	)

	return ts, nil
}

// takePending consumes the pending request. issued reports whether one was
// waiting at all; an expired request comes back as nil with issued set.
func (m *Manager) takePending(ctx context.Context) (req *tokenstore.PendingAuth, issued bool, err error) {
	req, err = m.pending.TakePending()
	if err != nil {
		return nil, false, fmt.Errorf("oauth: reading authorization request: %w", err)
	}

	if req == nil {
		return nil, false, nil
	}

	if m.now().Sub(req.CreatedAt) > pendingTTL {
		m.logger.WarnContext(ctx, "authorization request expired",
			slog.Time("created_at", req.CreatedAt),
		)

		return nil, true, nil
	}

	return req, true, nil
}

// EnsureAccessToken returns a valid access token, refreshing it if needed.
// It returns "" with a nil error when nobody is signed in, or when the stored
// token could not be renewed and the user must sign in again.
func (m *Manager) EnsureAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("oauth: loading token: %w", err)
	}

	if ts == nil {
		return "", nil
	}

	if ts.AccessToken != "" && !ts.Expired(m.now(), m.skew) {
		return ts.AccessToken, nil
	}

	if ts.RefreshToken == "" {
		m.logger.InfoContext(ctx, "access token expired and no refresh token, clearing")
		return "", m.clear(ctx)
	}

	refreshed, err := m.refresh(ctx, ts)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			m.logger.WarnContext(ctx, "refresh token rejected, clearing",
				slog.String("error", re.ErrorCode),
				slog.Int("status", statusOf(re)),
			)

			return "", m.clear(ctx)
		}

		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := m.store.Save(refreshed); err != nil {
		return "", fmt.Errorf("oauth: saving refreshed token: %w", err)
	}

	m.logger.InfoContext(ctx, "access token refreshed",
		slog.Time("expiry", refreshed.ExpiresAt),
	)

	return refreshed.AccessToken, nil
}

// refresh performs exactly one refresh_token grant.
func (m *Manager) refresh(ctx context.Context, ts *tokenstore.TokenSet) (*tokenstore.TokenSet, error) {
	src := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: ts.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, err
	}

	out := tokenstore.FromOAuth2(tok)
	if out.RefreshToken == "" {
		out.RefreshToken = ts.RefreshToken
	}

	if out.Scope == "" {
		out.Scope = ts.Scope
	}

	return out, nil
}

// ClearTokens removes the stored token set. Signing out twice is not an error.
func (m *Manager) ClearTokens() error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("oauth: clearing token: %w", err)
	}

	m.logger.Info("token cleared")

	return nil
}

func (m *Manager) clear(ctx context.Context) error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("oauth: clearing token: %w", err)
	}

	m.logger.DebugContext(ctx, "token cleared")

	return nil
}

// Status reports the stored token's state.
func (m *Manager) Status(_ context.Context) (SessionStatus, error) {
	ts, err := m.store.Load()
	if err != nil {
		return SessionStatus{}, fmt.Errorf("oauth: loading token: %w", err)
	}

	if ts == nil {
		return SessionStatus{}, nil
	}

	return SessionStatus{
		SignedIn:        true,
		Expired:         ts.Expired(m.now(), m.skew),
		HasRefreshToken: ts.RefreshToken != "",
		ExpiresAt:       ts.ExpiresAt,
		Scope:           ts.Scope,
	}, nil
}

// providerError converts an x/oauth2 failure into a *ProviderError of kind.
func providerError(kind error, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &ProviderError{Kind: kind, Err: err}
	}

	return &ProviderError{
		Kind:        kind,
		Code:        re.ErrorCode,
		Description: re.ErrorDescription,
		StatusCode:  statusOf(re),
		Body:        string(re.Body),
	}
}

func statusOf(re *oauth2.RetrieveError) int {
	if re.Response == nil {
		return 0
	}

	return re.Response.StatusCode
}

// generateState produces a random hex string for the state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
