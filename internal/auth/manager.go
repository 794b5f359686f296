package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/noteclip/pkg/logging"
	"github.com/giantswarm/noteclip/pkg/oauth"
)

// PublicClientID is the application registration used when no client ID is configured.
const PublicClientID = "8f2111cf-9921-4237-8e45-567dc93a4597"

// DefaultScopes grants OneNote read/write plus a refresh token.
var DefaultScopes = []string{"Notes.ReadWrite", "offline_access"}

// Exchanger is the token endpoint protocol the Manager drives.
// *oauth.Client implements it.
type Exchanger interface {
	AuthCodeURL(clientID, redirectURI string, scopes []string, pkce *oauth.PKCEParameters) string
	ExchangeCode(ctx context.Context, code, codeVerifier, clientID, redirectURI string) (*oauth.TokenSet, error)
	Refresh(ctx context.Context, refreshToken, clientID string) (*oauth.TokenSet, error)
}

// AuthState summarizes the stored session.
type AuthState int

const (
	// AuthStateSignedOut means no session is stored.
	AuthStateSignedOut AuthState = iota

	// AuthStateSignedIn means the stored access token is within its lifetime.
	AuthStateSignedIn

	// AuthStateExpired means the access token is past its expiry and the
	// next use will attempt a refresh.
	AuthStateExpired
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case AuthStateSignedIn:
		return "signed_in"
	case AuthStateExpired:
		return "expired"
	default:
		return "signed_out"
	}
}

// Status describes the stored session without exposing token values.
type Status struct {
	State           AuthState
	ExpiresAt       time.Time
	HasRefreshToken bool
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// ClientID falls back to PublicClientID when empty.
	ClientID string

	// Scopes falls back to DefaultScopes when empty.
	Scopes []string

	Store     *TokenStore
	Exchanger Exchanger

	// Callback configures the loopback listener started by each Login.
	// ExpectedState is filled in per attempt.
	Callback CallbackServerConfig

	// Browser defaults to OpenSystemBrowser.
	Browser BrowserOpener

	// OnAuthURL, if set, receives the authorization URL before the browser
	// is asked to open it, so a CLI can print it for manual copy.
	OnAuthURL func(authURL string)

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Manager owns the session: interactive login, expiry tracking, proactive
// refresh and invalidation. It is safe for concurrent use.
type Manager struct {
	clientID  string
	scopes    []string
	store     *TokenStore
	exchanger Exchanger
	callback  CallbackServerConfig
	browser   BrowserOpener
	onAuthURL func(string)
	now       func() time.Time

	loginActive  atomic.Bool
	refreshGroup singleflight.Group
}

// NewManager creates a Manager. Store and Exchanger are required.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth manager requires a token store")
	}
	if cfg.Exchanger == nil {
		return nil, errors.New("auth manager requires a token exchanger")
	}

	m := &Manager{
		clientID:  cfg.ClientID,
		scopes:    cfg.Scopes,
		store:     cfg.Store,
		exchanger: cfg.Exchanger,
		callback:  cfg.Callback,
		browser:   cfg.Browser,
		onAuthURL: cfg.OnAuthURL,
		now:       cfg.Clock,
	}
	if m.clientID == "" {
		m.clientID = PublicClientID
	}
	if len(m.scopes) == 0 {
		m.scopes = DefaultScopes
	}
	if m.browser == nil {
		m.browser = OpenSystemBrowser
	}
	if m.now == nil {
		m.now = time.Now
	}

	return m, nil
}

// ClientID returns the effective client ID.
func (m *Manager) ClientID() string {
	return m.clientID
}

// Login runs one interactive sign-in: PKCE parameters, loopback listener,
// browser hand-off, code exchange, persistence.
//
// Only one Login may run at a time; a concurrent call returns
// ErrLoginInProgress. Every other failure is a *LoginFailedError wrapping
// the first failing step. Cancelling ctx ends the callback wait early.
func (m *Manager) Login(ctx context.Context) error {
	if !m.loginActive.CompareAndSwap(false, true) {
		return ErrLoginInProgress
	}
	defer m.loginActive.Store(false)

	err := m.login(ctx)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "login", Outcome: "failure", Details: err.Error()})
		return &LoginFailedError{Reason: err}
	}

	logging.Audit(logging.AuditEvent{Action: "login", Outcome: "success"})
	return nil
}

func (m *Manager) login(ctx context.Context) error {
	pkce := oauth.GeneratePKCE()

	cbCfg := m.callback
	cbCfg.ExpectedState = pkce.State
	server := NewCallbackServer(cbCfg)

	// Bind before the browser opens so the redirect cannot beat the listener.
	if err := server.Start(); err != nil {
		return err
	}

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			server.Cancel(ctx.Err().Error())
		case <-server.Done():
		case <-stopWatch:
		}
	}()

	redirectURI := server.RedirectURI()
	authURL := m.exchanger.AuthCodeURL(m.clientID, redirectURI, m.scopes, pkce)
	if m.onAuthURL != nil {
		m.onAuthURL(authURL)
	}

	if !m.browser(authURL) {
		server.Cancel("browser not opened")
		server.Wait()
		return ErrBrowserNotOpened
	}
	logging.Info("Auth", "Waiting for sign-in to complete in the browser")

	outcome := server.Wait()
	if outcome.Kind != OutcomeSuccess {
		if outcome.Kind == OutcomeTimedOut && ctx.Err() != nil {
			return ctx.Err()
		}
		return outcome.Err()
	}

	tokens, err := m.exchanger.ExchangeCode(ctx, outcome.Code, pkce.CodeVerifier, m.clientID, redirectURI)
	if err != nil {
		return err
	}

	if err := m.store.Save(tokens); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	logging.Info("Auth", "Signed in, access token valid until %s", tokens.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// GetValidAccessToken returns an access token for a resource request.
//
//   - no stored session: ErrNotAuthenticated
//   - stored token within its lifetime: returned without any network call
//   - expired: refreshed; concurrent callers share one refresh request
//   - refresh rejected (invalid_grant): session cleared, ErrSessionExpired
//   - refresh unavailable or no refresh token: the stale token is returned
//     and the resource server decides
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	tokens, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if tokens == nil {
		return "", ErrNotAuthenticated
	}
	if tokens.Valid(m.now()) {
		return tokens.AccessToken, nil
	}

	if !tokens.HasRefreshToken() {
		logging.Warn("Auth", "Access token expired and no refresh token is stored, using cached token")
		return tokens.AccessToken, nil
	}

	v, err, shared := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if shared {
		logging.Debug("Auth", "Joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refresh runs inside the singleflight group.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	// A refresh that finished just before this one started may already have
	// replaced the stored session.
	tokens, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if tokens == nil {
		return "", ErrNotAuthenticated
	}
	if tokens.Valid(m.now()) {
		return tokens.AccessToken, nil
	}

	logging.Debug("Auth", "Access token expired, refreshing")
	refreshed, err := m.exchanger.Refresh(ctx, tokens.RefreshToken, m.clientID)
	switch {
	case err == nil:
		if saveErr := m.store.Save(refreshed); saveErr != nil {
			logging.Error("Auth", saveErr, "Refreshed token could not be persisted")
		}
		logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: "success"})
		return refreshed.AccessToken, nil

	case errors.Is(err, oauth.ErrRefreshRejected):
		logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: "rejected"})
		if clearErr := m.store.Clear(); clearErr != nil {
			logging.Error("Auth", clearErr, "Failed to clear rejected session")
		}
		return "", ErrSessionExpired

	default:
		logging.Warn("Auth", "Token refresh unavailable, using cached token: %v", err)
		return tokens.AccessToken, nil
	}
}

// HandleUnauthorizedResponse clears the session after the resource server
// rejected a token. The next access requires a new Login.
func (m *Manager) HandleUnauthorizedResponse() error {
	logging.Audit(logging.AuditEvent{Action: "session_invalidated", Outcome: "success", Details: "resource server returned 401"})
	return m.store.Clear()
}

// Logout clears the session. It is idempotent.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	logging.Audit(logging.AuditEvent{Action: "logout", Outcome: "success"})
	return nil
}

// IsLoggedIn reports whether a session is stored. It makes no network call;
// an expired session still counts because it may be refreshable.
func (m *Manager) IsLoggedIn() bool {
	tokens, err := m.store.Load()
	return err == nil && tokens != nil
}

// Status reports the stored session state.
func (m *Manager) Status() (Status, error) {
	tokens, err := m.store.Load()
	if err != nil {
		return Status{}, err
	}
	if tokens == nil {
		return Status{State: AuthStateSignedOut}, nil
	}

	st := Status{
		State:           AuthStateExpired,
		ExpiresAt:       tokens.ExpiresAt,
		HasRefreshToken: tokens.HasRefreshToken(),
	}
	if tokens.Valid(m.now()) {
		st.State = AuthStateSignedIn
	}
	return st, nil
}

// TokenSource returns an oauth2.TokenSource whose refreshes use ctx, for
// use as the Source of an oauth2.Transport serving requests bound to ctx.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		access, err := m.GetValidAccessToken(ctx)
		if err != nil {
			return nil, err
		}
		return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
	})
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) {
	return f()
}
