package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultHTTPTimeout bounds every token endpoint request.
	DefaultHTTPTimeout = 30 * time.Second

	// defaultExpiresIn is assumed when the provider omits expires_in.
	defaultExpiresIn = 3600

	errorCodeInvalidGrant = "invalid_grant"
)

// Client speaks the authorization code and refresh grants against a single
// token endpoint. It performs exactly one HTTP request per call and never
// retries; retry policy belongs to the caller.
type Client struct {
	endpoint   oauth2.Endpoint
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock replaces time.Now when computing token expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithEndpoint sets the authorize and token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) ClientOption {
	return func(c *Client) {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
		c.endpoint = endpoint
	}
}

// NewClient creates a new OAuth client for the Microsoft identity platform
// unless WithEndpoint says otherwise.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   EndpointForAuthority(DefaultAuthority),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		timeout:    DefaultHTTPTimeout,
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the configured endpoints.
func (c *Client) Endpoint() oauth2.Endpoint {
	return c.endpoint
}

func (c *Client) config(clientID, redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    c.endpoint,
		RedirectURL: redirectURI,
		Scopes:      scopes,
	}
}

// AuthCodeURL builds the URL the user's browser is sent to.
func (c *Client) AuthCodeURL(clientID, redirectURI string, scopes []string, pkce *PKCEParameters) string {
	return c.config(clientID, redirectURI, scopes).AuthCodeURL(pkce.State,
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.CodeChallengeMethod),
	)
}

// ExchangeCode trades an authorization code and its PKCE verifier for tokens.
//
// Any failure, including a 2xx answer without access_token, is returned as
// *ExchangeFailedError.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, clientID, redirectURI string) (*TokenSet, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	tok, err := c.config(clientID, redirectURI, nil).Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		msg := providerMessage(err)
		c.logger.Debug("Authorization code exchange failed", "error", msg)
		return nil, &ExchangeFailedError{ProviderMessage: msg, Err: err}
	}

	return c.tokenSet(tok, ""), nil
}

// Refresh obtains a new access token. If the provider does not rotate the
// refresh token, the one passed in is kept.
//
// An invalid_grant answer yields ErrRefreshRejected. Every other failure
// yields *RefreshUnavailableError.
func (c *Client) Refresh(ctx context.Context, refreshToken, clientID string) (*TokenSet, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	src := c.config(clientID, "", nil).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if code, _ := providerError(err); code == errorCodeInvalidGrant {
			c.logger.Debug("Refresh token rejected by provider")
			return nil, ErrRefreshRejected
		}
		c.logger.Debug("Token refresh failed", "error", err)
		return nil, &RefreshUnavailableError{Cause: err}
	}

	return c.tokenSet(tok, refreshToken), nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) tokenSet(tok *oauth2.Token, previousRefresh string) *TokenSet {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return NewTokenSet(tok.AccessToken, refresh, expiresIn(tok), c.now())
}

// expiresIn recovers the wire expires_in value. oauth2 converts it into an
// absolute Expiry against the real clock, which would ignore WithClock.
func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return int64(v)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	case interface{ Int64() (int64, error) }:
		if n, err := v.Int64(); err == nil && n > 0 {
			return n
		}
	}

	return defaultExpiresIn
}
