package oauth

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ExpirySkew is subtracted from the provider's expires_in when computing
// TokenSet.ExpiresAt, so refresh happens before the provider rejects the token.
const ExpirySkew = 5 * time.Minute

const (
	// DefaultAuthority is the Microsoft identity platform multi-tenant authority.
	DefaultAuthority = "https://login.microsoftonline.com/common"

	authorizePath = "/oauth2/v2.0/authorize"
	tokenPath     = "/oauth2/v2.0/token"
)

// EndpointForAuthority returns the authorize and token endpoints under authority.
// Client credentials always travel in the form body since the client is public.
func EndpointForAuthority(authority string) oauth2.Endpoint {
	authority = strings.TrimSuffix(authority, "/")
	return oauth2.Endpoint{
		AuthURL:   authority + authorizePath,
		TokenURL:  authority + tokenPath,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// TokenSet is the credential material persisted between runs.
type TokenSet struct {
	AccessToken  string
	RefreshToken string

	// ExpiresAt already has ExpirySkew subtracted.
	ExpiresAt time.Time
}

// NewTokenSet builds a TokenSet from a token response received at now.
func NewTokenSet(accessToken, refreshToken string, expiresIn int64, now time.Time) *TokenSet {
	return &TokenSet{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(expiresIn)*time.Second - ExpirySkew),
	}
}

// Valid reports whether the access token may still be used at now.
func (t *TokenSet) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// HasRefreshToken reports whether a refresh can be attempted.
func (t *TokenSet) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}

// String never includes token material.
func (t *TokenSet) String() string {
	if t == nil {
		return "TokenSet(nil)"
	}
	return fmt.Sprintf("TokenSet{access=[REDACTED] refresh=%s expiresAt=%s}",
		redactedOrEmpty(t.RefreshToken), t.ExpiresAt.UTC().Format(time.RFC3339))
}

// LogValue implements slog.LogValuer so a TokenSet passed to a logger is redacted.
func (t *TokenSet) LogValue() slog.Value {
	if t == nil {
		return slog.StringValue("nil")
	}
	return slog.GroupValue(
		slog.Bool("has_access_token", t.AccessToken != ""),
		slog.Bool("has_refresh_token", t.RefreshToken != ""),
		slog.Time("expires_at", t.ExpiresAt),
	)
}

func redactedOrEmpty(s string) string {
	if s == "" {
		return "<none>"
	}
	return "[REDACTED]"
}
