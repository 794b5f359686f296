package oauth

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestNewTokenSet_AppliesSkew(t *testing.T) {
	now := time.UnixMilli(1_000_000)

	ts := NewTokenSet("A", "R", 3600, now)

	assert.Equal(t, int64(1_000_000+3_300_000), ts.ExpiresAt.UnixMilli())
	assert.Equal(t, "A", ts.AccessToken)
	assert.Equal(t, "R", ts.RefreshToken)
}

func TestTokenSet_Valid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token *TokenSet
		want  bool
	}{
		{"nil token", nil, false},
		{"future expiry", &TokenSet{AccessToken: "a", ExpiresAt: now.Add(time.Minute)}, true},
		{"past expiry", &TokenSet{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}, false},
		{"exactly now", &TokenSet{AccessToken: "a", ExpiresAt: now}, false},
		{"empty access token", &TokenSet{ExpiresAt: now.Add(time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Valid(now))
		})
	}
}

func TestTokenSet_Redaction(t *testing.T) {
	ts := &TokenSet{AccessToken: "secret-access", RefreshToken: "secret-refresh", ExpiresAt: time.Now()}

	assert.NotContains(t, ts.String(), "secret")
	assert.NotContains(t, fmt.Sprintf("%v", ts), "secret")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("stored", "token", ts)

	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), "has_refresh_token=true")
}

func TestEndpointForAuthority(t *testing.T) {
	ep := EndpointForAuthority(DefaultAuthority + "/")

	assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/authorize", ep.AuthURL)
	assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/token", ep.TokenURL)
	assert.Equal(t, oauth2.AuthStyleInParams, ep.AuthStyle)
}
