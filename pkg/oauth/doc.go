// Package oauth implements the public-client side of the OAuth 2.0
// Authorization Code grant with PKCE (RFC 7636) against the Microsoft
// identity platform.
//
// # Core Components
//
//   - PKCEParameters / GeneratePKCE: per-login verifier, S256 challenge and state
//   - TokenSet: access token, refresh token and skewed expiry
//   - Client: authorization URL construction, code exchange and refresh
//
// Token requests go through golang.org/x/oauth2 with credentials in the
// request body (no client secret). The Client performs exactly one request
// per call.
//
// # Refresh failure classification
//
// Refresh distinguishes a dead credential from a temporary outage:
//
//	ts, err := client.Refresh(ctx, refreshToken, clientID)
//	switch {
//	case errors.Is(err, oauth.ErrRefreshRejected):
//	    // invalid_grant: discard stored tokens
//	case oauth.IsRefreshUnavailable(err):
//	    // network, timeout, 5xx: keep the stored tokens
//	}
package oauth
