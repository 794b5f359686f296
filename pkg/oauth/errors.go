package oauth

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// ErrRefreshRejected means the provider answered a refresh with invalid_grant.
// The refresh token is revoked, expired or otherwise dead and must be discarded.
var ErrRefreshRejected = errors.New("refresh token rejected by provider")

// ExchangeFailedError indicates the authorization code could not be exchanged.
type ExchangeFailedError struct {
	// ProviderMessage is the provider's error_description, else its error code,
	// else the transport error text.
	ProviderMessage string
	Err             error
}

func (e *ExchangeFailedError) Error() string {
	return fmt.Sprintf("token exchange failed: %s", e.ProviderMessage)
}

func (e *ExchangeFailedError) Unwrap() error {
	return e.Err
}

// RefreshUnavailableError is any refresh failure other than invalid_grant:
// network errors, timeouts, 5xx answers, malformed bodies. It does not prove
// the refresh token is dead.
type RefreshUnavailableError struct {
	Cause error
}

func (e *RefreshUnavailableError) Error() string {
	return fmt.Sprintf("token refresh unavailable: %v", e.Cause)
}

func (e *RefreshUnavailableError) Unwrap() error {
	return e.Cause
}

// IsRefreshUnavailable reports whether err is a soft refresh failure.
func IsRefreshUnavailable(err error) bool {
	var target *RefreshUnavailableError
	return errors.As(err, &target)
}

// providerError extracts the OAuth error code and description from a failed
// token request. The oauth2 package only parses them for JSON or form bodies
// with a matching Content-Type, so the raw body is consulted as a fallback.
func providerError(err error) (code, description string) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return "", ""
	}

	code, description = re.ErrorCode, re.ErrorDescription
	if code == "" && gjson.ValidBytes(re.Body) {
		code = gjson.GetBytes(re.Body, "error").String()
	}
	if description == "" && gjson.ValidBytes(re.Body) {
		description = gjson.GetBytes(re.Body, "error_description").String()
	}
	return code, description
}

// providerMessage picks the most descriptive text for an exchange failure.
func providerMessage(err error) string {
	code, description := providerError(err)
	switch {
	case description != "":
		return description
	case code != "":
		return code
	default:
		return err.Error()
	}
}
