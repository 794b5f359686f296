package notes

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionInvalidated is returned after the API rejected the bearer token.
// The session has already been cleared; the user must sign in again.
var ErrSessionInvalidated = errors.New("sign-in expired, please sign in again")

// APIError is a non-2xx answer from the notes API other than 401.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("notes API error %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("notes API error %d: %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the notes API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
