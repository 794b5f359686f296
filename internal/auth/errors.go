package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrCallbackTimedOut means no usable redirect arrived before the deadline.
	ErrCallbackTimedOut = errors.New("timed out waiting for the sign-in redirect")

	// ErrNotAuthenticated means no session is stored.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrSessionExpired means the provider rejected the refresh token; the
	// stored session has been cleared and a new login is required.
	ErrSessionExpired = errors.New("session expired, please sign in again")

	// ErrLoginInProgress is returned when Login is called while another
	// login is still waiting for its redirect.
	ErrLoginInProgress = errors.New("a sign-in is already in progress")

	// ErrBrowserNotOpened means the browser launcher reported failure.
	ErrBrowserNotOpened = errors.New("could not open the browser")
)

// ListenerBindFailedError means the loopback callback listener could not bind.
type ListenerBindFailedError struct {
	Addr string
	Err  error
}

func (e *ListenerBindFailedError) Error() string {
	return fmt.Sprintf("failed to start callback listener on %s: %v", e.Addr, e.Err)
}

func (e *ListenerBindFailedError) Unwrap() error {
	return e.Err
}

// ProviderDeniedError carries the error the provider put on the redirect,
// for example access_denied when the user cancels consent.
type ProviderDeniedError struct {
	Code        string
	Description string
}

func (e *ProviderDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied: %s", e.Code)
}

// LoginFailedError wraps the reason a Login call did not produce a session.
type LoginFailedError struct {
	Reason error
}

func (e *LoginFailedError) Error() string {
	return fmt.Sprintf("sign-in failed: %v", e.Reason)
}

func (e *LoginFailedError) Unwrap() error {
	return e.Reason
}
