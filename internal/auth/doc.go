// Package auth implements noteclip's sign-in session: the loopback callback
// listener, persistence of the token set, and the Manager that ties PKCE,
// the browser hand-off, the code exchange and refresh together.
//
// # Login
//
//	mgr, _ := auth.NewManager(auth.ManagerConfig{
//	    Store:     auth.NewTokenStore(kv),
//	    Exchanger: oauth.NewClient(),
//	    Callback:  auth.CallbackServerConfig{Port: auth.DefaultCallbackPort},
//	})
//	if err := mgr.Login(ctx); err != nil {
//	    var lf *auth.LoginFailedError
//	    errors.As(err, &lf)
//	}
//
// # Using the session
//
// Resource clients call GetValidAccessToken before each request (or put
// TokenSource(ctx) behind an oauth2.Transport) and call
// HandleUnauthorizedResponse when the resource server answers 401.
//
// Refresh failures are split in two: invalid_grant clears the session and
// yields ErrSessionExpired; anything else returns the cached token and lets
// the resource server decide.
package auth
