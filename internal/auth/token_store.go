package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/giantswarm/noteclip/internal/kvstore"
	"github.com/giantswarm/noteclip/pkg/logging"
	"github.com/giantswarm/noteclip/pkg/oauth"
)

// Keys under which the session is persisted.
const (
	KeyAccessToken  = "auth.accessToken"
	KeyRefreshToken = "auth.refreshToken"
	KeyTokenExpiry  = "auth.tokenExpiry"
)

// TokenStore persists one TokenSet in a kvstore.Store.
//
// SECURITY: token values are never logged. Only the fact that a session was
// stored or cleared is written to the audit log.
type TokenStore struct {
	kv kvstore.Store
}

// NewTokenStore wraps kv.
func NewTokenStore(kv kvstore.Store) *TokenStore {
	return &TokenStore{kv: kv}
}

// Load returns the stored session, or nil when any of the three keys is
// missing or the expiry is not a millisecond timestamp.
func (s *TokenStore) Load() (*oauth.TokenSet, error) {
	access, ok, err := s.kv.Get(KeyAccessToken)
	if err != nil || !ok {
		return nil, err
	}
	refresh, ok, err := s.kv.Get(KeyRefreshToken)
	if err != nil || !ok {
		return nil, err
	}
	expiry, ok, err := s.kv.Get(KeyTokenExpiry)
	if err != nil || !ok {
		return nil, err
	}

	millis, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		logging.Warn("TokenStore", "Ignoring stored session with unparsable expiry")
		return nil, nil
	}

	return &oauth.TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.UnixMilli(millis),
	}, nil
}

// Save writes all three keys.
func (s *TokenStore) Save(ts *oauth.TokenSet) error {
	if ts == nil {
		return errors.New("cannot save nil token set")
	}

	writes := []struct{ key, value string }{
		{KeyAccessToken, ts.AccessToken},
		{KeyRefreshToken, ts.RefreshToken},
		{KeyTokenExpiry, strconv.FormatInt(ts.ExpiresAt.UnixMilli(), 10)},
	}
	for _, w := range writes {
		if err := s.kv.Set(w.key, w.value); err != nil {
			logging.Audit(logging.AuditEvent{Action: "token_store", Outcome: "failure", Details: err.Error()})
			return fmt.Errorf("failed to persist %s: %w", w.key, err)
		}
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_store",
		Outcome: "success",
		Details: fmt.Sprintf("expires_at=%s", ts.ExpiresAt.UTC().Format(time.RFC3339)),
	})
	return nil
}

// Clear deletes all three keys. Every key is attempted even if one fails.
func (s *TokenStore) Clear() error {
	var errs []error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry} {
		if err := s.kv.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logging.Audit(logging.AuditEvent{Action: "token_clear", Outcome: "failure", Details: err.Error()})
		return err
	}

	logging.Audit(logging.AuditEvent{Action: "token_clear", Outcome: "success"})
	return nil
}
