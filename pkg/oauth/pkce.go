package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// verifierBytes yields a 43 character base64url verifier.
	verifierBytes = 32

	// stateBytes yields a 32 character hex state.
	stateBytes = 16

	// ChallengeMethodS256 is the only challenge method noteclip sends.
	ChallengeMethodS256 = "S256"
)

// PKCEParameters holds the per-login PKCE secrets and the anti-forgery state.
// They live in memory for a single login attempt and are never persisted.
type PKCEParameters struct {
	// CodeVerifier is sent only with the code exchange.
	CodeVerifier string

	// CodeChallenge is base64url(SHA-256(CodeVerifier)), sent in the authorization URL.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string

	// State is echoed back by the provider on the redirect.
	State string
}

// GeneratePKCE creates a fresh verifier, its S256 challenge and a random state.
//
// A failing system random source is unrecoverable for a login flow, so this
// panics instead of returning an error.
func GeneratePKCE() *PKCEParameters {
	verifier := base64.RawURLEncoding.EncodeToString(mustRandom(verifierBytes))

	return &PKCEParameters{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeFromVerifier(verifier),
		CodeChallengeMethod: ChallengeMethodS256,
		State:               hex.EncodeToString(mustRandom(stateBytes)),
	}
}

// ChallengeFromVerifier returns the S256 code challenge for verifier.
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func mustRandom(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("oauth: system random source failed: %v", err))
	}
	return b
}
