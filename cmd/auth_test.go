package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/noteclip/internal/auth"
)

func TestAuthCmd_Subcommands(t *testing.T) {
	authCmd := newAuthCmd(&rootOptions{})

	var names []string
	for _, c := range authCmd.Commands() {
		names = append(names, c.Name())
		assert.NotEmpty(t, c.Short, "%s has no short description", c.Name())
		assert.NotNil(t, c.RunE, "%s has no RunE", c.Name())
	}
	assert.ElementsMatch(t, []string{"login", "logout", "status", "token"}, names)
}

func TestAuthStatus_SignedOut(t *testing.T) {
	dir := setupConfigDir(t, "https://graph.example")

	out, err := executeCommand(t, dir, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, auth.PublicClientID)
	assert.Contains(t, out, "noteclip auth login")
}

func TestAuthStatus_SignedIn(t *testing.T) {
	dir := setupConfigDir(t, "https://graph.example")
	seedSession(t, dir)

	out, err := executeCommand(t, dir, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in")
	assert.Contains(t, out, "Expires:   in ")
	assert.Contains(t, out, "Available")
	assert.NotContains(t, out, "access-1", "token values are never printed by status")
}

func TestAuthToken(t *testing.T) {
	dir := setupConfigDir(t, "https://graph.example")

	_, err := executeCommand(t, dir, "", "auth", "token")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))

	seedSession(t, dir)
	out, err := executeCommand(t, dir, "", "auth", "token")
	require.NoError(t, err)
	assert.Equal(t, "access-1\n", out)
}

func TestAuthLogout(t *testing.T) {
	dir := setupConfigDir(t, "https://graph.example")
	seedSession(t, dir)

	out, err := executeCommand(t, dir, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	out, err = executeCommand(t, dir, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	// Idempotent.
	_, err = executeCommand(t, dir, "", "auth", "logout")
	assert.NoError(t, err)
}

func TestAuthLogout_Quiet(t *testing.T) {
	dir := setupConfigDir(t, "https://graph.example")

	out, err := executeCommand(t, dir, "", "--quiet", "auth", "logout")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAuthLogin_BrowserNotOpened(t *testing.T) {
	dir := setupConfigDir(t, "https://graph.example")
	t.Setenv("NOTECLIP_CALLBACK_PORT", "0")

	root := newRootCmdWithOptions(&rootOptions{browser: func(string) bool { return false }})
	root.SetArgs([]string{"--config-path", dir, "auth", "login"})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	err := root.Execute()
	require.ErrorIs(t, err, auth.ErrBrowserNotOpened)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
}

func TestAuthLogin_EndToEnd(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/v2.0/token" || r.FormValue("code") != "code-1" || r.FormValue("code_verifier") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_request"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	dir := setupConfigDir(t, "https://graph.example")
	cfg := fmt.Sprintf("auth:\n  authority: %s\ncallback:\n  port: 0\n", tokenServer.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))

	redirected := make(chan error, 1)
	browser := func(authURL string) bool {
		u, err := url.Parse(authURL)
		if err != nil {
			return false
		}
		q := u.Query()
		callback := q.Get("redirect_uri") + "?" + url.Values{"code": {"code-1"}, "state": {q.Get("state")}}.Encode()
		go func() {
			resp, err := http.Get(callback)
			if err == nil {
				resp.Body.Close()
			}
			redirected <- err
		}()
		return true
	}

	var out bytes.Buffer
	root := newRootCmdWithOptions(&rootOptions{browser: browser})
	root.SetArgs([]string{"--config-path", dir, "auth", "login"})
	root.SetOut(&out)
	root.SetErr(new(bytes.Buffer))

	require.NoError(t, root.Execute())
	require.NoError(t, <-redirected)
	assert.Contains(t, out.String(), "Signed in.")
	assert.Contains(t, out.String(), tokenServer.URL+"/oauth2/v2.0/authorize", "authorization URL is printed for manual copy")

	tokenOut, err := executeCommand(t, dir, "", "auth", "token")
	require.NoError(t, err)
	assert.Equal(t, "access-1\n", tokenOut)
}
