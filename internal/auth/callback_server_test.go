package auth

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testState = "0123456789abcdef0123456789abcdef"

// startTestServer binds an ephemeral port and returns the server and its base URL.
func startTestServer(t *testing.T, timeout time.Duration) (*CallbackServer, string) {
	t.Helper()

	s := NewCallbackServer(CallbackServerConfig{
		Port:          0,
		Timeout:       timeout,
		ExpectedState: testState,
	})
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		s.Cancel("test cleanup")
		s.Wait()
	})

	return s, s.RedirectURI()
}

// noKeepAliveClient forces a fresh connection per request so that a closed
// listener is observable.
func noKeepAliveClient() *http.Client {
	return &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
}

func get(t *testing.T, client *http.Client, rawURL string) (int, string) {
	t.Helper()
	resp, err := client.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func withQuery(base string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return base + "?" + q.Encode()
}

func TestNewCallbackServer_Defaults(t *testing.T) {
	s := NewCallbackServer(CallbackServerConfig{})

	assert.Equal(t, DefaultCallbackHost, s.cfg.Host)
	assert.Equal(t, DefaultCallbackPath, s.cfg.Path)
	assert.Equal(t, DefaultCallbackTimeout, s.cfg.Timeout)
	assert.Empty(t, s.RedirectURI())
}

func TestCallbackServer_RedirectURIUsesBoundPort(t *testing.T) {
	s, redirect := startTestServer(t, time.Minute)

	port := s.listener.Addr().(*net.TCPAddr).Port
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", port), redirect)
}

func TestCallbackServer_Success(t *testing.T) {
	s, redirect := startTestServer(t, time.Minute)
	client := noKeepAliveClient()

	status, body := get(t, client, withQuery(redirect, map[string]string{"code": "abc", "state": testState}))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Sign-in successful")

	outcome := s.Wait()
	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "abc", outcome.Code)
	assert.NoError(t, outcome.Err())

	// The listener socket is closed once the outcome is recorded.
	_, err := client.Get(redirect)
	assert.Error(t, err)
}

func TestCallbackServer_DuplicateSuccessRequests(t *testing.T) {
	s, redirect := startTestServer(t, time.Minute)

	// Two requests on the same keep-alive connection: the second arrives
	// after the listener closed but still reaches the handler.
	client := &http.Client{Timeout: 5 * time.Second}
	target := withQuery(redirect, map[string]string{"code": "abc", "state": testState})

	status1, body1 := get(t, client, target)
	status2, body2 := get(t, client, target)

	assert.Equal(t, http.StatusOK, status1)
	assert.Contains(t, body1, "Sign-in successful")
	assert.Equal(t, http.StatusOK, status2)
	assert.Contains(t, body2, "already completed")

	outcome := s.Wait()
	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "abc", outcome.Code)
}

func TestCallbackServer_ConcurrentSuccessHasOneWinner(t *testing.T) {
	s, redirect := startTestServer(t, time.Minute)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(withQuery(redirect, map[string]string{"code": fmt.Sprintf("code-%d", i), "state": testState}))
			if err != nil {
				// Requests that lose the race to the listener close never connect.
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if strings.Contains(string(body), "Sign-in successful") {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	outcome := s.Wait()
	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.True(t, strings.HasPrefix(outcome.Code, "code-"))
	assert.Equal(t, 1, successes)
}

func TestCallbackServer_StateMismatchThenTimeout(t *testing.T) {
	s, redirect := startTestServer(t, 300*time.Millisecond)
	client := noKeepAliveClient()

	status, body := get(t, client, withQuery(redirect, map[string]string{"code": "abc", "state": "wrong"}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Invalid request")

	outcome := s.Wait()
	assert.Equal(t, OutcomeTimedOut, outcome.Kind)
	assert.ErrorIs(t, outcome.Err(), ErrCallbackTimedOut)
}

func TestCallbackServer_InvalidRequestsKeepListening(t *testing.T) {
	s, redirect := startTestServer(t, time.Minute)
	client := noKeepAliveClient()

	base := strings.TrimSuffix(redirect, "/callback")

	status, _ := get(t, client, base+"/favicon.ico")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, client, withQuery(redirect, map[string]string{"state": testState}))
	assert.Equal(t, http.StatusBadRequest, status, "state without code is invalid")

	status, _ = get(t, client, withQuery(redirect, map[string]string{"code": "late", "state": testState}))
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, "late", s.Wait().Code)
}

func TestCallbackServer_ProviderError(t *testing.T) {
	s, redirect := startTestServer(t, time.Minute)
	client := noKeepAliveClient()

	status, body := get(t, client, withQuery(redirect, map[string]string{
		"error":             "access_denied",
		"error_description": "<script>alert(1)</script>",
	}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "access_denied")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")

	outcome := s.Wait()
	assert.Equal(t, OutcomeProviderError, outcome.Kind)
	assert.Equal(t, "access_denied", outcome.Error)
	assert.Equal(t, "<script>alert(1)</script>", outcome.ErrorDescription)

	var denied *ProviderDeniedError
	require.ErrorAs(t, outcome.Err(), &denied)
	assert.Equal(t, "access_denied", denied.Code)
}

func TestCallbackServer_SecurityHeaders(t *testing.T) {
	_, redirect := startTestServer(t, time.Minute)

	resp, err := noKeepAliveClient().Get(redirect)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestCallbackServer_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	s := NewCallbackServer(CallbackServerConfig{Port: port, Timeout: 50 * time.Millisecond, ExpectedState: testState})

	err = s.Start()
	var bindErr *ListenerBindFailedError
	require.ErrorAs(t, err, &bindErr)

	// Resolved immediately, no timer involved.
	select {
	case <-s.Done():
	default:
		t.Fatal("expected outcome to be recorded on bind failure")
	}

	outcome := s.Wait()
	assert.Equal(t, OutcomeServerStartFailed, outcome.Kind)
	assert.NotEmpty(t, outcome.Reason)
	assert.Nil(t, s.timer)
}

func TestCallbackServer_AwaitCallback(t *testing.T) {
	s := NewCallbackServer(CallbackServerConfig{Port: 0})

	result := make(chan CallbackOutcome, 1)
	go func() {
		result <- s.AwaitCallback(testState, time.Minute)
	}()

	require.Eventually(t, func() bool { return s.RedirectURI() != "" }, 5*time.Second, 10*time.Millisecond)

	status, _ := get(t, noKeepAliveClient(), withQuery(s.RedirectURI(), map[string]string{"code": "xyz", "state": testState}))
	assert.Equal(t, http.StatusOK, status)

	select {
	case outcome := <-result:
		assert.Equal(t, OutcomeSuccess, outcome.Kind)
		assert.Equal(t, "xyz", outcome.Code)
	case <-time.After(10 * time.Second):
		t.Fatal("AwaitCallback did not return")
	}
}

func TestCallbackServer_StartTwice(t *testing.T) {
	s, _ := startTestServer(t, time.Minute)
	assert.Error(t, s.Start())
}

func TestCallbackServer_Cancel(t *testing.T) {
	s, _ := startTestServer(t, time.Minute)

	s.Cancel("context canceled")
	outcome := s.Wait()

	assert.Equal(t, OutcomeTimedOut, outcome.Kind)
	assert.Equal(t, "context canceled", outcome.Reason)

	// A later cancel does not overwrite the recorded outcome.
	s.Cancel("again")
	assert.Equal(t, "context canceled", s.Wait().Reason)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "Success", OutcomeSuccess.String())
	assert.Equal(t, "ProviderError", OutcomeProviderError.String())
	assert.Equal(t, "TimedOut", OutcomeTimedOut.String())
	assert.Equal(t, "ServerStartFailed", OutcomeServerStartFailed.String())
	assert.Equal(t, "Unknown", OutcomeKind(0).String())
}
