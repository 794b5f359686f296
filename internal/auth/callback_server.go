package auth

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/noteclip/pkg/logging"
)

const (
	// DefaultCallbackHost is the loopback interface the listener binds.
	DefaultCallbackHost = "127.0.0.1"

	// DefaultCallbackPort matches the redirect URI registered for the public client.
	DefaultCallbackPort = 8080

	// DefaultCallbackPath is the redirect path.
	DefaultCallbackPath = "/callback"

	// DefaultCallbackTimeout is how long the user has to finish signing in.
	DefaultCallbackTimeout = 120 * time.Second

	shutdownTimeout = 5 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// OutcomeKind identifies how a callback wait ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeProviderError
	OutcomeTimedOut
	OutcomeServerStartFailed
)

// String returns a human-readable representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "Success"
	case OutcomeProviderError:
		return "ProviderError"
	case OutcomeTimedOut:
		return "TimedOut"
	case OutcomeServerStartFailed:
		return "ServerStartFailed"
	default:
		return "Unknown"
	}
}

// CallbackOutcome is the single result of one listener instance.
type CallbackOutcome struct {
	Kind OutcomeKind

	// Code is set for OutcomeSuccess.
	Code string

	// Error and ErrorDescription are set for OutcomeProviderError.
	Error            string
	ErrorDescription string

	// Reason is set for OutcomeServerStartFailed and for a cancelled wait.
	Reason string
}

// Err maps a non-success outcome onto the package's error values.
func (o CallbackOutcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeProviderError:
		return &ProviderDeniedError{Code: o.Error, Description: o.ErrorDescription}
	case OutcomeTimedOut:
		return ErrCallbackTimedOut
	case OutcomeServerStartFailed:
		return &ListenerBindFailedError{Err: errors.New(o.Reason)}
	default:
		return fmt.Errorf("unknown callback outcome %d", o.Kind)
	}
}

// CallbackServerConfig configures one listener instance.
type CallbackServerConfig struct {
	// Host defaults to DefaultCallbackHost.
	Host string

	// Port 0 binds an ephemeral port.
	Port int

	// Path defaults to DefaultCallbackPath. It only shapes RedirectURI;
	// every request path is handled.
	Path string

	// Timeout defaults to DefaultCallbackTimeout.
	Timeout time.Duration

	// ExpectedState is the state value the redirect must echo.
	ExpectedState string
}

// CallbackServer is a loopback HTTP listener that waits for exactly one
// authorization redirect.
//
// The first request carrying the expected state and a code, or carrying a
// provider error, resolves the wait. So does the timeout. Resolution is a
// compare-and-swap on a one-shot slot, so concurrent redirects (browser
// prefetch, double navigation) cannot both win. The winning request closes
// the listening socket before it returns.
type CallbackServer struct {
	cfg CallbackServerConfig

	mu          sync.Mutex
	started     bool
	listener    net.Listener
	server      *http.Server
	timer       *time.Timer
	redirectURI string

	outcome atomic.Pointer[CallbackOutcome]
	done    chan struct{}
}

// NewCallbackServer creates a listener that is not yet bound.
func NewCallbackServer(cfg CallbackServerConfig) *CallbackServer {
	if cfg.Host == "" {
		cfg.Host = DefaultCallbackHost
	}
	if cfg.Path == "" {
		cfg.Path = DefaultCallbackPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallbackTimeout
	}

	return &CallbackServer{
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Start binds the listener and starts the timeout timer.
//
// A bind failure resolves the outcome to OutcomeServerStartFailed at once
// and returns *ListenerBindFailedError; no timer is started in that case.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("callback server already started")
	}
	s.started = true

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.resolve(&CallbackOutcome{Kind: OutcomeServerStartFailed, Reason: err.Error()})
		logging.Error("Auth", err, "Failed to bind callback listener on %s", addr)
		return &ListenerBindFailedError{Addr: addr, Err: err}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	s.listener = listener
	s.redirectURI = fmt.Sprintf("http://localhost:%d%s", port, s.cfg.Path)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			logging.Debug("Auth", "Callback server stopped: %v", err)
		}
	}()

	s.timer = time.AfterFunc(s.cfg.Timeout, func() {
		if s.resolve(&CallbackOutcome{Kind: OutcomeTimedOut}) {
			logging.Warn("Auth", "No sign-in redirect received within %s", s.cfg.Timeout)
			s.closeListener()
		}
	})

	logging.Debug("Auth", "Callback listener bound on %s", listener.Addr())
	return nil
}

// Wait blocks until the outcome is recorded, shuts the HTTP server down and
// returns the outcome. Calling Wait more than once returns the same value.
func (s *CallbackServer) Wait() CallbackOutcome {
	<-s.done
	s.shutdown()
	return *s.outcome.Load()
}

// AwaitCallback binds, waits and returns the single outcome.
func (s *CallbackServer) AwaitCallback(expectedState string, timeout time.Duration) CallbackOutcome {
	s.mu.Lock()
	s.cfg.ExpectedState = expectedState
	if timeout > 0 {
		s.cfg.Timeout = timeout
	}
	s.mu.Unlock()

	if err := s.Start(); err != nil {
		if o := s.outcome.Load(); o != nil {
			return *o
		}
		return CallbackOutcome{Kind: OutcomeServerStartFailed, Reason: err.Error()}
	}
	return s.Wait()
}

// Cancel resolves a pending wait as timed out, for callers whose context
// was cancelled. It is a no-op once an outcome exists.
func (s *CallbackServer) Cancel(reason string) {
	if s.resolve(&CallbackOutcome{Kind: OutcomeTimedOut, Reason: reason}) {
		s.closeListener()
	}
}

// Done is closed once the outcome is recorded.
func (s *CallbackServer) Done() <-chan struct{} {
	return s.done
}

// RedirectURI returns the redirect URI for the bound port. Empty before Start.
func (s *CallbackServer) RedirectURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirectURI
}

// resolve records o if no outcome exists yet and reports whether it won.
func (s *CallbackServer) resolve(o *CallbackOutcome) bool {
	if !s.outcome.CompareAndSwap(nil, o) {
		return false
	}
	close(s.done)
	return true
}

func (s *CallbackServer) closeListener() {
	s.mu.Lock()
	listener := s.listener
	timer := s.timer
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *CallbackServer) shutdown() {
	s.closeListener()

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func (s *CallbackServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	if s.outcome.Load() != nil {
		renderAlreadyCompleted(w)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	providerErr := query.Get("error")
	description := query.Get("error_description")

	switch {
	case state == s.cfg.ExpectedState && code != "":
		if !s.resolve(&CallbackOutcome{Kind: OutcomeSuccess, Code: code}) {
			renderAlreadyCompleted(w)
			return
		}
		renderPage(w, http.StatusOK, "callback_success.html", nil)
		s.closeListener()
		logging.Debug("Auth", "Authorization code received")

	case providerErr != "":
		if !s.resolve(&CallbackOutcome{Kind: OutcomeProviderError, Error: providerErr, ErrorDescription: description}) {
			renderAlreadyCompleted(w)
			return
		}
		renderPage(w, http.StatusBadRequest, "callback_error.html", map[string]string{
			"Error":       providerErr,
			"Description": description,
		})
		s.closeListener()
		logging.Warn("Auth", "Provider returned error on redirect: %s", providerErr)

	default:
		if state != "" && state != s.cfg.ExpectedState {
			logging.Warn("Auth", "Ignoring redirect with unexpected state")
		}
		renderPage(w, http.StatusBadRequest, "callback_notice.html", map[string]string{
			"Title":   "Invalid request",
			"Message": "This page is not part of an active sign-in. Return to the terminal to check the status.",
		})
	}
}

func renderAlreadyCompleted(w http.ResponseWriter) {
	renderPage(w, http.StatusOK, "callback_notice.html", map[string]string{
		"Title":   "Sign-in already completed",
		"Message": "You can close this window.",
	})
}

func renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		logging.Error("Auth", err, "Failed to render %s", name)
	}
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}
