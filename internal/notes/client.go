package notes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/giantswarm/noteclip/pkg/logging"
)

const (
	// DefaultBaseURL is the OneNote API root for the signed-in user.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0/me/onenote"

	// DefaultTimeout bounds each API request.
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "client-request-id"
)

// Session supplies bearer tokens and is told when the API rejects one.
// *auth.Manager implements it.
type Session interface {
	// TokenSource returns tokens bound to ctx, so a refresh stops when the
	// request that needed it is cancelled.
	TokenSource(ctx context.Context) oauth2.TokenSource
	HandleUnauthorizedResponse() error
}

// Notebook is a OneNote notebook.
type Notebook struct {
	ID          string
	DisplayName string
}

// Section is a section inside a notebook. The parent notebook fields are
// only filled by GetSection.
type Section struct {
	ID           string
	DisplayName  string
	NotebookID   string
	NotebookName string
}

// Page is a created page.
type Page struct {
	ID      string
	Title   string
	WebURL  string
	Created time.Time
}

// Client calls the OneNote API with the session's bearer token.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
	session   Session
}

// ClientOption configures the notes client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTransport sets the base transport under the bearer-token transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// NewClient creates a notes client bound to session.
func NewClient(session Session, opts ...ClientOption) *Client {
	o := clientOptions{
		baseURL:   DefaultBaseURL,
		transport: http.DefaultTransport,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL:   strings.TrimSuffix(o.baseURL, "/"),
		transport: o.transport,
		timeout:   o.timeout,
		session:   session,
	}
}

// httpClient injects bearer tokens taken from the session for ctx.
func (c *Client) httpClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: c.session.TokenSource(ctx),
			Base:   c.transport,
		},
	}
}

// ListNotebooks returns the user's notebooks.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	body, err := c.do(ctx, http.MethodGet, "/notebooks?$select=id,displayName", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}

	var notebooks []Notebook
	gjson.GetBytes(body, "value").ForEach(func(_, v gjson.Result) bool {
		notebooks = append(notebooks, Notebook{
			ID:          v.Get("id").String(),
			DisplayName: v.Get("displayName").String(),
		})
		return true
	})
	return notebooks, nil
}

// ListSections returns the sections of a notebook.
func (c *Client) ListSections(ctx context.Context, notebookID string) ([]Section, error) {
	path := "/notebooks/" + url.PathEscape(notebookID) + "/sections?$select=id,displayName"
	body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	var sections []Section
	gjson.GetBytes(body, "value").ForEach(func(_, v gjson.Result) bool {
		sections = append(sections, Section{
			ID:          v.Get("id").String(),
			DisplayName: v.Get("displayName").String(),
		})
		return true
	})
	return sections, nil
}

// GetSection fetches a single section; IsNotFound(err) is true when it is gone.
func (c *Client) GetSection(ctx context.Context, sectionID string) (*Section, error) {
	body, err := c.do(ctx, http.MethodGet, "/sections/"+url.PathEscape(sectionID), "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}

	return &Section{
		ID:           gjson.GetBytes(body, "id").String(),
		DisplayName:  gjson.GetBytes(body, "displayName").String(),
		NotebookID:   gjson.GetBytes(body, "parentNotebook.id").String(),
		NotebookName: gjson.GetBytes(body, "parentNotebook.displayName").String(),
	}, nil
}

// CreatePage posts an HTML document as a new page in a section.
func (c *Client) CreatePage(ctx context.Context, sectionID, html string) (*Page, error) {
	path := "/sections/" + url.PathEscape(sectionID) + "/pages"
	body, err := c.do(ctx, http.MethodPost, path, "text/html", strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page := &Page{
		ID:     gjson.GetBytes(body, "id").String(),
		Title:  gjson.GetBytes(body, "title").String(),
		WebURL: gjson.GetBytes(body, "links.oneNoteWebUrl.href").String(),
	}
	if created := gjson.GetBytes(body, "createdDateTime"); created.Exists() {
		page.Created, _ = time.Parse(time.RFC3339, created.String())
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logging.Debug("Notes", "%s %s (request %s)", method, path, requestID)

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		logging.Warn("Notes", "Notes API rejected the access token (request %s)", requestID)
		if err := c.session.HandleUnauthorizedResponse(); err != nil {
			logging.Error("Notes", err, "Failed to clear rejected session")
		}
		return nil, ErrSessionInvalidated
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, data, requestID)
	}

	return data, nil
}

func parseAPIError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	if gjson.ValidBytes(body) {
		apiErr.Code = gjson.GetBytes(body, "error.code").String()
		apiErr.Message = gjson.GetBytes(body, "error.message").String()
	}
	if apiErr.Message == "" && !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
