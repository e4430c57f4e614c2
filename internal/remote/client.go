// Package remote talks to the cadence sync server over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/guilhermegouw/cadence/internal/debug"
)

const (
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize caps response bodies (10MB).
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is sent with every request.
	UserAgent = "cadence/1.0"
)

// ErrNotConfigured is returned when no server URL is set.
var ErrNotConfigured = errors.New("remote server not configured")

// HTTPError is a non-2xx response.
type HTTPError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// Reminder is the server representation of a reminder.
type Reminder struct {
	DueAt     time.Time `json:"dueAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Done      bool      `json:"done"`
}

// Notification is the server representation of a notification.
type Notification struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

// Options configures a Client.
type Options struct {
	Tokens       oauth2.TokenSource
	HTTPClient   *http.Client
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client is the sync server API.
type Client struct {
	http   *retryablehttp.Client
	tokens oauth2.TokenSource
	base   *url.URL
}

// New creates a client. Transient failures (connection errors, 429 and
// 5xx responses) are retried with exponential backoff.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.Logger = leveledLogger{}
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	rc.HTTPClient.Timeout = opts.Timeout
	if opts.RetryMax > 0 {
		rc.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	// Return the last response instead of a generic "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{http: rc, tokens: opts.Tokens, base: base}, nil
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// FetchReminders returns reminders changed after since. A zero since
// returns everything.
func (c *Client) FetchReminders(ctx context.Context, since time.Time) ([]Reminder, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", strconv.FormatInt(since.UnixMilli(), 10))
	}
	var out []Reminder
	if err := c.do(ctx, http.MethodGet, "/api/reminders", q, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching reminders: %w", err)
	}
	return out, nil
}

// PutReminder creates or replaces a reminder on the server.
func (c *Client) PutReminder(ctx context.Context, r Reminder) (Reminder, error) {
	var out Reminder
	if err := c.do(ctx, http.MethodPut, "/api/reminders/"+url.PathEscape(r.ID), nil, r, &out); err != nil {
		return Reminder{}, fmt.Errorf("saving reminder %s: %w", r.ID, err)
	}
	return out, nil
}

// FetchNotifications returns notifications not yet acknowledged.
func (c *Client) FetchNotifications(ctx context.Context) ([]Notification, error) {
	q := url.Values{"pending": {"true"}}
	var out []Notification
	if err := c.do(ctx, http.MethodGet, "/api/notifications", q, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	return out, nil
}

// AcknowledgeNotification marks a notification handled on the server.
func (c *Client) AcknowledgeNotification(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/ack", nil, nil, nil); err != nil {
		return fmt.Errorf("acknowledging notification %s: %w", id, err)
	}
	return nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	// path is already escaped.
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("building url: %w", err)
	}
	u.Path = unescaped
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("getting token: %w", err)
		}
		tok.SetAuthHeader(req.Request)
	}

	resp, err := c.http.Do(req)
	if err != nil && resp == nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{URL: u.Path, Status: resp.Status, StatusCode: resp.StatusCode}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if len(data) > MaxResponseSize {
		return fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// leveledLogger routes retryablehttp logs to the debug log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...any) { debug.Warn("remote", msg, kv...) }
func (leveledLogger) Info(msg string, kv ...any)  { debug.Log("remote: %s %v", msg, kv) }
func (leveledLogger) Debug(msg string, kv ...any) { debug.Log("remote: %s %v", msg, kv) }
func (leveledLogger) Warn(msg string, kv ...any)  { debug.Warn("remote", msg, kv...) }
