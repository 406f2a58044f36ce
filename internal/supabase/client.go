package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/philles99/opsie/internal/instrumentation"
	"github.com/philles99/opsie/internal/logging"
)

const (
	// restPrefix is the PostgREST path prefix for table access.
	restPrefix = "/rest/v1"

	// authPrefix is the GoTrue path prefix for auth operations.
	authPrefix = "/auth/v1"

	// defaultTimeout bounds a single backend request.
	defaultTimeout = 15 * time.Second
)

// Client provides access to the team email-assistant backend.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	metrics    *instrumentation.Metrics

	mu      sync.RWMutex
	session *Session
}

// SetMetrics installs a metrics recorder for auth and refresh outcomes.
// Safe to leave unset; a nil recorder disables recording.
func (c *Client) SetMetrics(metrics *instrumentation.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = metrics
}

func (c *Client) recorder() *instrumentation.Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit throttles outgoing requests. Existence checks run on every
// email open, so an aggressive client would otherwise hammer the backend when
// a user flips through their inbox.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a backend client for the given project base URL and anon
// key. The base URL is the project root (e.g. "https://xyz.supabase.co")
// without a path.
func NewClient(baseURL, anonKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("anonKey cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, "supabase")
	return c, nil
}

// SetSession installs a previously obtained auth session on the client.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// CurrentSession returns the installed session, or nil when the client is
// anonymous.
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// bearerToken returns the token used for the Authorization header.
func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

// do performs a backend request. query may be nil; body and out may be nil.
// Write requests ask PostgREST to return the affected representation so
// callers get generated columns (id, created_at) back.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &StoreError{Op: op, Err: err}
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &StoreError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			logging.Operation(op), logging.Err(err))
		return &StoreError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		logging.Operation(op),
		slog.Int("status", resp.StatusCode),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	if resp.StatusCode >= 400 {
		return &StoreError{Op: op, Status: resp.StatusCode, Err: apiError(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &StoreError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// apiError extracts the backend's error message from a failed response body.
func apiError(body io.Reader) error {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err == nil && json.Unmarshal(raw, &payload) == nil {
		for _, m := range []string{payload.Message, payload.Msg, payload.ErrorDescription} {
			if m != "" {
				return fmt.Errorf("%s", m)
			}
		}
	}
	return fmt.Errorf("request rejected")
}

// errEmptyResult reports a write that the backend accepted but returned no
// representation for, usually a row-level-security mismatch.
var errEmptyResult = fmt.Errorf("no rows returned")

// eq formats a PostgREST equality filter value.
func eq(v string) string {
	return "eq." + v
}
