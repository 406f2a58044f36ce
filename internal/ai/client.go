package ai

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
	"time"

	"github.com/philles99/opsie/internal/logging"
)

const (
	// functionsPrefix is the serverless-function path prefix.
	functionsPrefix = "/functions/v1"

	// defaultTimeout bounds a single function call. Model-backed functions
	// are slower than row lookups, so this is generous.
	defaultTimeout = 60 * time.Second
)

// AnalysisError describes a failed function call.
type AnalysisError struct {
	Op     string
	Status int
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ai: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("ai: %s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// TokenSource supplies the bearer token for function calls. A nil source
// leaves the client on the anon key.
type TokenSource func() string

// Client calls the project's analysis functions.
type Client struct {
	baseURL    string
	anonKey    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
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

// WithTokenSource sets the bearer-token supplier, usually wired to the
// store client's current session.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient creates a function client for the given project base URL and
// anon key.
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
	c.logger = logging.WithService(c.logger, "ai")
	return c, nil
}

// EmailInput is the email content handed to an analysis function.
type EmailInput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

// Summary is the analysis produced for an incoming email.
type Summary struct {
	Points  []string `json:"summary_points"`
	Urgency int      `json:"urgency"`
}

// Summarize asks the backend to summarize an email and rate its urgency
// from 1 (ignorable) to 5 (drop everything).
func (c *Client) Summarize(ctx context.Context, email EmailInput) (*Summary, error) {
	var out Summary
	if err := c.call(ctx, "summarize", "/summarize-email", email, &out); err != nil {
		return nil, err
	}
	if out.Urgency < 1 {
		out.Urgency = 1
	}
	if out.Urgency > 5 {
		out.Urgency = 5
	}
	return &out, nil
}

// DraftRequest asks for a reply draft in a given tone. Instructions are
// optional free-form guidance for the draft.
type DraftRequest struct {
	Email        EmailInput `json:"email"`
	Tone         string     `json:"tone"`
	Instructions string     `json:"instructions,omitempty"`
}

// Draft is a generated reply.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DraftReply asks the backend to draft a reply to an email.
func (c *Client) DraftReply(ctx context.Context, req DraftRequest) (*Draft, error) {
	if req.Tone == "" {
		req.Tone = "professional"
	}
	var out Draft
	if err := c.call(ctx, "draft_reply", "/draft-reply", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, op, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &AnalysisError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+functionsPrefix+path, bytes.NewReader(payload))
	if err != nil {
		return &AnalysisError{Op: op, Err: err}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AnalysisError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("function call",
		logging.Operation(op),
		slog.Int("status", resp.StatusCode),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &AnalysisError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(raw)))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AnalysisError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) bearerToken() string {
	if c.tokens != nil {
		if tok := c.tokens(); tok != "" {
			return tok
		}
	}
	return c.anonKey
}
