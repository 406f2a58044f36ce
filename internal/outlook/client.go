package outlook

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

	"golang.org/x/oauth2"

	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/logging"
)

const (
	// defaultBaseURL is the Graph v1.0 endpoint.
	defaultBaseURL = "https://graph.microsoft.com/v1.0"

	defaultTimeout = 15 * time.Second
)

// Client provides access to Outlook message operations via Microsoft Graph.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ identity.Host = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Graph client authenticated by the given token source.
func NewClient(ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = defaultTimeout

	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: hc,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, "outlook")
	return c, nil
}

// ConvertToRestID translates an Exchange entry ID into a stable Graph REST
// ID. Implements identity.Host.
func (c *Client) ConvertToRestID(ctx context.Context, nativeID string) (string, error) {
	if nativeID == "" {
		return "", &GraphError{Op: "convert_id", Err: fmt.Errorf("nativeID cannot be empty")}
	}

	body := map[string]interface{}{
		"inputIds":     []string{nativeID},
		"sourceIdType": "entryId",
		"targetIdType": "restId",
	}
	var out struct {
		Value []idTranslation `json:"value"`
	}
	if err := c.do(ctx, "convert_id", http.MethodPost, "/me/translateExchangeIds", body, &out); err != nil {
		return "", err
	}
	if len(out.Value) == 0 || out.Value[0].TargetID == "" {
		return "", &GraphError{Op: "convert_id", Err: fmt.Errorf("no translation returned")}
	}
	return out.Value[0].TargetID, nil
}

// LookupMessageID returns the RFC 5322 internet message ID for a message.
// Implements identity.Host.
func (c *Client) LookupMessageID(ctx context.Context, nativeID string) (string, error) {
	msg, err := c.Message(ctx, nativeID)
	if err != nil {
		return "", err
	}
	return msg.InternetMessageID, nil
}

// Message fetches a single message by its Graph ID.
func (c *Client) Message(ctx context.Context, id string) (*Message, error) {
	if id == "" {
		return nil, &GraphError{Op: "get_message", Err: fmt.Errorf("id cannot be empty")}
	}

	path := "/me/messages/" + url.PathEscape(id) +
		"?$select=id,conversationId,internetMessageId,subject,bodyPreview,receivedDateTime,from"

	var msg Message
	if err := c.do(ctx, "get_message", http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &GraphError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &GraphError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GraphError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("graph request",
		logging.Operation(op),
		slog.Int("status", resp.StatusCode),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &GraphError{Op: op, Status: resp.StatusCode, Err: graphAPIError(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GraphError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func graphAPIError(raw []byte) error {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		return fmt.Errorf("%s: %s", payload.Error.Code, payload.Error.Message)
	}
	return fmt.Errorf("request rejected")
}
