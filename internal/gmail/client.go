package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/philles99/opsie/internal/google"
)

// Client wraps the Gmail Users service for a single account
type Client struct {
	svc     *gmail.UsersService
	account string
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// HasToken checks if a valid OAuth token exists for the default account
func HasToken() bool {
	return google.HasToken()
}

// NewClientForAccount creates a new Gmail client with OAuth2 authentication
// for a specific account
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w. Please run 'opsie login' first", account, err)
	}

	svc, err := gmail.New(client)
	if err != nil {
		return nil, err
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// NewClient creates a new Gmail client for the default account
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// NewClientWithProvider creates a Gmail client whose tokens come from the
// given provider instead of the default on-disk store
func NewClientWithProvider(ctx context.Context, account string, provider google.TokenProvider) (*Client, error) {
	client, err := google.HTTPClientForProvider(ctx, provider, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.New(client)
	if err != nil {
		return nil, err
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if strings.EqualFold(mph.Name, header) {
			return mph.Value
		}
	}
	return ""
}

// MessageBody extracts the plain-text body from a message, falling back to
// HTML when no text part exists
func MessageBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	for _, mimeType := range []string{"text/plain", "text/html"} {
		var body string
		walkParts(msg.Payload, func(part *gmail.MessagePart) {
			if body == "" && part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
				body = part.Body.Data
			}
		})
		if body == "" {
			continue
		}
		decoded, err := base64.URLEncoding.DecodeString(body)
		if err != nil {
			// Some messages carry standard base64 instead
			decoded, err = base64.StdEncoding.DecodeString(body)
			if err != nil {
				continue
			}
		}
		return string(decoded)
	}
	return ""
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// SenderAddress extracts the bare address from a From header value like
// `"Alice Ng" <alice@example.com>`
func SenderAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start != -1 {
		if end := strings.Index(from[start:], ">"); end != -1 {
			return strings.TrimSpace(from[start+1 : start+end])
		}
	}
	return strings.TrimSpace(from)
}

// encodeRFC2047 encodes a header value per RFC 2047 when it contains
// non-ASCII characters
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// SendReply sends a threaded reply to an existing message
func (c *Client) SendReply(ctx context.Context, messageID, body string) (string, error) {
	if messageID == "" {
		return "", fmt.Errorf("messageID is required")
	}
	if body == "" {
		return "", fmt.Errorf("body is required")
	}

	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return "", fmt.Errorf("failed to get original message: %w", err)
	}

	originalFrom := HeaderValue(msg, "From")
	originalSubject := HeaderValue(msg, "Subject")
	originalMessageID := HeaderValue(msg, "Message-ID")
	originalReferences := HeaderValue(msg, "References")

	if originalFrom == "" {
		return "", fmt.Errorf("original message has no From header")
	}

	replySubject := originalSubject
	if !strings.HasPrefix(strings.ToLower(replySubject), "re:") {
		replySubject = "Re: " + replySubject
	}

	references := originalMessageID
	if originalReferences != "" {
		references = originalReferences + " " + originalMessageID
	}

	var b strings.Builder
	b.WriteString("To: " + originalFrom + "\r\n")
	b.WriteString("Subject: " + encodeRFC2047(replySubject) + "\r\n")
	if originalMessageID != "" {
		b.WriteString("In-Reply-To: " + originalMessageID + "\r\n")
	}
	if references != "" {
		b.WriteString("References: " + references + "\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	gmailMsg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(b.String())),
		ThreadId: msg.ThreadId,
	}
	sent, err := c.svc.Messages.Send("me", gmailMsg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send reply: %w", err)
	}
	return sent.Id, nil
}
