package gmail

import (
	"context"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/philles99/opsie/internal/identity"
)

const hostName = "Gmail"

var _ identity.Host = (*Client)(nil)

// ConvertToRestID implements identity.Host. Gmail message IDs are already
// stable API identifiers, so there is no separate REST ID space to convert
// into.
func (c *Client) ConvertToRestID(ctx context.Context, nativeID string) (string, error) {
	return "", identity.ErrCapabilityUnavailable
}

// LookupMessageID implements identity.Host by reading the RFC 5322
// Message-ID header.
func (c *Client) LookupMessageID(ctx context.Context, nativeID string) (string, error) {
	msg, err := c.svc.Messages.Get("me", nativeID).
		Format("metadata").MetadataHeaders("Message-ID").
		Context(ctx).Do()
	if err != nil {
		return "", &identity.HostError{Op: "lookup_message_id", Err: err}
	}
	return HeaderValue(msg, "Message-ID"), nil
}

// MailItem fetches a message and shapes it for identity resolution.
func (c *Client) MailItem(ctx context.Context, messageID string) (*identity.MailItem, error) {
	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return mailItemFromMessage(msg), nil
}

func mailItemFromMessage(msg *gmail.Message) *identity.MailItem {
	return &identity.MailItem{
		NativeID:          msg.Id,
		ConversationID:    msg.ThreadId,
		InternetMessageID: HeaderValue(msg, "Message-ID"),
		Subject:           HeaderValue(msg, "Subject"),
		SenderEmail:       SenderAddress(HeaderValue(msg, "From")),
		Timestamp:         HeaderValue(msg, "Date"),
		HostName:          hostName,
	}
}
