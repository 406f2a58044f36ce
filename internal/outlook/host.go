package outlook

import (
	"context"

	"github.com/philles99/opsie/internal/identity"
)

const hostName = "Outlook"

// MailItem fetches a message and shapes it for identity resolution.
func (c *Client) MailItem(ctx context.Context, messageID string) (*identity.MailItem, error) {
	msg, err := c.Message(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return mailItemFromMessage(msg), nil
}

func mailItemFromMessage(msg *Message) *identity.MailItem {
	return &identity.MailItem{
		NativeID:          msg.ID,
		ConversationID:    msg.ConversationID,
		InternetMessageID: msg.InternetMessageID,
		Subject:           msg.Subject,
		SenderEmail:       msg.From.EmailAddress.Address,
		Timestamp:         msg.ReceivedAt,
		HostName:          hostName,
	}
}
