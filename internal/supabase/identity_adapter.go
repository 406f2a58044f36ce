package supabase

import (
	"context"
	"time"

	"github.com/philles99/opsie/internal/identity"
)

// IdentityStore adapts a Client to the interfaces the identity matcher
// consumes.
type IdentityStore struct {
	client *Client
}

// NewIdentityStore wraps a client for use by the identity matcher.
func NewIdentityStore(c *Client) *IdentityStore {
	return &IdentityStore{client: c}
}

var (
	_ identity.MessageStore  = (*IdentityStore)(nil)
	_ identity.UserDirectory = (*IdentityStore)(nil)
)

// MessagesByExternalID implements identity.MessageStore.
func (s *IdentityStore) MessagesByExternalID(ctx context.Context, teamID, externalID string) ([]identity.StoredMessage, error) {
	rows, err := s.client.MessagesByExternalID(ctx, teamID, externalID)
	if err != nil {
		return nil, err
	}
	return toStoredMessages(rows), nil
}

// MessagesBySenderWindow implements identity.MessageStore.
func (s *IdentityStore) MessagesBySenderWindow(ctx context.Context, teamID, senderEmail string, from, to time.Time) ([]identity.StoredMessage, error) {
	rows, err := s.client.MessagesBySenderWindow(ctx, teamID, senderEmail, from, to)
	if err != nil {
		return nil, err
	}
	return toStoredMessages(rows), nil
}

// UserByID implements identity.UserDirectory.
func (s *IdentityStore) UserByID(ctx context.Context, id string) (*identity.User, error) {
	profile, err := s.client.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	return &identity.User{
		Name:  profile.DisplayName(),
		Email: profile.Email,
	}, nil
}

func toStoredMessages(rows []Message) []identity.StoredMessage {
	out := make([]identity.StoredMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStoredMessage(row))
	}
	return out
}

func toStoredMessage(row Message) identity.StoredMessage {
	return identity.StoredMessage{
		ID:           row.ID,
		ExternalID:   row.ExternalMessageID,
		SenderEmail:  row.SenderEmail,
		Timestamp:    row.When(),
		Summary:      row.Summary,
		Urgency:      row.Urgency,
		HandledAt:    row.HandledAt,
		HandledBy:    row.HandledBy,
		HandlingNote: row.HandlingNote,
		CreatedBy:    row.UserID,
	}
}
