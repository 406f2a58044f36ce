package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// messagesTable is the processed-email table.
const messagesTable = "/emails"

// MessagesByExternalID returns stored messages for a team that carry the
// given external message ID, oldest first.
func (c *Client) MessagesByExternalID(ctx context.Context, teamID, externalID string) ([]Message, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("external_message_id", eq(externalID))
	q.Set("order", "created_at.asc")

	var rows []Message
	if err := c.do(ctx, "messages_by_external_id", http.MethodGet, restPrefix+messagesTable, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MessagesBySenderWindow returns stored messages for a team from the given
// sender whose timestamps fall inside [from, to], oldest first.
func (c *Client) MessagesBySenderWindow(ctx context.Context, teamID, senderEmail string, from, to time.Time) ([]Message, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("sender_email", eq(senderEmail))
	q.Add("timestamp", "gte."+from.UTC().Format(time.RFC3339))
	q.Add("timestamp", "lte."+to.UTC().Format(time.RFC3339))
	q.Set("order", "timestamp.asc")

	var rows []Message
	if err := c.do(ctx, "messages_by_sender_window", http.MethodGet, restPrefix+messagesTable, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveMessage inserts a processed message and returns the stored row.
func (c *Client) SaveMessage(ctx context.Context, msg Message) (*Message, error) {
	var rows []Message
	if err := c.do(ctx, "save_message", http.MethodPost, restPrefix+messagesTable, nil, msg, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "save_message", Err: errEmptyResult}
	}
	return &rows[0], nil
}

// MarkHandled records that a team member dealt with a message.
func (c *Client) MarkHandled(ctx context.Context, messageID, userID, note string) (*Message, error) {
	q := url.Values{}
	q.Set("id", eq(messageID))

	patch := map[string]interface{}{
		"handled_at":    time.Now().UTC().Format(time.RFC3339),
		"handled_by":    userID,
		"handling_note": note,
	}
	var rows []Message
	if err := c.do(ctx, "mark_handled", http.MethodPatch, restPrefix+messagesTable, q, patch, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "mark_handled", Err: errEmptyResult}
	}
	return &rows[0], nil
}
