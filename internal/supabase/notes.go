package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// notesTable holds per-message collaboration notes.
const notesTable = "/email_notes"

// ListNotes returns all notes a team attached to a message, oldest first.
func (c *Client) ListNotes(ctx context.Context, teamID, externalID string) ([]Note, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("external_message_id", eq(externalID))
	q.Set("order", "created_at.asc")

	var rows []Note
	if err := c.do(ctx, "list_notes", http.MethodGet, restPrefix+notesTable, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListNotesSince returns notes on a message created after the given time.
// The poller uses this to pick up teammates' notes without refetching the
// whole thread.
func (c *Client) ListNotesSince(ctx context.Context, teamID, externalID string, since time.Time) ([]Note, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("external_message_id", eq(externalID))
	q.Set("created_at", "gt."+since.UTC().Format(time.RFC3339))
	q.Set("order", "created_at.asc")

	var rows []Note
	if err := c.do(ctx, "list_notes_since", http.MethodGet, restPrefix+notesTable, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AddNote attaches a note to a message on behalf of a user.
func (c *Client) AddNote(ctx context.Context, teamID, externalID, userID, body string) (*Note, error) {
	note := Note{
		ExternalMessageID: externalID,
		TeamID:            teamID,
		UserID:            userID,
		Body:              body,
	}
	var rows []Note
	if err := c.do(ctx, "add_note", http.MethodPost, restPrefix+notesTable, nil, note, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "add_note", Err: errEmptyResult}
	}
	return &rows[0], nil
}
