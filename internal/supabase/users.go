package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// profilesTable holds per-user display data.
const profilesTable = "/profiles"

// UserByID returns the profile for a user, or nil when no profile exists.
func (c *Client) UserByID(ctx context.Context, id string) (*Profile, error) {
	q := url.Values{}
	q.Set("id", eq(id))

	var rows []Profile
	if err := c.do(ctx, "user_by_id", http.MethodGet, restPrefix+profilesTable, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UsersByIDs returns profiles for the given user IDs, keyed by ID. Unknown
// IDs are simply absent from the result.
func (c *Client) UsersByIDs(ctx context.Context, ids []string) (map[string]Profile, error) {
	if len(ids) == 0 {
		return map[string]Profile{}, nil
	}
	q := url.Values{}
	q.Set("id", "in.("+strings.Join(ids, ",")+")")

	var rows []Profile
	if err := c.do(ctx, "users_by_ids", http.MethodGet, restPrefix+profilesTable, q, nil, &rows); err != nil {
		return nil, err
	}
	byID := make(map[string]Profile, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	return byID, nil
}
