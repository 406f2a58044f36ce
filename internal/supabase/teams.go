package supabase

import (
	"context"
	"net/http"
	"net/url"
)

const (
	teamsTable       = "/teams"
	teamMembersTable = "/team_members"
)

// TeamForUser returns the team the user belongs to, or nil when the user has
// not joined one yet. Membership is single-team; the first row wins.
func (c *Client) TeamForUser(ctx context.Context, userID string) (*Team, error) {
	q := url.Values{}
	q.Set("user_id", eq(userID))
	q.Set("limit", "1")

	var memberships []TeamMember
	if err := c.do(ctx, "team_for_user", http.MethodGet, restPrefix+teamMembersTable, q, nil, &memberships); err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	return c.teamByID(ctx, memberships[0].TeamID)
}

func (c *Client) teamByID(ctx context.Context, teamID string) (*Team, error) {
	q := url.Values{}
	q.Set("id", eq(teamID))

	var rows []Team
	if err := c.do(ctx, "team_by_id", http.MethodGet, restPrefix+teamsTable, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// TeamMembers returns the team's membership rows enriched with profiles.
func (c *Client) TeamMembers(ctx context.Context, teamID string) ([]Member, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("order", "joined_at.asc")

	var memberships []TeamMember
	if err := c.do(ctx, "team_members", http.MethodGet, restPrefix+teamMembersTable, q, nil, &memberships); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	profiles, err := c.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, Member{
			TeamMember: m,
			Profile:    profiles[m.UserID],
		})
	}
	return members, nil
}

// CreateTeam creates a team owned by the given user and adds the creator as
// its first member.
func (c *Client) CreateTeam(ctx context.Context, name, userID string) (*Team, error) {
	team := Team{Name: name, CreatedBy: userID}

	var rows []Team
	if err := c.do(ctx, "create_team", http.MethodPost, restPrefix+teamsTable, nil, team, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "create_team", Err: errEmptyResult}
	}
	created := rows[0]

	member := TeamMember{TeamID: created.ID, UserID: userID, Role: "owner"}
	if err := c.do(ctx, "create_team", http.MethodPost, restPrefix+teamMembersTable, nil, member, nil); err != nil {
		return nil, err
	}
	return &created, nil
}

// JoinTeam adds the user to the team that owns the given invite code.
func (c *Client) JoinTeam(ctx context.Context, inviteCode, userID string) (*Team, error) {
	q := url.Values{}
	q.Set("invite_code", eq(inviteCode))

	var rows []Team
	if err := c.do(ctx, "join_team", http.MethodGet, restPrefix+teamsTable, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "join_team", Status: http.StatusNotFound, Err: errEmptyResult}
	}
	team := rows[0]

	member := TeamMember{TeamID: team.ID, UserID: userID, Role: "member"}
	if err := c.do(ctx, "join_team", http.MethodPost, restPrefix+teamMembersTable, nil, member, nil); err != nil {
		return nil, err
	}
	return &team, nil
}

// LeaveTeam removes the user's membership in the team.
func (c *Client) LeaveTeam(ctx context.Context, teamID, userID string) error {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("user_id", eq(userID))
	return c.do(ctx, "leave_team", http.MethodDelete, restPrefix+teamMembersTable, q, nil, nil)
}
