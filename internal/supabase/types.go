package supabase

import (
	"fmt"
	"strings"
	"time"
)

// StoreError represents an error returned by the backend REST API.
type StoreError struct {
	// Op is the operation that failed (e.g. "messages.by_external_id").
	Op string

	// Status is the HTTP status code, 0 for transport-level failures.
	Status int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("supabase %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("supabase %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Message is a saved email record in the team store.
type Message struct {
	ID                string     `json:"id,omitempty"`
	ExternalMessageID string     `json:"external_message_id"`
	TeamID            string     `json:"team_id"`
	UserID            string     `json:"user_id,omitempty"`
	Subject           string     `json:"subject,omitempty"`
	SenderEmail       string     `json:"sender_email"`
	Timestamp         string     `json:"timestamp,omitempty"`
	CreatedAt         string     `json:"created_at,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	Urgency           int        `json:"urgency,omitempty"`
	HandledAt         *time.Time `json:"handled_at,omitempty"`
	HandledBy         string     `json:"handled_by,omitempty"`
	HandlingNote      string     `json:"handling_note,omitempty"`
}

// SummaryPoints splits the summary into its display points. Summaries are
// stored either "|"-delimited or newline-delimited depending on which model
// produced them.
func (m Message) SummaryPoints() []string {
	if m.Summary == "" {
		return nil
	}
	sep := "|"
	if !strings.Contains(m.Summary, "|") {
		sep = "\n"
	}
	var points []string
	for _, p := range strings.Split(m.Summary, sep) {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return points
}

// When returns the message timestamp, preferring the explicit timestamp
// column and falling back to the row creation time. The zero time means
// neither column parsed.
func (m Message) When() time.Time {
	for _, raw := range []string{m.Timestamp, m.CreatedAt} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Profile is a team member's profile row.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
}

// DisplayName returns the best human-readable name for the profile.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name != "" {
		return name
	}
	return p.Email
}

// Note is a team note attached to an email.
type Note struct {
	ID                string `json:"id,omitempty"`
	ExternalMessageID string `json:"external_message_id"`
	TeamID            string `json:"team_id"`
	UserID            string `json:"user_id,omitempty"`
	Body              string `json:"body"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// Team is a tenant/workspace boundary; every store query is scoped to one.
type Team struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// TeamMember is a membership row joining a user to a team.
type TeamMember struct {
	TeamID   string `json:"team_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role,omitempty"`
	JoinedAt string `json:"joined_at,omitempty"`
}

// Member is a membership row enriched with the member's profile.
type Member struct {
	TeamMember
	Profile Profile
}

// AuthUser is the identity portion of an auth session.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in auth session.
type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in,omitempty"`
	User         AuthUser `json:"user"`

	// ExpiresAt is computed client-side from ExpiresIn at sign-in.
	ExpiresAt time.Time `json:"-"`
}

// Expired reports whether the session's access token has expired (with a
// small safety margin for clock skew).
func (s *Session) Expired() bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt.Add(-30 * time.Second))
}
