package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/philles99/opsie/internal/instrumentation"
)

// SignIn authenticates with email and password and installs the resulting
// session on the client.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	q := url.Values{}
	q.Set("grant_type", "password")

	creds := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.do(ctx, "sign_in", http.MethodPost, authPrefix+"/token", q, creds, &session); err != nil {
		c.recordAuth(ctx, instrumentation.AuthResultFailure)
		return nil, err
	}
	stampExpiry(&session)
	c.SetSession(&session)
	c.recordAuth(ctx, instrumentation.AuthResultSuccess)
	return &session, nil
}

// RefreshSession exchanges the stored refresh token for a new session and
// installs it on the client.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	current := c.CurrentSession()
	if current == nil || current.RefreshToken == "" {
		return nil, &StoreError{Op: "refresh_session", Err: errNoSession}
	}

	q := url.Values{}
	q.Set("grant_type", "refresh_token")

	body := map[string]string{"refresh_token": current.RefreshToken}
	var session Session
	if err := c.do(ctx, "refresh_session", http.MethodPost, authPrefix+"/token", q, body, &session); err != nil {
		c.recordRefresh(ctx, instrumentation.AuthResultFailure)
		return nil, err
	}
	stampExpiry(&session)
	c.SetSession(&session)
	c.recordRefresh(ctx, instrumentation.AuthResultSuccess)
	return &session, nil
}

// SignOut revokes the current session and clears it from the client.
func (c *Client) SignOut(ctx context.Context) error {
	if c.CurrentSession() == nil {
		return nil
	}
	err := c.do(ctx, "sign_out", http.MethodPost, authPrefix+"/logout", nil, nil, nil)
	c.SetSession(nil)
	return err
}

func stampExpiry(s *Session) {
	if s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
}

func (c *Client) recordAuth(ctx context.Context, result string) {
	if m := c.recorder(); m != nil {
		m.RecordAuth(ctx, result)
	}
}

func (c *Client) recordRefresh(ctx context.Context, result string) {
	if m := c.recorder(); m != nil {
		m.RecordTokenRefresh(ctx, result)
	}
}

// errNoSession reports a session-scoped operation attempted on an anonymous
// client.
var errNoSession = errors.New("no active session")
