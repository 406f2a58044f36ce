package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the Google OAuth scopes the assistant needs.
//
// The scopes provide access to:
//   - Gmail: read, send (for threaded replies)
//   - OpenID Connect user info (to show which account is signed in)
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	gmail.MailGoogleComScope,
}
