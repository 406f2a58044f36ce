// Package supabase provides a client for the team email-assistant backend,
// a Supabase-style REST API (PostgREST row filters plus a GoTrue auth
// endpoint).
//
// This package offers the backend surface the rest of the application builds
// on:
//   - Message records: query by external message ID or by sender within a
//     timestamp window, save, mark handled
//   - Notes: per-email team notes, listing and creation
//   - Teams: lookup, creation, invite-code joining, membership management
//   - Profiles: team-member display identities
//   - Auth: password sign-in and refresh-token sessions
//
// Authentication:
// Every request carries the project's anon key in the apikey header. Requests
// additionally carry a bearer token: the signed-in session's access token when
// one is present, the anon key otherwise. Sessions are obtained with
// Client.SignIn and kept on the client; RefreshSession exchanges the refresh
// token before expiry.
//
// Row filters use PostgREST operator syntax (eq., gte., lte., in.), which is
// why query values look like "team_id=eq.<uuid>".
//
// Example usage:
//
//	client, err := supabase.NewClient(baseURL, anonKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.SignIn(ctx, email, password); err != nil {
//	    log.Fatal(err)
//	}
//
//	msgs, err := client.MessagesByExternalID(ctx, teamID, externalID)
//	if err != nil {
//	    log.Fatal(err)
//	}
package supabase
