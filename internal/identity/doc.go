// Package identity derives stable identifiers for mail items and checks
// whether a message has already been recorded in the shared team store.
//
// Mail clients expose different identifiers for the same physical message
// depending on the surface (web, desktop, mobile) and protocol (EWS, REST,
// conversation threading). The resolver picks the most portable identifier
// available, preferring the provider URL-token format the backend indexes on,
// and falls back to a deterministic synthetic identifier when the host exposes
// nothing at all.
//
// Existence checks are two-tiered: a primary exact lookup by the resolved
// identifier, and a secondary sender + timestamp-window lookup that catches
// cross-surface duplicates the primary key misses. Both checks are advisory;
// every failure degrades to "no match" rather than blocking the caller.
//
// Example usage:
//
//	resolver := identity.NewResolver(host, logger)
//	res := resolver.Resolve(ctx, item)
//	match := matcher.FindExisting(ctx, identity.Lookup{
//	    FinalID:     res.Identity.FinalID,
//	    SenderEmail: item.SenderEmail,
//	    Timestamp:   item.Timestamp,
//	    TeamID:      teamID,
//	})
//	if upgraded, ok := <-res.Upgrade; ok {
//	    // re-key the session if this email is still the active one
//	}
package identity
