// Package gmail provides access to Gmail mailboxes for the email assistant.
//
// The client covers the operations the identity pipeline and the analysis
// tools need: fetching a message with its headers, extracting the RFC 5322
// Message-ID and a plain-text body for summarization, and sending threaded
// replies. It satisfies the identity.Host interface; Gmail has no separate
// REST ID space, so the ID-conversion capability reports unavailable and
// the resolver falls through to the native ID.
//
// Authentication uses the unified Google OAuth token from the google
// package. Tokens are loaded from the file system (~/.cache/opsie/).
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := gmail.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	item, err := client.MailItem(ctx, messageID)
//	if err != nil {
//	    log.Fatal(err)
//	}
package gmail
