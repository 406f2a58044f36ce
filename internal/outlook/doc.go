// Package outlook provides access to Outlook mailboxes via the Microsoft
// Graph API.
//
// The client covers the operations the identity pipeline needs: converting
// Exchange entry IDs into stable REST IDs, reading a message's RFC 5322
// internet message ID, and fetching message content for analysis. It
// satisfies the identity.Host interface so the resolver can upgrade IDs
// when a Graph token is available.
//
// Example usage:
//
//	client, err := outlook.NewClient(tokenSource)
//	if err != nil {
//		log.Fatal(err)
//	}
//	restID, err := client.ConvertToRestID(ctx, entryID)
package outlook
