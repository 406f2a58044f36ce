// Package ai calls the backend's serverless functions for email analysis.
//
// Two functions are exposed: one produces a short summary with an urgency
// rating for an incoming email, the other drafts a reply in a requested
// tone. Both run behind the same project host as the data store and accept
// the same bearer tokens, so the client mirrors the store client's header
// policy.
//
// Example usage:
//
//	client, err := ai.NewClient(baseURL, anonKey, ai.WithTokenSource(tokens))
//	if err != nil {
//		log.Fatal(err)
//	}
//	analysis, err := client.Summarize(ctx, ai.EmailInput{
//		Subject: "Q3 invoice",
//		Body:    body,
//		Sender:  "billing@example.com",
//	})
package ai
