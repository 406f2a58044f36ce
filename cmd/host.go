package cmd

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"github.com/philles99/opsie/internal/gmail"
	"github.com/philles99/opsie/internal/google"
	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/outlook"
)

// mailHost is the per-host capability surface the CLI commands need.
type mailHost interface {
	identity.Host
	MailItem(ctx context.Context, messageID string) (*identity.MailItem, error)
}

// newMailHost builds a mail host client. Gmail uses the stored OAuth token
// for the given account; Outlook uses a Graph access token from the
// OPSIE_GRAPH_TOKEN environment variable.
func newMailHost(ctx context.Context, host, account string) (mailHost, error) {
	switch host {
	case "gmail":
		return gmail.NewClientWithProvider(ctx, account, google.NewFileTokenProvider())
	case "outlook":
		token := os.Getenv("OPSIE_GRAPH_TOKEN")
		if token == "" {
			return nil, fmt.Errorf("OPSIE_GRAPH_TOKEN is not set")
		}
		return outlook.NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	default:
		return nil, fmt.Errorf("unsupported host %q (supported: gmail, outlook)", host)
	}
}
