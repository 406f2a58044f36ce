package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/philles99/opsie/internal/identity"
)

func newResolveCmd() *cobra.Command {
	var (
		host    string
		account string
		pageURL string
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve <message-id>",
		Short: "Resolve a stable identifier for an email",
		Long: `Resolve the best available stable identifier for an email message.

The identifier is derived from the message's REST ID, conversation ID,
native ID or internet-message-id, falling back to a synthetic identifier
when nothing else is available. Use --wait to give the asynchronous REST
upgrade a chance to complete before printing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], host, account, pageURL, wait)
		},
	}

	cmd.Flags().StringVar(&host, "host", "gmail", "Mail host (gmail or outlook)")
	cmd.Flags().StringVar(&account, "account", "default", "Google account to use (gmail host)")
	cmd.Flags().StringVar(&pageURL, "page-url", "", "Mail client page URL to mine for an identifier token")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "How long to wait for the asynchronous identifier upgrade")

	return cmd
}

// resolveOutput is the CLI rendering of a resolved identity.
type resolveOutput struct {
	ID        string `json:"id"`
	Synthetic bool   `json:"synthetic"`
	Upgraded  bool   `json:"upgraded"`
	NativeID  string `json:"nativeId,omitempty"`
	RestID    string `json:"restId,omitempty"`
}

func runResolve(cmd *cobra.Command, messageID, host, account, pageURL string, wait time.Duration) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := newMailHost(ctx, host, account)
	if err != nil {
		return err
	}

	item, err := client.MailItem(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}
	item.PageURL = pageURL

	resolver := identity.NewResolver(client, logger)
	res := resolver.Resolve(ctx, *item)
	id := res.Identity

	upgraded := false
	select {
	case restID, ok := <-res.Upgrade:
		if ok {
			upgraded = id.ApplyUpgrade(restID)
		}
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}

	out := resolveOutput{
		ID:        id.FinalID,
		Synthetic: id.FinalID != "" && id.FinalID == id.SyntheticID,
		Upgraded:  upgraded,
		NativeID:  id.RawItemID,
		RestID:    id.RestID,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
