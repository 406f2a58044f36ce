package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/philles99/opsie/internal/identity"
	"github.com/philles99/opsie/internal/supabase"
)

func newCheckCmd() *cobra.Command {
	var (
		host    string
		account string
		teamID  string
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check <message-id>",
		Short: "Check whether the team has already seen an email",
		Long: `Resolve an email's identifier and look it up in the team workspace.

The lookup first tries the exact identifier, then falls back to matching
by sender within a two-minute window around the message timestamp.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], host, account, teamID, wait)
		},
	}

	cmd.Flags().StringVar(&host, "host", "gmail", "Mail host (gmail or outlook)")
	cmd.Flags().StringVar(&account, "account", "default", "Google account to use (gmail host)")
	cmd.Flags().StringVar(&teamID, "team", "", "Team ID to look up in (required)")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "How long to wait for the asynchronous identifier upgrade")
	_ = cmd.MarkFlagRequired("team")

	return cmd
}

// checkOutput is the CLI rendering of an existence check.
type checkOutput struct {
	ID          string `json:"id"`
	Found       bool   `json:"found"`
	FoundBy     string `json:"foundBy,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
	Handled     bool   `json:"handled,omitempty"`
	HandledBy   string `json:"handledBy,omitempty"`
	HandledNote string `json:"handledNote,omitempty"`
}

func runCheck(cmd *cobra.Command, messageID, host, account, teamID string, wait time.Duration) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := newStoreClient(ctx, logger)
	if err != nil {
		return err
	}

	client, err := newMailHost(ctx, host, account)
	if err != nil {
		return err
	}

	item, err := client.MailItem(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}

	resolver := identity.NewResolver(client, logger)
	res := resolver.Resolve(ctx, *item)
	id := res.Identity

	select {
	case restID, ok := <-res.Upgrade:
		if ok {
			id.ApplyUpgrade(restID)
		}
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}

	adapter := supabase.NewIdentityStore(store)
	matcher := identity.NewMatcher(adapter, adapter, logger)

	match := matcher.FindExisting(ctx, identity.Lookup{
		FinalID:     id.FinalID,
		SenderEmail: item.SenderEmail,
		Timestamp:   item.Timestamp,
		TeamID:      teamID,
	})

	out := checkOutput{
		ID:    id.FinalID,
		Found: match.Exists,
	}
	if match.Exists && match.Record != nil {
		out.FoundBy = string(match.FoundBy)
		out.MessageID = match.Record.ID
		out.Handled = match.Record.Handled()
		if match.HandledByUser != nil {
			out.HandledBy = match.HandledByUser.Name
		}
		out.HandledNote = match.Record.HandlingNote
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
